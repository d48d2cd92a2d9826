package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatEUR renders an amount the French way: thousands grouped with a space,
// comma decimals only when needed ("1 650€", "12,50€").
func FormatEUR(d decimal.Decimal) string {
	return FormatAmount(d) + "€"
}

// FormatAmount is FormatEUR without the currency sign.
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if frac != "00" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
