package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yurifrl/compta/pkg/models"
)

// DateInput is a date typed by the operator, resolved against a processing
// time.
type DateInput struct {
	Date string // ISO date, not yet validated
	// Phrase is the relative word the date was resolved from ("hier",
	// "demain", ...). Empty for absolute dates.
	Phrase string
}

// Relative reports whether the date came from a relative phrase and
// therefore needs to be shown back to the operator for confirmation.
func (d DateInput) Relative() bool { return d.Phrase != "" }

var (
	shortDate = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})$`)
	fullDate  = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{2}|\d{4})$`)
)

// relativeDays maps folded relative phrases to a day offset and the label
// shown to the operator.
var relativeDays = map[string]struct {
	offset int
	label  string
}{
	"hier":        {-1, "hier"},
	"demain":      {1, "demain"},
	"aujourd'hui": {0, "aujourd'hui"},
	"aujourdhui":  {0, "aujourd'hui"},
	"today":       {0, "aujourd'hui"},
	"avant-hier":  {-2, "avant-hier"},
	"avant hier":  {-2, "avant-hier"},
}

// ParseDate resolves free text to a date. It accepts the relative phrases
// above, DD/MM (current year), DD/MM/YY (20YY), DD/MM/YYYY and ISO dates.
// Anything else is returned as-is so the validator can reject it with its
// own message.
func ParseDate(text string, now time.Time) DateInput {
	raw := strings.TrimSpace(text)
	folded := fold(raw)

	if rel, ok := relativeDays[folded]; ok {
		return DateInput{Date: now.AddDate(0, 0, rel.offset).Format(models.DateLayout), Phrase: rel.label}
	}
	if m := shortDate.FindStringSubmatch(folded); m != nil {
		return DateInput{Date: isoDate(now.Year(), m[2], m[1])}
	}
	if m := fullDate.FindStringSubmatch(folded); m != nil {
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return DateInput{Date: isoDate(year, m[2], m[1])}
	}
	return DateInput{Date: raw}
}

func isoDate(year int, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%04d-%02d-%02d", year, m, d)
}
