// Package csv exports ledger records in the column order of the workbook.
package csv

import (
	"bytes"
	"encoding/csv"

	"github.com/yurifrl/compta/pkg/models"
)

type FilterFunc func(models.Record) bool

var header = []string{
	"Date", "CB", "Espèces", "TR", "Dépenses", "Total réel",
	"Total déclaré", "TR déclaré", "Dépenses déclarées", "CB déclaré", "Espèces déclarées", "Non déclaré",
}

// Create renders the records that pass filter, amounts as plain decimals.
func Create(records []models.Record, filter FilterFunc) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		line := []string{
			r.Date,
			r.CardActual.StringFixed(2),
			r.CashActual.StringFixed(2),
			r.MealVoucherActual.StringFixed(2),
			r.ExpenseActual.StringFixed(2),
			r.TotalActual.StringFixed(2),
			r.TotalDeclared.StringFixed(2),
			r.MealVoucherDeclared.StringFixed(2),
			r.ExpenseDeclared.StringFixed(2),
			r.CardDeclared().StringFixed(2),
			r.CashDeclared().StringFixed(2),
			r.Undeclared.StringFixed(2),
		}
		if err := w.Write(line); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
