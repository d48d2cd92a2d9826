package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Recap aggregates one month of persisted records. It is never stored and is
// always recomputed from the ledger.
type Recap struct {
	Month Month `json:"month"`

	TotalCard        decimal.Decimal `json:"total_card"`
	TotalCash        decimal.Decimal `json:"total_cash"`
	TotalMealVoucher decimal.Decimal `json:"total_meal_voucher"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	TotalActual      decimal.Decimal `json:"total_actual"`

	CardDeclared        decimal.Decimal `json:"card_declared"`
	CashDeclared        decimal.Decimal `json:"cash_declared"`
	MealVoucherDeclared decimal.Decimal `json:"meal_voucher_declared"`
	ExpenseDeclared     decimal.Decimal `json:"expense_declared"`
	TotalDeclared       decimal.Decimal `json:"total_declared"`

	TotalUndeclared decimal.Decimal `json:"total_undeclared"`

	DaysFilled int `json:"days_filled"`
}

// Summarize computes the recap of the records falling in month. Empty days and
// records from other months are ignored.
func Summarize(month Month, records []Record) Recap {
	rc := Recap{Month: month}
	for _, r := range records {
		if !month.Contains(r.Date) || r.IsEmpty() {
			continue
		}
		r = r.Recompute()
		rc.TotalCard = rc.TotalCard.Add(r.CardActual)
		rc.TotalCash = rc.TotalCash.Add(r.CashActual)
		rc.TotalMealVoucher = rc.TotalMealVoucher.Add(r.MealVoucherActual)
		rc.TotalExpense = rc.TotalExpense.Add(r.ExpenseActual)
		rc.TotalActual = rc.TotalActual.Add(r.TotalActual)

		rc.CardDeclared = rc.CardDeclared.Add(r.CardDeclared())
		rc.CashDeclared = rc.CashDeclared.Add(r.CashDeclared())
		rc.MealVoucherDeclared = rc.MealVoucherDeclared.Add(r.MealVoucherDeclared)
		rc.ExpenseDeclared = rc.ExpenseDeclared.Add(r.ExpenseDeclared)
		rc.TotalDeclared = rc.TotalDeclared.Add(r.TotalDeclared)

		rc.TotalUndeclared = rc.TotalUndeclared.Add(r.Undeclared)
		rc.DaysFilled++
	}
	return rc
}

// SortByDate orders records chronologically in place.
func SortByDate(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })
}
