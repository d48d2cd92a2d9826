// Package reconcile merges a freshly extracted or partial record into the
// record already held for a session (or loaded from the ledger). It is pure
// and stateless so the conversation, the importer and the CLI share it.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

var actualFields = []models.Field{
	models.CardActual,
	models.CashActual,
	models.MealVoucherActual,
	models.ExpenseActual,
}

var declaredFields = []models.Field{
	models.TotalDeclared,
	models.MealVoucherDeclared,
	models.ExpenseDeclared,
}

// Reconcile merges candidate into existing (nil for a blank record).
//
//   - A present candidate field overrides, including an explicit zero; an
//     absent one keeps the existing value.
//   - Declared fields never supplied during the record's history default to
//     their actual counterpart (meal vouchers), zero (expenses) or the actual
//     total (total declared).
//   - TotalActual and Undeclared are always recomputed, whatever the candidate
//     says about them.
func Reconcile(candidate models.Partial, existing *models.Record) models.Record {
	var out models.Record
	if existing != nil {
		out = *existing
	}
	if candidate.Date != "" {
		out.Date = candidate.Date
	}

	for _, f := range actualFields {
		set(&out, f, candidate.Get(f).Or(out.Value(f)))
	}
	for _, f := range declaredFields {
		if v, ok := candidate.Get(f).Get(); ok {
			set(&out, f, v)
			out.Supplied = out.Supplied.With(f)
		}
	}

	out = out.Recompute()
	if !out.Supplied.Has(models.MealVoucherDeclared) {
		out.MealVoucherDeclared = out.MealVoucherActual
	}
	if !out.Supplied.Has(models.ExpenseDeclared) {
		out.ExpenseDeclared = decimal.Zero
	}
	if !out.Supplied.Has(models.TotalDeclared) {
		out.TotalDeclared = out.TotalActual
	}
	return out.Recompute()
}

func set(r *models.Record, f models.Field, v decimal.Decimal) {
	switch f {
	case models.CardActual:
		r.CardActual = v
	case models.CashActual:
		r.CashActual = v
	case models.MealVoucherActual:
		r.MealVoucherActual = v
	case models.ExpenseActual:
		r.ExpenseActual = v
	case models.TotalDeclared:
		r.TotalDeclared = v
	case models.MealVoucherDeclared:
		r.MealVoucherDeclared = v
	case models.ExpenseDeclared:
		r.ExpenseDeclared = v
	}
}

// Change describes one field that differs between two records.
type Change struct {
	Field  models.Field
	Before decimal.Decimal
	After  decimal.Decimal
}

// Diff lists the monetary fields that differ between before and after, in
// field order. Dates are compared by the caller.
func Diff(before, after models.Record) []Change {
	var changes []Change
	for f := models.CardActual; f <= models.Undeclared; f++ {
		b, a := before.Value(f), after.Value(f)
		if !b.Equal(a) {
			changes = append(changes, Change{Field: f, Before: b, After: a})
		}
	}
	return changes
}
