package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO layout used for record dates everywhere in the ledger.
const DateLayout = "2006-01-02"

// Field identifies one monetary field of a ledger record.
type Field int

const (
	CardActual Field = iota
	CashActual
	MealVoucherActual
	ExpenseActual
	TotalActual
	TotalDeclared
	MealVoucherDeclared
	ExpenseDeclared
	Undeclared
)

var fieldNames = map[Field]string{
	CardActual:          "card_actual",
	CashActual:          "cash_actual",
	MealVoucherActual:   "meal_voucher_actual",
	ExpenseActual:       "expense_actual",
	TotalActual:         "total_actual",
	TotalDeclared:       "total_declared",
	MealVoucherDeclared: "meal_voucher_declared",
	ExpenseDeclared:     "expense_declared",
	Undeclared:          "undeclared",
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

// FieldSet records which fields were explicitly supplied over a record's history.
type FieldSet uint16

func (s FieldSet) Has(f Field) bool { return s&(1<<uint(f)) != 0 }

func (s FieldSet) With(f Field) FieldSet { return s | (1 << uint(f)) }

// Record is the canonical day-level entry of the ledger. One is kept in progress
// per chat session and one is persisted per calendar day.
type Record struct {
	Date string `json:"date"` // YYYY-MM-DD, validated separately

	CardActual        decimal.Decimal `json:"card_actual"`
	CashActual        decimal.Decimal `json:"cash_actual"`
	MealVoucherActual decimal.Decimal `json:"meal_voucher_actual"`
	ExpenseActual     decimal.Decimal `json:"expense_actual"`
	TotalActual       decimal.Decimal `json:"total_actual"`

	TotalDeclared       decimal.Decimal `json:"total_declared"`
	MealVoucherDeclared decimal.Decimal `json:"meal_voucher_declared"`
	ExpenseDeclared     decimal.Decimal `json:"expense_declared"`

	Undeclared decimal.Decimal `json:"undeclared"`

	// Supplied tracks the declared fields the operator gave explicitly, so the
	// defaults are only derived for fields never supplied during the session.
	Supplied FieldSet `json:"supplied"`
}

// NewRecord returns an empty record dated on the given day.
func NewRecord(day time.Time) Record {
	return Record{Date: day.Format(DateLayout)}
}

// Day parses the record date.
func (r Record) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Recompute derives TotalActual and Undeclared from the component fields.
func (r Record) Recompute() Record {
	r.TotalActual = r.CardActual.Add(r.CashActual).Add(r.MealVoucherActual).Add(r.ExpenseActual)
	r.Undeclared = r.TotalActual.Sub(r.TotalDeclared)
	return r
}

// HasActuals reports whether any actual figure is non-zero.
func (r Record) HasActuals() bool {
	return !r.CardActual.IsZero() || !r.CashActual.IsZero() ||
		!r.MealVoucherActual.IsZero() || !r.ExpenseActual.IsZero()
}

// IsEmpty reports whether the day carries no figure at all.
func (r Record) IsEmpty() bool {
	return !r.HasActuals() && r.TotalDeclared.IsZero()
}

// CardDeclared is always the actual card figure: card payments are traceable.
func (r Record) CardDeclared() decimal.Decimal {
	return r.CardActual
}

// CashDeclared is whatever remains of the declared total once card, meal
// vouchers and expenses are accounted for.
func (r Record) CashDeclared() decimal.Decimal {
	return r.TotalDeclared.Sub(r.CardDeclared()).Sub(r.MealVoucherDeclared).Sub(r.ExpenseDeclared)
}

// Equal compares every persisted figure and the date.
func (r Record) Equal(o Record) bool {
	return r.Date == o.Date &&
		r.CardActual.Equal(o.CardActual) &&
		r.CashActual.Equal(o.CashActual) &&
		r.MealVoucherActual.Equal(o.MealVoucherActual) &&
		r.ExpenseActual.Equal(o.ExpenseActual) &&
		r.TotalActual.Equal(o.TotalActual) &&
		r.TotalDeclared.Equal(o.TotalDeclared) &&
		r.MealVoucherDeclared.Equal(o.MealVoucherDeclared) &&
		r.ExpenseDeclared.Equal(o.ExpenseDeclared) &&
		r.Undeclared.Equal(o.Undeclared)
}

// Value returns the amount held in the given field.
func (r Record) Value(f Field) decimal.Decimal {
	switch f {
	case CardActual:
		return r.CardActual
	case CashActual:
		return r.CashActual
	case MealVoucherActual:
		return r.MealVoucherActual
	case ExpenseActual:
		return r.ExpenseActual
	case TotalActual:
		return r.TotalActual
	case TotalDeclared:
		return r.TotalDeclared
	case MealVoucherDeclared:
		return r.MealVoucherDeclared
	case ExpenseDeclared:
		return r.ExpenseDeclared
	case Undeclared:
		return r.Undeclared
	}
	return decimal.Zero
}

// Persisted returns a copy suitable for a store: loaded records carry their
// declared figures as explicitly supplied.
func (r Record) Persisted() Record {
	r.Supplied = r.Supplied.With(TotalDeclared).With(MealVoucherDeclared).With(ExpenseDeclared)
	return r
}
