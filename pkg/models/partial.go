package models

import (
	"github.com/shopspring/decimal"
)

// Amount is a monetary value that is either absent or present. A present zero
// is a real value and must not be confused with an omitted field.
type Amount struct {
	value   decimal.Decimal
	present bool
}

// Present wraps a value as explicitly supplied.
func Present(v decimal.Decimal) Amount {
	return Amount{value: v, present: true}
}

// PresentInt is a shorthand for whole amounts.
func PresentInt(v int64) Amount {
	return Present(decimal.NewFromInt(v))
}

// Absent is the zero Amount.
func Absent() Amount { return Amount{} }

func (a Amount) IsPresent() bool { return a.present }

// Get returns the value and whether it was supplied.
func (a Amount) Get() (decimal.Decimal, bool) { return a.value, a.present }

// Or returns the value when present, fallback otherwise.
func (a Amount) Or(fallback decimal.Decimal) decimal.Decimal {
	if a.present {
		return a.value
	}
	return fallback
}

// Partial is a candidate record produced by an extractor or a modification
// command. Every field carries its own presence.
type Partial struct {
	Date string // empty when absent
	// DatePhrase is set when Date was resolved from a relative word such as
	// "hier"; such dates are always confirmed with the operator.
	DatePhrase string

	CardActual        Amount
	CashActual        Amount
	MealVoucherActual Amount
	ExpenseActual     Amount

	// TotalActual and Undeclared may be reported by extractors but are never
	// trusted; they are always recomputed.
	TotalActual Amount
	Undeclared  Amount

	TotalDeclared       Amount
	MealVoucherDeclared Amount
	ExpenseDeclared     Amount
}

// PartialFrom turns a record into a candidate. Declared fields are only
// present when the record says they were supplied; derived defaults stay
// absent so they keep following their actual counterparts.
func PartialFrom(r Record) Partial {
	p := Partial{
		Date:              r.Date,
		CardActual:        Present(r.CardActual),
		CashActual:        Present(r.CashActual),
		MealVoucherActual: Present(r.MealVoucherActual),
		ExpenseActual:     Present(r.ExpenseActual),
		TotalActual:       Present(r.TotalActual),
		Undeclared:        Present(r.Undeclared),
	}
	for _, f := range []Field{TotalDeclared, MealVoucherDeclared, ExpenseDeclared} {
		if r.Supplied.Has(f) {
			p.Set(f, r.Value(f))
		}
	}
	return p
}

// Get returns the Amount of a field.
func (p Partial) Get(f Field) Amount {
	switch f {
	case CardActual:
		return p.CardActual
	case CashActual:
		return p.CashActual
	case MealVoucherActual:
		return p.MealVoucherActual
	case ExpenseActual:
		return p.ExpenseActual
	case TotalActual:
		return p.TotalActual
	case TotalDeclared:
		return p.TotalDeclared
	case MealVoucherDeclared:
		return p.MealVoucherDeclared
	case ExpenseDeclared:
		return p.ExpenseDeclared
	case Undeclared:
		return p.Undeclared
	}
	return Absent()
}

// Set assigns a present value to a field.
func (p *Partial) Set(f Field, v decimal.Decimal) {
	a := Present(v)
	switch f {
	case CardActual:
		p.CardActual = a
	case CashActual:
		p.CashActual = a
	case MealVoucherActual:
		p.MealVoucherActual = a
	case ExpenseActual:
		p.ExpenseActual = a
	case TotalActual:
		p.TotalActual = a
	case TotalDeclared:
		p.TotalDeclared = a
	case MealVoucherDeclared:
		p.MealVoucherDeclared = a
	case ExpenseDeclared:
		p.ExpenseDeclared = a
	case Undeclared:
		p.Undeclared = a
	}
}

// IsEmpty reports whether the candidate carries nothing usable.
func (p Partial) IsEmpty() bool {
	if p.Date != "" {
		return false
	}
	for _, f := range []Field{CardActual, CashActual, MealVoucherActual, ExpenseActual, TotalDeclared, MealVoucherDeclared, ExpenseDeclared} {
		if p.Get(f).IsPresent() {
			return false
		}
	}
	return true
}
