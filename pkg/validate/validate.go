// Package validate checks candidate ledger records for structural validity.
// It never mutates its input: errors block progression, warnings only need
// to be acknowledged.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

// Limits bounds what the validator accepts.
type Limits struct {
	MinYear   int
	MaxYear   int
	MaxAmount decimal.Decimal
}

// DefaultLimits mirrors the values the bot has always shipped with.
func DefaultLimits() Limits {
	return Limits{MinYear: 2024, MaxYear: 2027, MaxAmount: decimal.NewFromInt(50000)}
}

// Result separates blocking errors from advisory warnings.
type Result struct {
	Errors   []*models.ValidationError
	Warnings []*models.ValidationWarning
}

// OK reports whether the record can progress (warnings allowed).
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Clean reports whether there is nothing to report at all.
func (r Result) Clean() bool { return len(r.Errors) == 0 && len(r.Warnings) == 0 }

type Validator struct {
	limits Limits
}

func New(limits Limits) *Validator {
	return &Validator{limits: limits}
}

func (v *Validator) Limits() Limits { return v.limits }

var isoDate = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

// Date checks that an ISO date parses, lies within the configured year range
// and exists in the calendar. It returns nil when the date is valid.
func (v *Validator) Date(date string) *models.ValidationError {
	m := isoDate.FindStringSubmatch(date)
	if m == nil {
		return &models.ValidationError{Field: "date", Message: "Cette date n'est pas valide."}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	if year < v.limits.MinYear {
		return &models.ValidationError{Field: "date", Message: fmt.Sprintf("Année trop ancienne. Minimum : %d", v.limits.MinYear)}
	}
	if year > v.limits.MaxYear {
		return &models.ValidationError{Field: "date", Message: fmt.Sprintf("Année trop loin dans le futur. Maximum : %d", v.limits.MaxYear)}
	}

	// time.Date normalises overflow (Feb 30 becomes Mar 2); a changed month
	// or day means the combination does not exist.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(t.Month()) != month || t.Day() != day {
		return &models.ValidationError{Field: "date", Message: "Cette date n'existe pas."}
	}
	return nil
}

// Amounts checks the monetary fields of a record.
func (v *Validator) Amounts(r models.Record) Result {
	var res Result

	negatives := []struct {
		field models.Field
		label string
	}{
		{models.CardActual, "CB"},
		{models.CashActual, "Espèces"},
		{models.MealVoucherActual, "TR"},
		{models.ExpenseActual, "Dépense"},
		{models.TotalDeclared, "Total déclaré"},
		{models.MealVoucherDeclared, "TR déclaré"},
		{models.ExpenseDeclared, "Dépense déclarée"},
	}
	for _, n := range negatives {
		if r.Value(n.field).IsNegative() {
			res.Errors = append(res.Errors, &models.ValidationError{
				Field:   n.field.String(),
				Message: n.label + " ne peut pas être négatif",
			})
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	r = r.Recompute()
	ceiling := v.limits.MaxAmount
	for _, f := range []struct {
		field models.Field
		label string
	}{
		{models.CardActual, "CB"},
		{models.CashActual, "Espèces"},
		{models.MealVoucherActual, "TR"},
		{models.ExpenseActual, "Dépense"},
	} {
		if val := r.Value(f.field); val.GreaterThan(ceiling) {
			res.Warnings = append(res.Warnings, &models.ValidationWarning{
				Field:   f.field.String(),
				Message: fmt.Sprintf("%s très élevé : %s", f.label, models.FormatEUR(val)),
			})
		}
	}
	if r.TotalActual.GreaterThan(ceiling.Mul(decimal.NewFromInt(2))) {
		res.Warnings = append(res.Warnings, &models.ValidationWarning{
			Field:   models.TotalActual.String(),
			Message: fmt.Sprintf("Total réel très élevé : %s", models.FormatEUR(r.TotalActual)),
		})
	}
	if r.TotalDeclared.GreaterThan(r.TotalActual) {
		res.Warnings = append(res.Warnings, &models.ValidationWarning{
			Field:   models.TotalDeclared.String(),
			Message: "Total déclaré > Total réel",
		})
	}
	if !r.HasActuals() {
		res.Warnings = append(res.Warnings, &models.ValidationWarning{
			Message: "Tous les montants sont à 0",
		})
	}
	return res
}

// Record runs both the date and amount checks.
func (v *Validator) Record(r models.Record) Result {
	res := v.Amounts(r)
	if err := v.Date(r.Date); err != nil {
		res.Errors = append([]*models.ValidationError{err}, res.Errors...)
	}
	return res
}

// Timing places a date relative to the processing day.
type Timing int

const (
	Today Timing = iota
	Past
	Future
)

// Classify compares an ISO date with the calendar day of now. The date must
// already be valid.
func Classify(date string, now time.Time) Timing {
	today := now.Format(models.DateLayout)
	switch {
	case date < today:
		return Past
	case date > today:
		return Future
	default:
		return Today
	}
}
