package main

import (
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/csv"
	"github.com/yurifrl/compta/pkg/models"
)

type filters struct {
	startDate      string
	endDate        string
	minAmount      float64
	maxAmount      float64
	undeclaredOnly bool
}

// toFilterFunc keeps the days within the date range whose actual total is
// within the amount range. Dates are ISO so they compare as strings.
func (f *filters) toFilterFunc() csv.FilterFunc {
	return func(r models.Record) bool {
		if f.startDate != "" && r.Date < f.startDate {
			return false
		}
		if f.endDate != "" && r.Date > f.endDate {
			return false
		}
		if f.minAmount != 0 && r.TotalActual.LessThan(decimal.NewFromFloat(f.minAmount)) {
			return false
		}
		if f.maxAmount != 0 && r.TotalActual.GreaterThan(decimal.NewFromFloat(f.maxAmount)) {
			return false
		}
		if f.undeclaredOnly && r.Undeclared.IsZero() {
			return false
		}
		return true
	}
}
