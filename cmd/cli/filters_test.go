package main

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

func TestFilters(t *testing.T) {
	r := models.Record{Date: "2025-06-10", CardActual: decimal.NewFromInt(500), TotalDeclared: decimal.NewFromInt(500)}.Recompute()
	tests := []struct {
		name string
		f    filters
		want bool
	}{
		{"no filter", filters{}, true},
		{"inside range", filters{startDate: "2025-06-01", endDate: "2025-06-30"}, true},
		{"before start", filters{startDate: "2025-06-11"}, false},
		{"after end", filters{endDate: "2025-06-09"}, false},
		{"below min", filters{minAmount: 600}, false},
		{"above max", filters{maxAmount: 400}, false},
		{"fully declared", filters{undeclaredOnly: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.toFilterFunc()(r); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
