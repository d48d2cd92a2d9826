package csv

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

func TestCreate(t *testing.T) {
	records := []models.Record{
		models.Record{Date: "2025-06-01", CardActual: decimal.RequireFromString("1200.5"), CashActual: decimal.NewFromInt(150), TotalDeclared: decimal.NewFromInt(1300)}.Recompute(),
		models.Record{Date: "2025-06-02", CashActual: decimal.NewFromInt(10)}.Recompute(),
	}

	out, err := Create(records, func(r models.Record) bool { return r.CardActual.IsPositive() })
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", out)
	}
	want := "2025-06-01,1200.50,150.00,0.00,0.00,1350.50,1300.00,0.00,0.00,1200.50,99.50,50.50"
	if lines[1] != want {
		t.Errorf("row = %q\nwant %q", lines[1], want)
	}
}

func TestCreateWithoutFilter(t *testing.T) {
	out, err := Create([]models.Record{{Date: "2025-06-01"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "Date,CB,") || strings.Count(string(out), "\n") != 2 {
		t.Errorf("unexpected output %q", out)
	}
}
