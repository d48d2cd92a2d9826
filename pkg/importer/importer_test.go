package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/validate"
)

func newImporter() *Importer {
	return New(validate.New(validate.DefaultLimits()), log.New(io.Discard))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		header string
		kind   column
		field  models.Field
	}{
		{"Date", colDate, 0},
		{"CB", colField, models.CardActual},
		{"Carte bleue", colField, models.CardActual},
		{"Espèces", colField, models.CashActual},
		{"TR", colField, models.MealVoucherActual},
		{"Dépenses", colField, models.ExpenseActual},
		{"Total réel", colSkip, 0},
		{"Total déclaré", colField, models.TotalDeclared},
		{"TR déclaré", colField, models.MealVoucherDeclared},
		{"Dép. déclarée", colField, models.ExpenseDeclared},
		{"Non déclaré", colSkip, 0},
		{"Commentaire", colSkip, 0},
	}
	for _, tt := range tests {
		kind, field := classify(tt.header)
		if kind != tt.kind || (kind == colField && field != tt.field) {
			t.Errorf("classify(%q) = %v %v, want %v %v", tt.header, kind, field, tt.kind, tt.field)
		}
	}
}

func TestReadCSV(t *testing.T) {
	data := []byte("Recettes juin;;;\n" +
		"Date;CB;Espèces;TR;Total déclaré\n" +
		"01/06/2025;1 200,50;300;50;1400\n" +
		"02/06/2025;;;;\n" +
		"2025-06-03;800;abc;0;\n" +
		"31/02/2025;100;0;0;100\n" +
		"TOTAL;2000;300;50;1500\n")

	rows, err := newImporter().Read(data, "juin.csv", "")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}

	first := rows[0]
	if first.Err != nil || first.Record.Date != "2025-06-01" || first.Line != 3 {
		t.Fatalf("unexpected first row %+v", first)
	}
	if !first.Record.CardActual.Equal(decimal.RequireFromString("1200.50")) {
		t.Errorf("expected French decimal amount, got %s", first.Record.CardActual)
	}
	if !first.Record.Undeclared.Equal(decimal.RequireFromString("150.50")) {
		t.Errorf("expected undeclared 150.50, got %s", first.Record.Undeclared)
	}

	if rows[1].Err == nil {
		t.Error("unreadable amount should be reported")
	}
	if rows[2].Err == nil {
		t.Error("impossible date should be reported")
	}
}

func TestReadLedgerWorkbook(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	wb, err := ledger.OpenWorkbook(path, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	r := models.Record{
		Date:                "2025-06-10",
		CardActual:          decimal.NewFromInt(1000),
		MealVoucherActual:   decimal.NewFromInt(100),
		TotalDeclared:       decimal.NewFromInt(900),
		MealVoucherDeclared: decimal.NewFromInt(80),
	}.Recompute()
	if err := wb.WriteDay(ctx, r.Date, r); err != nil {
		t.Fatal(err)
	}
	wb.Close()

	rows, err := newImporter().ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one day, got %+v", rows)
	}
	got := rows[0]
	if got.Sheet != "Juin 2025" || got.Err != nil {
		t.Errorf("unexpected row %+v", got)
	}
	if !got.Record.Equal(r) {
		t.Errorf("import mismatch:\nwant %+v\ngot  %+v", r, got.Record)
	}
}

func TestReadRejectsUnknownFiles(t *testing.T) {
	if _, err := newImporter().Read([]byte("x"), "notes.txt", ""); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
	path := filepath.Join(t.TempDir(), "empty.csv")
	_ = os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600)
	if _, err := newImporter().ReadFile(path, ""); err == nil {
		t.Error("expected an error when no header matches")
	}
}
