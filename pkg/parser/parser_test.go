package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

var now = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

func assertAmount(t *testing.T, p models.Partial, f models.Field, want string) {
	t.Helper()
	got, ok := p.Get(f).Get()
	if want == "" {
		if ok {
			t.Errorf("%s: expected absent, got %s", f, got)
		}
		return
	}
	if !ok {
		t.Errorf("%s: expected %s, got absent", f, want)
		return
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", f, want, got)
	}
}

func TestParseFullReport(t *testing.T) {
	p, err := New().Parse("CB 1000 ESP 500 TR 100 dépense 50 total déclaré 1200", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assertAmount(t, p, models.CardActual, "1000")
	assertAmount(t, p, models.CashActual, "500")
	assertAmount(t, p, models.MealVoucherActual, "100")
	assertAmount(t, p, models.ExpenseActual, "50")
	assertAmount(t, p, models.TotalDeclared, "1200")
	assertAmount(t, p, models.MealVoucherDeclared, "")
	assertAmount(t, p, models.ExpenseDeclared, "")
	if p.Date != "" {
		t.Errorf("expected no date, got %q", p.Date)
	}
}

func TestParseDeclaredQualifiers(t *testing.T) {
	p, err := New().Parse("CB 1000 ESP 500 TR 100 dépense 50 total déclaré 1200 TR déclaré 50 dépense déclarée 20", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assertAmount(t, p, models.MealVoucherActual, "100")
	assertAmount(t, p, models.MealVoucherDeclared, "50")
	assertAmount(t, p, models.ExpenseActual, "50")
	assertAmount(t, p, models.ExpenseDeclared, "20")
	assertAmount(t, p, models.TotalDeclared, "1200")
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		text  string
		field models.Field
		want  string
	}{
		{"cb 1200", models.CardActual, "1200"},
		{"cb: 1200", models.CardActual, "1200"},
		{"cb1200", models.CardActual, "1200"},
		{"Carte bleue 850,50", models.CardActual, "850.50"},
		{"1200€ cb", models.CardActual, "1200"},
		{"espèces 300", models.CashActual, "300"},
		{"liquide 300", models.CashActual, "300"},
		{"ticket restaurant 45", models.MealVoucherActual, "45"},
		{"déclaré 900", models.TotalDeclared, "900"},
		{"cb 0", models.CardActual, "0"},
		{"cb 500 carte 200", models.CardActual, "700"},
		{"CB 1.200 ESP 450", models.CardActual, "1200"},
		{"CB 1.200 ESP 450", models.CashActual, "450"},
		{"CB 1 200 ESP 450", models.CardActual, "1200"},
		{"CB 1 200 ESP 450", models.CashActual, "450"},
		{"CB 1.200,50", models.CardActual, "1200.50"},
		{"CB 12 500,25€", models.CardActual, "12500.25"},
		{"CB 1.2005", models.CardActual, "1.2005"},
		{"cb 12.50", models.CardActual, "12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p, err := New().Parse(tt.text, now)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.text, err)
			}
			assertAmount(t, p, tt.field, tt.want)
		})
	}
}

func TestParseAmbiguousGrouping(t *testing.T) {
	for _, text := range []string{"cb 100 200", "cb 1 200 500", "cb 1 200.50"} {
		if _, err := New().Parse(text, now); !errors.Is(err, ErrNoAmounts) {
			t.Errorf("Parse(%q): expected ErrNoAmounts, got %v", text, err)
		}
	}
}

func TestParseNumberFirst(t *testing.T) {
	p, err := New().Parse("1000 cb 500 espèces", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assertAmount(t, p, models.CardActual, "1000")
	assertAmount(t, p, models.CashActual, "500")
}

func TestParseDates(t *testing.T) {
	p, err := New().Parse("hier CB 400", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Date != "2025-06-09" || p.DatePhrase != "hier" {
		t.Errorf("expected yesterday from a phrase, got %q (%q)", p.Date, p.DatePhrase)
	}

	p, err = New().Parse("le 03/06 cb 400", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Date != "2025-06-03" || p.DatePhrase != "" {
		t.Errorf("expected an absolute date, got %q (%q)", p.Date, p.DatePhrase)
	}
	assertAmount(t, p, models.CardActual, "400")
}

func TestParseNothing(t *testing.T) {
	_, err := New().Parse("bonjour", now)
	if !errors.Is(err, ErrNoAmounts) {
		t.Errorf("expected ErrNoAmounts, got %v", err)
	}
}

func TestWithKeywords(t *testing.T) {
	p, err := New(WithKeywords(map[string]string{"Sodexo": "tr", "bogus": "nope"})).Parse("sodexo 30 bogus 10", now)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	assertAmount(t, p, models.MealVoucherActual, "30")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		text   string
		date   string
		phrase string
	}{
		{"hier", "2025-06-09", "hier"},
		{"Demain", "2025-06-11", "demain"},
		{"aujourd'hui", "2025-06-10", "aujourd'hui"},
		{"aujourd’hui", "2025-06-10", "aujourd'hui"},
		{"avant-hier", "2025-06-08", "avant-hier"},
		{"avant hier", "2025-06-08", "avant-hier"},
		{"15/01", "2025-01-15", ""},
		{"15/01/26", "2026-01-15", ""},
		{"15/01/2026", "2026-01-15", ""},
		{"2025-06-01", "2025-06-01", ""},
		{"n'importe quoi", "n'importe quoi", ""},
	}
	for _, tt := range tests {
		got := ParseDate(tt.text, now)
		if got.Date != tt.date || got.Phrase != tt.phrase {
			t.Errorf("ParseDate(%q) = %+v, want date %q phrase %q", tt.text, got, tt.date, tt.phrase)
		}
		if got.Relative() != (tt.phrase != "") {
			t.Errorf("ParseDate(%q).Relative() mismatch", tt.text)
		}
	}
}
