package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
)

func TestRender(t *testing.T) {
	june := models.Month{Year: 2025, Month: 6}
	records := []models.Record{
		models.Record{
			Date:          "2025-06-05",
			CardActual:    decimal.NewFromInt(1000),
			CashActual:    decimal.NewFromInt(500),
			TotalDeclared: decimal.NewFromInt(1200),
		}.Recompute(),
	}
	p := &PDF{Author: "compta", Now: func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }}

	out, err := p.Render(june, records, models.Summarize(june, records))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("expected a PDF, got %q", out[:8])
	}
}

func TestRenderEmptyMonth(t *testing.T) {
	june := models.Month{Year: 2025, Month: 6}
	out, err := New("compta").Render(june, nil, models.Summarize(june, nil))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected a document even for an empty month")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(models.Month{Year: 2025, Month: 6}); got != "compta_2025-06.pdf" {
		t.Errorf("unexpected filename %q", got)
	}
}
