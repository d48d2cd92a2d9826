package extract

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
)

var now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type stubExtractor struct {
	calls int
	out   models.Partial
	err   error
}

func (s *stubExtractor) Extract(context.Context, Input, *models.Record, time.Time) (models.Partial, error) {
	s.calls++
	return s.out, s.err
}

func TestDecodeDraft(t *testing.T) {
	answer := "```json\n{\"date\": \"2025-06-09\", \"date_phrase\": \"hier\", \"cb\": 1000, \"espece\": 0, \"ticket_restaurant\": null, \"total_declare\": 900}\n```"
	d, err := DecodeDraft(answer)
	if err != nil {
		t.Fatalf("DecodeDraft failed: %v", err)
	}
	p := d.Partial()

	if p.Date != "2025-06-09" || p.DatePhrase != "hier" {
		t.Errorf("unexpected date %q / %q", p.Date, p.DatePhrase)
	}
	if v, ok := p.CardActual.Get(); !ok || !v.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected card 1000, got %v %v", v, ok)
	}
	if v, ok := p.CashActual.Get(); !ok || !v.IsZero() {
		t.Errorf("explicit zero cash must stay present, got %v %v", v, ok)
	}
	if p.MealVoucherActual.IsPresent() {
		t.Error("null meal vouchers must be absent")
	}
	if p.ExpenseActual.IsPresent() {
		t.Error("missing expense must be absent")
	}
}

func TestDecodeDraftGarbage(t *testing.T) {
	if _, err := DecodeDraft("désolé, je ne peux pas"); err == nil {
		t.Error("expected an error")
	}
}

func TestChainPrefersGrammar(t *testing.T) {
	fallback := &stubExtractor{}
	c := NewChain(parser.New(), fallback, DefaultLimits(), log.New(io.Discard))

	p, err := c.Extract(context.Background(), Input{Kind: KindText, Text: "cb 1200"}, nil, now)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !p.CardActual.IsPresent() {
		t.Error("expected card from grammar")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback should not be called, got %d calls", fallback.calls)
	}
}

func TestChainFallsBack(t *testing.T) {
	fallback := &stubExtractor{out: models.Partial{CashActual: models.PresentInt(40)}}
	c := NewChain(parser.New(), fallback, DefaultLimits(), log.New(io.Discard))

	if _, err := c.Extract(context.Background(), Input{Kind: KindText, Text: "quarante balles en liquide"}, nil, now); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if _, err := c.Extract(context.Background(), Input{Kind: KindImage, MIMEType: "image/jpeg", Data: []byte{1}, Size: 1}, nil, now); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if fallback.calls != 2 {
		t.Errorf("expected 2 fallback calls, got %d", fallback.calls)
	}
}

func TestChainWithoutFallback(t *testing.T) {
	c := NewChain(parser.New(), nil, DefaultLimits(), log.New(io.Discard))

	_, err := c.Extract(context.Background(), Input{Kind: KindAudio, MIMEType: "audio/ogg", Size: 10}, nil, now)
	var xerr *models.ExtractionError
	if !errors.As(err, &xerr) || xerr.Modality != "audio" {
		t.Errorf("expected an audio ExtractionError, got %v", err)
	}
}

func TestLimits(t *testing.T) {
	l := DefaultLimits()
	tests := []struct {
		name string
		in   Input
		ok   bool
	}{
		{"text", Input{Kind: KindText, Text: "cb 10"}, true},
		{"small photo", Input{Kind: KindImage, MIMEType: "image/png", Size: 1 << 20}, true},
		{"huge photo", Input{Kind: KindImage, MIMEType: "image/png", Size: 21 << 20}, false},
		{"pdf", Input{Kind: KindImage, MIMEType: "application/pdf", Size: 100}, false},
		{"short audio", Input{Kind: KindAudio, MIMEType: "audio/ogg", Duration: time.Minute}, true},
		{"long audio", Input{Kind: KindAudio, MIMEType: "audio/ogg", Duration: 4 * time.Minute}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Check(tt.in)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected a rejection")
			}
		})
	}
}
