package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/validate"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	store := ledger.NewMemoryStore()
	r := models.Record{Date: "2025-06-10", CardActual: decimal.NewFromInt(800), CashActual: decimal.NewFromInt(200), TotalDeclared: decimal.NewFromInt(900)}.Recompute()
	if err := store.WriteDay(context.Background(), r.Date, r); err != nil {
		t.Fatal(err)
	}
	pdf := &report.PDF{Author: "test", Now: func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }}
	return New(store, pdf, validate.New(validate.DefaultLimits()), log.New(io.Discard))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/recap/2025-06", http.StatusOK},
		{"/api/recap/june", http.StatusBadRequest},
		{"/api/report/2025-06", http.StatusOK},
		{"/api/days/2025-06-10", http.StatusOK},
		{"/api/days/2025-06-11", http.StatusNotFound},
		{"/api/days/2025-02-30", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := get(t, s, tt.path); rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d (%s)", tt.path, rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestRecapBody(t *testing.T) {
	rec := get(t, newServer(t), "/api/recap/2025-06")
	var body struct {
		Label string       `json:"label"`
		Recap models.Recap `json:"recap"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Label != "Juin 2025" || body.Recap.DaysFilled != 1 || !body.Recap.TotalUndeclared.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected recap %+v", body)
	}
}

func TestReportIsPDF(t *testing.T) {
	rec := get(t, newServer(t), "/api/report/2025-06")
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}
