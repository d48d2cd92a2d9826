package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/validate"
)

// Server exposes read-only views of the ledger over HTTP.
type Server struct {
	ledger    ledger.Store
	reports   report.Generator
	validator *validate.Validator
	logger    *log.Logger
	router    *mux.Router
}

// New creates a new HTTP server
func New(store ledger.Store, reports report.Generator, validator *validate.Validator, logger *log.Logger) *Server {
	s := &Server{
		ledger:    store,
		reports:   reports,
		validator: validator,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.withLogging)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/recap/{month}", s.handleRecap).Methods(http.MethodGet)
	api.HandleFunc("/report/{month}", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/days/{date}", s.handleDay).Methods(http.MethodGet)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer builds the listener-facing server for addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) month(w http.ResponseWriter, r *http.Request) (models.Month, bool) {
	month, err := models.ParseMonth(mux.Vars(r)["month"])
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "month must be YYYY-MM", err)
		return models.Month{}, false
	}
	return month, true
}

func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	month, ok := s.month(w, r)
	if !ok {
		return
	}
	rc, records, err := ledger.Recap(r.Context(), s.ledger, month)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to read ledger", err)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"month":  month.String(),
		"label":  month.Label(),
		"recap":  rc,
		"days":   records,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month, ok := s.month(w, r)
	if !ok {
		return
	}
	rc, records, err := ledger.Recap(r.Context(), s.ledger, month)
	if err != nil {
		s.respondError(w, r, http.StatusBadGateway, "failed to read ledger", err)
		return
	}
	data, err := s.reports.Render(month, records, rc)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to render report", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", report.Filename(month)))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write pdf response", "err", err)
	}
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if verr := s.validator.Date(date); verr != nil {
		s.respondError(w, r, http.StatusBadRequest, verr.Message, nil)
		return
	}
	rec, err := s.ledger.ReadDay(r.Context(), date)
	var se *models.StoreError
	switch {
	case errors.As(err, &se):
		s.respondError(w, r, http.StatusBadGateway, "failed to read ledger", err)
		return
	case err != nil:
		s.respondError(w, r, http.StatusInternalServerError, "failed to read ledger", err)
		return
	case rec == nil:
		s.respondError(w, r, http.StatusNotFound, "no entry for this day", nil)
		return
	}
	if err := s.writeJSON(w, http.StatusOK, map[string]any{"status": "success", "day": rec}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging logs each request and recovers panics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
