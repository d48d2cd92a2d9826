// Package service builds every component from configuration and runs the
// daemon: Telegram polling, the HTTP API and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/compta/pkg/bot"
	"github.com/yurifrl/compta/pkg/config"
	"github.com/yurifrl/compta/pkg/events"
	"github.com/yurifrl/compta/pkg/extract"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/parser"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/scheduler"
	"github.com/yurifrl/compta/pkg/server"
	"github.com/yurifrl/compta/pkg/session"
	"github.com/yurifrl/compta/pkg/telegram"
	"github.com/yurifrl/compta/pkg/validate"
	"github.com/yurifrl/compta/pkg/ynab"
)

type Service struct {
	Config    *config.Config
	Ledger    ledger.Store
	Sessions  session.Store
	Validator *validate.Validator
	Reports   report.Generator
	Machine   *bot.Machine

	logger  *log.Logger
	closers []func() error
}

// OpenLedger opens the configured ledger backend. The returned closer is
// never nil.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (ledger.Store, func() error, error) {
	switch cfg.Ledger.Backend {
	case "postgres":
		s, err := ledger.OpenPostgres(ctx, cfg.Ledger.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "memory":
		return ledger.NewMemoryStore(), func() error { return nil }, nil
	default:
		s, err := ledger.OpenWorkbook(cfg.Ledger.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// New builds the service. Optional integrations (Gemini, Kafka, YNAB) are
// only wired when configured.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, error) {
	s := &Service{
		Config:    cfg,
		Validator: validate.New(cfg.ValidatorLimits()),
		Reports:   report.New("compta"),
		logger:    logger,
	}

	store, closeLedger, err := OpenLedger(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	s.Ledger = store
	s.closers = append(s.closers, closeLedger)

	switch cfg.Session.Backend {
	case "postgres":
		ps, err := session.NewPostgresStore(ctx, cfg.Session.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		s.Sessions = ps
		s.closers = append(s.closers, func() error { ps.Close(); return nil })
	default:
		s.Sessions = session.NewMemoryStore()
	}

	var fallback extract.Extractor
	if cfg.Gemini.APIKey != "" {
		g, err := extract.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger.WithPrefix("gemini"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		fallback = g
		s.closers = append(s.closers, g.Close)
	} else {
		logger.Warn("gemini.api_key not set, only typed amounts will be understood")
	}
	extractor := extract.NewChain(parser.New(), fallback, cfg.MediaLimits(), logger.WithPrefix("extract"))

	var hooks []bot.CommitHook
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.WithPrefix("events"))
		hooks = append(hooks, pub)
		s.closers = append(s.closers, pub.Close)
	}
	if cfg.YNAB.Token != "" && cfg.YNAB.BudgetID != "" && cfg.YNAB.AccountID != "" {
		hooks = append(hooks, ynab.NewMirror(ynab.New(cfg.YNAB.Token), cfg.YNAB.BudgetID, cfg.YNAB.AccountID, logger.WithPrefix("ynab")))
	}

	s.Machine = bot.New(bot.Deps{
		Sessions:   s.Sessions,
		Ledger:     s.Ledger,
		Extractor:  extractor,
		Validator:  s.Validator,
		Reports:    s.Reports,
		Hooks:      hooks,
		Logger:     logger.WithPrefix("bot"),
		Location:   cfg.Location(),
		PickerDays: cfg.Picker.Days,
	})
	return s, nil
}

// Run serves until ctx is cancelled. The Telegram adapter only starts when a
// token is configured.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sender scheduler.DocumentSender
	var adapter *telegram.Adapter
	if s.Config.Telegram.Token != "" {
		a, err := telegram.New(s.Config.Telegram.Token, s.Machine, s.Config.MediaLimits(), s.logger.WithPrefix("telegram"))
		if err != nil {
			return err
		}
		adapter, sender = a, a
	} else {
		s.logger.Warn("telegram.token not set, running the HTTP API only")
	}

	sched := scheduler.New(scheduler.Config{
		CleanupSpec: s.Config.Schedule.Cleanup,
		ReportSpec:  s.Config.Schedule.Report,
		SessionTTL:  s.Config.Session.TTL,
		ReportChats: s.Config.Telegram.ReportChats,
		Location:    s.Config.Location(),
	}, s.Sessions, s.Ledger, s.Reports, sender, s.logger.WithPrefix("scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	httpSrv := server.New(s.Ledger, s.Reports, s.Validator, s.logger.WithPrefix("http")).HTTPServer(s.Config.HTTP.Addr)
	errc := make(chan error, 2)
	go func() {
		s.logger.Info("starting server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	if adapter != nil {
		go func() {
			errc <- adapter.Run(ctx)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}
	cancel()
	if shutdownErr := httpSrv.Shutdown(context.Background()); shutdownErr != nil {
		s.logger.Warn("http shutdown failed", "error", shutdownErr)
	}
	return err
}

// Close releases every opened backend.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("failed to close component", "error", err)
		}
	}
	s.closers = nil
}
