// Package scheduler runs the periodic housekeeping jobs: dropping abandoned
// sessions and pushing last month's report on the 1st.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/session"
)

// DocumentSender delivers a generated report to a chat.
type DocumentSender interface {
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
}

type Config struct {
	CleanupSpec string
	ReportSpec  string
	SessionTTL  time.Duration
	ReportChats []int64
	Location    *time.Location
}

type Scheduler struct {
	cfg      Config
	cron     *cron.Cron
	sessions session.Store
	ledger   ledger.Store
	reports  report.Generator
	sender   DocumentSender
	logger   *log.Logger
	now      func() time.Time
}

func New(cfg Config, sessions session.Store, store ledger.Store, reports report.Generator, sender DocumentSender, logger *log.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		cfg:      cfg,
		cron:     cron.New(cron.WithLocation(cfg.Location)),
		sessions: sessions,
		ledger:   store,
		reports:  reports,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the configured jobs and starts the cron runner. Empty specs
// disable their job.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.CleanupSpec != "" && s.cfg.SessionTTL > 0 {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, func() { s.run("cleanup", func() error { return s.Cleanup(ctx) }) }); err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", s.cfg.CleanupSpec, err)
		}
	}
	if s.cfg.ReportSpec != "" && len(s.cfg.ReportChats) > 0 && s.sender != nil {
		if _, err := s.cron.AddFunc(s.cfg.ReportSpec, func() { s.run("report", func() error { return s.PushReport(ctx) }) }); err != nil {
			return fmt.Errorf("invalid report schedule %q: %w", s.cfg.ReportSpec, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(name string, job func() error) {
	start := s.now()
	if err := job(); err != nil {
		s.logger.Error("job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("job done", "job", name, "took", s.now().Sub(start))
}

// Cleanup resets sessions idle for longer than the TTL.
func (s *Scheduler) Cleanup(ctx context.Context) error {
	n, err := s.sessions.Expire(ctx, s.now().Add(-s.cfg.SessionTTL))
	if err != nil {
		return fmt.Errorf("expire sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions", "count", n)
	}
	return nil
}

// PushReport sends the previous month's PDF to every report chat.
func (s *Scheduler) PushReport(ctx context.Context) error {
	month := models.MonthOf(s.now().In(s.cfg.Location)).Offset(-1)
	rc, records, err := ledger.Recap(ctx, s.ledger, month)
	if err != nil {
		return err
	}
	data, err := s.reports.Render(month, records, rc)
	if err != nil {
		return fmt.Errorf("render %s: %w", month, err)
	}
	caption := fmt.Sprintf("📄 %s\n\nPDF prêt pour ta comptable !", month.Label())
	for _, chat := range s.cfg.ReportChats {
		if err := s.sender.SendDocument(ctx, chat, report.Filename(month), data, caption); err != nil {
			s.logger.Error("failed to push report", "chat_id", chat, "month", month, "error", err)
			continue
		}
		s.logger.Info("report pushed", "chat_id", chat, "month", month)
	}
	return nil
}
