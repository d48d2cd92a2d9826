package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/session"
)

type sentDoc struct {
	chat int64
	name string
}

type fakeSender struct{ sent []sentDoc }

func (f *fakeSender) SendDocument(_ context.Context, chat int64, name string, _ []byte, _ string) error {
	f.sent = append(f.sent, sentDoc{chat, name})
	return nil
}

type fakeReports struct{ month models.Month }

func (f *fakeReports) Render(month models.Month, _ []models.Record, _ models.Recap) ([]byte, error) {
	f.month = month
	return []byte("%PDF"), nil
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	sessions := session.NewMemoryStore()

	stale := session.New(1, now.Add(-3*time.Hour))
	stale.State = session.Reviewing
	fresh := session.New(2, now.Add(-10*time.Minute))
	fresh.State = session.Reviewing
	_ = sessions.Put(ctx, stale)
	_ = sessions.Put(ctx, fresh)

	s := New(Config{SessionTTL: 2 * time.Hour}, sessions, ledger.NewMemoryStore(), &fakeReports{}, nil, log.New(io.Discard))
	s.now = func() time.Time { return now }
	if err := s.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if got, _ := sessions.Get(ctx, 1, now); got.State != session.Idle {
		t.Errorf("stale session should be idle, got %s", got.State)
	}
	if got, _ := sessions.Get(ctx, 2, now); got.State != session.Reviewing {
		t.Errorf("fresh session should be kept, got %s", got.State)
	}
}

func TestPushReport(t *testing.T) {
	sender := &fakeSender{}
	reports := &fakeReports{}
	s := New(Config{ReportChats: []int64{7, 8}, Location: time.UTC}, session.NewMemoryStore(), ledger.NewMemoryStore(), reports, sender, log.New(io.Discard))
	s.now = func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }

	if err := s.PushReport(context.Background()); err != nil {
		t.Fatalf("PushReport failed: %v", err)
	}
	if reports.month != (models.Month{Year: 2025, Month: 6}) {
		t.Errorf("expected June, got %v", reports.month)
	}
	if len(sender.sent) != 2 || sender.sent[0].name != "compta_2025-06.pdf" {
		t.Errorf("unexpected deliveries %+v", sender.sent)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(Config{CleanupSpec: "every now and then", SessionTTL: time.Hour}, session.NewMemoryStore(), ledger.NewMemoryStore(), &fakeReports{}, nil, log.New(io.Discard))
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Error("expected an invalid schedule error")
	}
}
