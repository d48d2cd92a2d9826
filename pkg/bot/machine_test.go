package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/extract"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/session"
)

const chat = int64(42)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type recordingHook struct {
	committed []models.Record
	deleted   []string
}

func (h *recordingHook) DayCommitted(_ context.Context, r models.Record, _ *models.Record) error {
	h.committed = append(h.committed, r)
	return nil
}

func (h *recordingHook) DayDeleted(_ context.Context, date string) error {
	h.deleted = append(h.deleted, date)
	return nil
}

// flakyLedger fails writes while failing is set.
type flakyLedger struct {
	ledger.Store
	failing bool
}

func (f *flakyLedger) WriteDay(ctx context.Context, date string, r models.Record) error {
	if f.failing {
		return &models.StoreError{Op: "write", Date: date, Err: errors.New("sheet unavailable")}
	}
	return f.Store.WriteDay(ctx, date, r)
}

type stubExtractor struct {
	out models.Partial
}

func (s stubExtractor) Extract(context.Context, extract.Input, *models.Record, time.Time) (models.Partial, error) {
	return s.out, nil
}

type harness struct {
	t        *testing.T
	m        *Machine
	sessions *session.MemoryStore
	ledger   *flakyLedger
	hook     *recordingHook
	last     []Reply
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := log.New(io.Discard)
	h := &harness{
		t:        t,
		sessions: session.NewMemoryStore(),
		ledger:   &flakyLedger{Store: ledger.NewMemoryStore()},
		hook:     &recordingHook{},
	}
	h.m = New(Deps{
		Sessions:  h.sessions,
		Ledger:    h.ledger,
		Extractor: extract.NewChain(parser.New(), nil, extract.DefaultLimits(), logger),
		Reports:   &report.PDF{Author: "test", Now: func() time.Time { return now }},
		Hooks:     []CommitHook{h.hook},
		Logger:    logger,
		Location:  time.UTC,
	})
	return h
}

func (h *harness) send(ev Event) []Reply {
	h.t.Helper()
	h.last = h.m.Handle(context.Background(), chat, ev, now)
	if len(h.last) == 0 {
		h.t.Fatalf("no reply to %+v", ev)
	}
	return h.last
}

func (h *harness) state() *session.Session {
	h.t.Helper()
	s, err := h.sessions.Get(context.Background(), chat, now)
	if err != nil {
		h.t.Fatalf("session Get failed: %v", err)
	}
	return s
}

func (h *harness) expectState(want session.State) {
	h.t.Helper()
	if got := h.state().State; got != want {
		h.t.Fatalf("expected state %s, got %s (last reply %q)", want, got, h.last[0].Text)
	}
}

func (h *harness) expectText(sub string) {
	h.t.Helper()
	for _, r := range h.last {
		if strings.Contains(r.Text, sub) {
			return
		}
	}
	h.t.Errorf("no reply contains %q: %+v", sub, h.last)
}

func (h *harness) day(date string) *models.Record {
	h.t.Helper()
	r, err := h.ledger.ReadDay(context.Background(), date)
	if err != nil {
		h.t.Fatalf("ReadDay failed: %v", err)
	}
	return r
}

func (h *harness) seed(date string, card int64) {
	h.t.Helper()
	r := models.Record{Date: date, CardActual: decimal.NewFromInt(card), TotalDeclared: decimal.NewFromInt(card)}.Recompute()
	if err := h.ledger.WriteDay(context.Background(), date, r); err != nil {
		h.t.Fatalf("seed failed: %v", err)
	}
}

func TestNewEntryCommit(t *testing.T) {
	h := newHarness(t)

	h.send(Command("/start"))
	h.expectState(session.Idle)
	h.send(Button(EncodeCallback(ActNewEntry, "")))
	h.expectState(session.CollectingInput)

	h.send(Text("CB 1000 ESP 500 TR 100"))
	h.expectState(session.Reviewing)
	h.expectText("RÉCAPITULATIF")

	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)
	h.expectText("Envoyé en compta")

	got := h.day("2025-06-10")
	if got == nil || !got.TotalActual.Equal(decimal.NewFromInt(1600)) {
		t.Fatalf("unexpected stored day %+v", got)
	}
	if len(h.hook.committed) != 1 {
		t.Errorf("expected one commit notification, got %d", len(h.hook.committed))
	}
}

func TestOverwrite(t *testing.T) {
	for _, tc := range []struct {
		name     string
		decision Action
		wantCard int64
	}{
		{"cancel keeps the stored day", ActOverwriteCancel, 500},
		{"replace writes the draft", ActOverwriteReplace, 700},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed("2025-06-10", 500)

			h.send(Command("nouveau"))
			h.send(Text("CB 700"))
			h.send(Button(string(ActSend)))
			h.expectState(session.AwaitingOverwriteDecision)
			h.expectText("déjà une recette")

			h.send(Button(string(tc.decision)))
			h.expectState(session.Idle)
			if got := h.day("2025-06-10"); !got.CardActual.Equal(decimal.NewFromInt(tc.wantCard)) {
				t.Errorf("expected card %d, got %s", tc.wantCard, got.CardActual)
			}
			if h.state().Draft != nil {
				t.Error("draft should be dropped after the decision")
			}
		})
	}
}

func TestRelativeDateInTextIsConfirmed(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("hier CB 500"))
	h.expectState(session.AwaitingDateConfirm)
	h.expectText("hier")

	h.send(Button(string(ActDateConfirm)))
	h.expectState(session.Reviewing)
	if d := h.state().Draft.Date; d != "2025-06-09" {
		t.Errorf("expected 2025-06-09, got %s", d)
	}
}

func TestFutureDateUseToday(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("15/06 CB 100"))
	h.expectState(session.AwaitingDateConfirm)
	h.expectText("Date future")

	h.send(Button(string(ActDateToday)))
	h.expectState(session.Reviewing)
	if d := h.state().Draft.Date; d != "2025-06-10" {
		t.Errorf("expected today, got %s", d)
	}
}

func TestDateFix(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("CB 500"))
	h.send(Button(string(ActModifyDate)))
	h.expectState(session.AwaitingDateFix)

	h.send(Text("31/02"))
	h.expectState(session.AwaitingDateFix)
	h.expectText("n'existe pas")

	h.send(Text("hier"))
	h.expectState(session.AwaitingDateConfirm)

	h.send(Button(string(ActDateFix)))
	h.send(Text("05/06"))
	h.expectState(session.Reviewing)
	s := h.state()
	if s.Draft.Date != "2025-06-05" || !s.Draft.CardActual.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected draft %+v", *s.Draft)
	}
}

func TestWarningsNeedAcknowledgement(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("CB 60000"))
	h.expectState(session.AwaitingWarningAck)
	h.expectText("Attention")

	h.send(Text("CB 100"))
	h.expectState(session.AwaitingWarningAck)
	h.expectText("boutons")

	h.send(Button(string(ActWarnContinue)))
	h.expectState(session.Reviewing)
}

func TestOldBackButtonKeepsPendingChecks(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("CB 60000 hier"))
	h.expectState(session.AwaitingWarningAck)

	h.send(Button(string(ActWarnEdit)))
	h.expectState(session.Modifying)

	// A "Retour" button from an earlier message.
	h.send(Button(string(ActBackToReview)))
	h.expectState(session.AwaitingWarningAck)

	h.send(Button(string(ActWarnContinue)))
	h.expectState(session.AwaitingDateConfirm)

	h.send(Button(string(ActSend)))
	h.expectText("plus disponible")
	if h.day("2025-06-09") != nil {
		t.Fatal("day written before its date was confirmed")
	}

	h.send(Button(string(ActDateConfirm)))
	h.expectState(session.Reviewing)
	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)
	if h.day("2025-06-09") == nil {
		t.Error("expected 2025-06-09 to be written after confirmation")
	}
}

func TestBackButtonWithInvalidDateAsksForDate(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("31/02 CB 100"))
	h.expectState(session.AwaitingDateFix)

	h.send(Button(string(ActBackToReview)))
	h.expectState(session.AwaitingDateFix)
}

func TestAmountErrorsBlock(t *testing.T) {
	h := newHarness(t)
	h.m.Extractor = stubExtractor{out: models.Partial{CardActual: models.PresentInt(-20)}}

	h.send(Command("nouveau"))
	h.send(Text("n'importe quoi"))
	h.expectState(session.CollectingInput)
	h.expectText("ne peut pas être négatif")
}

func TestUnreadableTextStaysCollecting(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("bonjour"))
	h.expectState(session.CollectingInput)
	h.expectText("❌")
}

func TestStoreFailurePreservesDraft(t *testing.T) {
	h := newHarness(t)
	h.send(Command("nouveau"))
	h.send(Text("CB 300"))

	h.ledger.failing = true
	h.send(Button(string(ActSend)))
	h.expectState(session.Reviewing)
	h.expectText("Erreur envoi")
	if d := h.state().Draft; d == nil || !d.CardActual.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("draft lost: %+v", d)
	}

	h.ledger.failing = false
	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)
	if h.day("2025-06-10") == nil {
		t.Error("retry should have written the day")
	}
}

func TestModifyPastDay(t *testing.T) {
	h := newHarness(t)
	h.seed("2025-06-08", 300)

	h.send(Button(string(ActModifyPast)))
	h.expectText("Quel jour")
	h.send(Button(EncodeCallback(ActPickModify, "2025-06-08")))
	h.expectState(session.ModifyingPast)

	h.send(Text("CB 400"))
	h.expectState(session.Reviewing)
	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)

	got := h.day("2025-06-08")
	if !got.CardActual.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected card 400, got %s", got.CardActual)
	}
	if !got.TotalDeclared.Equal(decimal.NewFromInt(300)) {
		t.Errorf("stored declared total must survive the edit, got %s", got.TotalDeclared)
	}
}

func TestModifyPastDayMovesDate(t *testing.T) {
	h := newHarness(t)
	h.seed("2025-06-08", 300)

	h.send(Button(EncodeCallback(ActPickModify, "2025-06-08")))
	h.send(Button(string(ActBackToReview)))
	h.send(Button(string(ActModifyDate)))
	h.send(Text("07/06"))
	h.expectState(session.Reviewing)
	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)

	if h.day("2025-06-07") == nil {
		t.Error("expected the day to be written on its new date")
	}
	if h.day("2025-06-08") != nil {
		t.Error("expected the original day to be cleared")
	}
	if len(h.hook.deleted) != 1 || h.hook.deleted[0] != "2025-06-08" {
		t.Errorf("unexpected delete notifications %v", h.hook.deleted)
	}
}

func TestDeletePastDay(t *testing.T) {
	h := newHarness(t)
	h.seed("2025-06-09", 250)

	h.send(Button(EncodeCallback(ActPickDelete, "2025-06-05")))
	h.expectText("Aucune recette ce jour.")

	h.send(Button(EncodeCallback(ActPickDelete, "2025-06-09")))
	h.expectState(session.AwaitingDeleteConfirm)
	h.expectText("SUPPRIMER")

	h.send(Button(EncodeCallback(ActDeleteOK, "2025-06-09")))
	h.expectState(session.Idle)
	h.expectText("supprimée")
	if h.day("2025-06-09") != nil {
		t.Error("day should be gone")
	}
}

func TestStaleButton(t *testing.T) {
	h := newHarness(t)
	h.send(Button(string(ActSend)))
	h.expectState(session.Idle)
	h.expectText(staleAction)
}

func TestRecapAndCumul(t *testing.T) {
	h := newHarness(t)
	h.send(Button(EncodeCallback(ActRecap, "0")))
	h.expectText("Aucune donnée")

	h.seed("2025-06-02", 400)
	h.send(Button(EncodeCallback(ActRecap, "0")))
	h.expectText("Juin 2025")
	h.expectText("Jours remplis : 1/30")

	h.send(Button(string(ActCumul)))
	h.expectText("CUMUL NON DÉCLARÉ")
}

func TestPDF(t *testing.T) {
	h := newHarness(t)
	h.seed("2025-05-20", 400)
	replies := h.send(Button(EncodeCallback(ActPDF, "-1")))
	doc := replies[0].Document
	if doc == nil || doc.Name != "compta_2025-05.pdf" || len(doc.Data) == 0 {
		t.Fatalf("expected the May report, got %+v", replies[0])
	}
}

func TestPickerOffersRecentDays(t *testing.T) {
	r := pickerReply("x", ActPickModify, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), 7)
	var labels []string
	for _, row := range r.Buttons[:len(r.Buttons)-1] {
		for _, c := range row {
			labels = append(labels, c.Label)
		}
	}
	if strings.Join(labels, ",") != "Auj.,Hier,1/6" {
		t.Errorf("unexpected picker %v", labels)
	}
}

func TestBusyChatIsTold(t *testing.T) {
	h := newHarness(t)
	if !h.m.guard.TryAcquire(chat) {
		t.Fatal("guard should be free")
	}
	defer h.m.guard.Release(chat)

	replies := h.m.Handle(context.Background(), chat, Text("CB 1"), now)
	if len(replies) != 1 || !replies[0].Ephemeral {
		t.Errorf("expected an ephemeral wait notice, got %+v", replies)
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	a, arg := DecodeCallback(EncodeCallback(ActPickDelete, "2025-06-09"))
	if a != ActPickDelete || arg != "2025-06-09" {
		t.Errorf("got %s %s", a, arg)
	}
}
