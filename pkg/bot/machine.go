// Package bot is the conversation state machine. It turns chat events into
// replies and ledger writes, keeping every bit of per-chat state in an
// injected session store.
package bot

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yurifrl/compta/pkg/extract"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/session"
	"github.com/yurifrl/compta/pkg/validate"
)

// CommitHook is told about every successful ledger change. Hook failures are
// logged and never reach the user.
type CommitHook interface {
	DayCommitted(ctx context.Context, r models.Record, replaced *models.Record) error
	DayDeleted(ctx context.Context, date string) error
}

// Deps are the collaborators of a Machine.
type Deps struct {
	Sessions  session.Store
	Ledger    ledger.Store
	Extractor extract.Extractor
	Validator *validate.Validator
	Reports   report.Generator
	Hooks     []CommitHook
	Logger    *log.Logger

	// Location is the operator's time zone; dates are computed in it.
	Location *time.Location
	// PickerDays is how many recent days the modify/delete picker offers.
	PickerDays int
}

type Machine struct {
	Deps
	guard *session.Guard
}

func New(deps Deps) *Machine {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.PickerDays <= 0 {
		deps.PickerDays = 7
	}
	if deps.Validator == nil {
		deps.Validator = validate.New(validate.DefaultLimits())
	}
	return &Machine{Deps: deps, guard: session.NewGuard()}
}

// turn is one handled event.
type turn struct {
	*Machine
	ctx  context.Context
	sess *session.Session
	now  time.Time
	ev   Event
	log  *log.Logger
}

func (t *turn) today() string { return t.now.Format(models.DateLayout) }

// Handle processes one event for a chat and returns the replies to send.
// Events arriving while the same chat is still being handled are dropped
// with a wait notice.
func (m *Machine) Handle(ctx context.Context, chatID int64, ev Event, now time.Time) []Reply {
	if !m.guard.TryAcquire(chatID) {
		return []Reply{{Text: "⏳ Doucement...", Ephemeral: true}}
	}
	defer m.guard.Release(chatID)

	now = now.In(m.Location)
	logger := m.Logger.With("chat_id", chatID, "interaction", uuid.NewString())

	sess, err := m.Sessions.Get(ctx, chatID, now)
	if err != nil {
		logger.Error("failed to load session", "error", err)
		return []Reply{storeFailure("Erreur interne. Réessaie.")}
	}
	before := sess.State

	t := &turn{Machine: m, ctx: ctx, sess: sess, now: now, ev: ev, log: logger}
	replies := t.dispatch()

	sess.UpdatedAt = now
	if err := m.Sessions.Put(ctx, sess); err != nil {
		logger.Error("failed to save session", "error", err)
	}
	if before != sess.State {
		logger.Debug("state changed", "from", before, "to", sess.State)
	}
	return replies
}

// Reset drops a chat's session, used by scheduled cleanup and /start.
func (m *Machine) Reset(ctx context.Context, chatID int64) error {
	return m.Sessions.Delete(ctx, chatID)
}

func (t *turn) dispatch() []Reply {
	switch t.ev.Kind {
	case EventCommand:
		return t.command()
	case EventButton:
		return t.button()
	default:
		return t.message()
	}
}

func (t *turn) command() []Reply {
	switch t.ev.Command {
	case "nouveau", "new":
		return t.startEntry()
	case "recap":
		return t.recap(0)
	case "cumul":
		return t.cumul()
	case "pdf":
		return []Reply{pdfMenuReply(t.now)}
	case "modifier":
		t.sess.Reset(t.now)
		return []Reply{pickerReply("🔧 *Quel jour modifier ?*", ActPickModify, t.now, t.PickerDays)}
	case "supprimer":
		t.sess.Reset(t.now)
		return []Reply{pickerReply("🗑️ *Quel jour supprimer ?*", ActPickDelete, t.now, t.PickerDays)}
	case "aide", "help":
		return []Reply{{Text: helpText, Buttons: [][]Choice{menuRow}}}
	default: // start, menu and anything unknown
		t.sess.Reset(t.now)
		return []Reply{menuReply(t.ev.FirstName)}
	}
}

// stateButtons lists the actions that are only valid in a given state.
var stateButtons = map[Action][]session.State{
	ActSend:             {session.Reviewing},
	ActModifyAmounts:    {session.Reviewing},
	ActModifyDate:       {session.Reviewing},
	ActBackToReview:     {session.Modifying, session.ModifyingPast, session.AwaitingDateFix},
	ActWarnContinue:     {session.AwaitingWarningAck},
	ActWarnEdit:         {session.AwaitingWarningAck},
	ActDateConfirm:      {session.AwaitingDateConfirm},
	ActDateFix:          {session.AwaitingDateConfirm},
	ActDateToday:        {session.AwaitingDateConfirm},
	ActOverwriteReplace: {session.AwaitingOverwriteDecision},
	ActOverwriteCancel:  {session.AwaitingOverwriteDecision},
	ActDeleteOK:         {session.AwaitingDeleteConfirm},
}

func (t *turn) button() []Reply {
	a := t.ev.Action
	if states, ok := stateButtons[a]; ok && !t.in(states...) {
		t.log.Debug("stale button", "action", a, "state", t.sess.State)
		return []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
	}
	if a == ActBackToReview && t.sess.Draft == nil {
		return []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
	}

	switch a {
	case ActMenu:
		t.sess.Reset(t.now)
		return []Reply{menuReply(t.ev.FirstName)}
	case ActHelp:
		return []Reply{{Text: helpText, Buttons: [][]Choice{menuRow}}}
	case ActNewEntry:
		return t.startEntry()
	case ActRecap:
		return t.recap(parseOffset(t.ev.Arg))
	case ActCumul:
		return t.cumul()
	case ActPDFMenu:
		return []Reply{pdfMenuReply(t.now)}
	case ActPDF:
		return t.pdf(parseOffset(t.ev.Arg))
	case ActModifyPast:
		t.sess.Reset(t.now)
		return []Reply{pickerReply("🔧 *Quel jour modifier ?*", ActPickModify, t.now, t.PickerDays)}
	case ActDeletePast:
		t.sess.Reset(t.now)
		return []Reply{pickerReply("🗑️ *Quel jour supprimer ?*", ActPickDelete, t.now, t.PickerDays)}
	case ActPickModify:
		return t.pickModify(t.ev.Arg)
	case ActPickDelete:
		return t.pickDelete(t.ev.Arg)
	case ActDeleteOK:
		return t.deleteDay(t.ev.Arg)

	case ActSend:
		return t.send()
	case ActModifyAmounts:
		t.sess.State = t.modifyState()
		return []Reply{{Text: modifyPrompt, Buttons: [][]Choice{{choice("🔙 Retour", ActBackToReview, "")}}}}
	case ActModifyDate:
		t.sess.State = session.AwaitingDateFix
		return []Reply{{Text: dateFixPrompt, Buttons: [][]Choice{{choice("🔙 Retour", ActBackToReview, "")}}}}
	case ActBackToReview:
		// Pending warnings and date confirmation still apply.
		if verr := t.Validator.Date(t.sess.Draft.Date); verr != nil {
			t.sess.State = session.AwaitingDateFix
			return []Reply{{Text: errorsText([]*models.ValidationError{verr}) + "\n\n" + dateFixPrompt}}
		}
		return t.next()

	case ActWarnContinue:
		t.sess.Warnings = nil
		return t.next()
	case ActWarnEdit:
		t.sess.State = t.modifyState()
		return []Reply{{Text: modifyPrompt, Buttons: [][]Choice{menuRow}}}

	case ActDateConfirm:
		t.sess.DateUnconfirmed = false
		t.sess.DatePhrase = ""
		return t.next()
	case ActDateToday:
		t.sess.Draft.Date = t.today()
		t.sess.DateUnconfirmed = false
		t.sess.DatePhrase = ""
		return t.next()
	case ActDateFix:
		t.sess.State = session.AwaitingDateFix
		return []Reply{{Text: dateFixPrompt}}

	case ActOverwriteReplace:
		return t.commit()
	case ActOverwriteCancel:
		t.log.Info("overwrite cancelled", "date", t.sess.Draft.Date)
		t.sess.Reset(t.now)
		return []Reply{{Text: "❌ Annulé. Rien n'a été modifié.", Buttons: afterDoneButtons()}}
	}

	t.log.Warn("unknown button", "action", a)
	return []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
}

func (t *turn) message() []Reply {
	switch t.sess.State {
	case session.CollectingInput, session.Modifying, session.ModifyingPast:
		return t.absorb()
	case session.AwaitingDateFix:
		if t.ev.Input.Kind != extract.KindText {
			return []Reply{{Text: dateFixPrompt}}
		}
		return t.fixDate(t.ev.Input.Text)
	case session.Idle:
		return []Reply{menuReply(t.ev.FirstName)}
	default:
		return []Reply{{Text: useButtons, Buttons: [][]Choice{menuRow}}}
	}
}

func (t *turn) in(states ...session.State) bool {
	for _, s := range states {
		if t.sess.State == s {
			return true
		}
	}
	return false
}

func (t *turn) modifyState() session.State {
	if t.sess.PastEdit {
		return session.ModifyingPast
	}
	return session.Modifying
}
