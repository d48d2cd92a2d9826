// Package session keeps the per-chat conversation state behind a key-value
// store so the state machine never holds ambient global state.
package session

import (
	"context"
	"time"

	"github.com/yurifrl/compta/pkg/models"
)

// State is the active step of a chat's conversation.
type State string

const (
	Idle            State = "idle"
	CollectingInput State = "collecting_input"
	// AwaitingWarningAck waits for "continue anyway" or "edit" after soft
	// validation warnings.
	AwaitingWarningAck State = "awaiting_warning_ack"
	// AwaitingDateConfirm shows a past, future or relative date and waits for
	// confirm, correct or use-today.
	AwaitingDateConfirm State = "awaiting_date_confirm"
	// AwaitingDateFix waits for a typed date.
	AwaitingDateFix           State = "awaiting_date_fix"
	Reviewing                 State = "reviewing"
	Modifying                 State = "modifying"
	ModifyingPast             State = "modifying_past"
	AwaitingOverwriteDecision State = "awaiting_overwrite_decision"
	AwaitingDeleteConfirm     State = "awaiting_delete_confirm"
)

// Session is everything the state machine remembers about one chat.
type Session struct {
	ChatID int64 `json:"chat_id"`
	State  State `json:"state"`

	// Draft is the in-progress record, nil when idle.
	Draft *models.Record `json:"draft,omitempty"`
	// Conflict is the stored record snapshotted during overwrite confirmation.
	Conflict *models.Record `json:"conflict,omitempty"`
	// Warnings not yet acknowledged.
	Warnings []string `json:"warnings,omitempty"`
	// DatePhrase is the relative word the pending date was resolved from.
	DatePhrase string `json:"date_phrase,omitempty"`
	// DateUnconfirmed is set while the draft date still has to go through
	// past/future/relative confirmation.
	DateUnconfirmed bool `json:"date_unconfirmed,omitempty"`

	// PastEdit marks a draft loaded from the ledger; OriginalDate is the day
	// it was loaded from.
	PastEdit     bool   `json:"past_edit,omitempty"`
	OriginalDate string `json:"original_date,omitempty"`

	// PendingDelete is the day awaiting delete confirmation.
	PendingDelete string `json:"pending_delete,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an idle session.
func New(chatID int64, now time.Time) *Session {
	return &Session{ChatID: chatID, State: Idle, UpdatedAt: now}
}

// Reset drops everything in progress and returns to Idle.
func (s *Session) Reset(now time.Time) {
	*s = Session{ChatID: s.ChatID, State: Idle, UpdatedAt: now}
}

// Store persists sessions keyed by chat id.
type Store interface {
	// Get returns the chat's session, or a fresh idle one when none exists.
	Get(ctx context.Context, chatID int64, now time.Time) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
	// Expire resets sessions not touched since before and reports how many
	// were dropped.
	Expire(ctx context.Context, before time.Time) (int, error)
}
