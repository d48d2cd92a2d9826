package compare

import (
	"fmt"
	"strings"

	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/reconcile"
)

// Status is how an imported day relates to what the ledger holds.
type Status int

const (
	New Status = iota
	Same
	Differs
)

func (s Status) Marker() string {
	switch s {
	case Same:
		return "="
	case Differs:
		return "~"
	default:
		return "+"
	}
}

// Classify compares an incoming record with the stored one (nil when the day
// is empty). Only persisted figures count; supplied-field bookkeeping does
// not.
func Classify(incoming models.Record, stored *models.Record) Status {
	if stored == nil || stored.IsEmpty() {
		return New
	}
	if incoming.Recompute().Equal(stored.Recompute()) {
		return Same
	}
	return Differs
}

// Describe lists the changed fields as "card_actual 500→700".
func Describe(incoming models.Record, stored *models.Record) string {
	if stored == nil {
		return ""
	}
	changes := reconcile.Diff(*stored, incoming)
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s %s→%s", c.Field, models.FormatAmount(c.Before), models.FormatAmount(c.After)))
	}
	return strings.Join(parts, ", ")
}
