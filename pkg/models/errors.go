package models

import (
	"fmt"
	"strings"
)

// ValidationError is a structural problem (bad date, negative amount). It
// blocks progression until the user re-enters the value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning is a soft problem the user has to acknowledge.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w *ValidationWarning) Error() string {
	if w.Field == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// ExtractionError reports that an input could not be interpreted.
type ExtractionError struct {
	Modality string // text, image, audio
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "extraction failed (%s)", e.Modality)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConflictError is raised when a commit targets a day that already holds
// figures.
type ConflictError struct {
	Date     string
	Existing Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ledger already holds an entry for %s", e.Date)
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op   string
	Date string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Date == "" {
		return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Date, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
