// Package ledger persists one record per calendar day, partitioned by month.
package ledger

import (
	"context"
	"errors"

	"github.com/yurifrl/compta/pkg/models"
)

// Store is the durable ledger. WriteDay fully overwrites the day; ReadDay
// returns nil when the day has no entry. Failures are *models.StoreError.
type Store interface {
	ReadDay(ctx context.Context, date string) (*models.Record, error)
	WriteDay(ctx context.Context, date string, r models.Record) error
	ReadMonth(ctx context.Context, month models.Month) ([]models.Record, error)
	DeleteDay(ctx context.Context, date string) error
}

// ErrNoEntry is returned by DeleteDay when the day holds nothing.
var ErrNoEntry = errors.New("no entry for this day")

// Recap reads a month and aggregates it.
func Recap(ctx context.Context, s Store, month models.Month) (models.Recap, []models.Record, error) {
	records, err := s.ReadMonth(ctx, month)
	if err != nil {
		return models.Recap{}, nil, err
	}
	models.SortByDate(records)
	return models.Summarize(month, records), records, nil
}

func storeErr(op, date string, err error) error {
	if err == nil {
		return nil
	}
	var se *models.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &models.StoreError{Op: op, Date: date, Err: err}
}

// prepare normalises a record before it is written: derived fields are
// recomputed and the date is forced to the target day.
func prepare(date string, r models.Record) models.Record {
	r.Date = date
	return r.Recompute().Persisted()
}
