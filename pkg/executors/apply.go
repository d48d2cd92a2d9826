package executors

import (
	"context"
	"fmt"

	"github.com/yurifrl/compta/pkg/compare"
	"github.com/yurifrl/compta/pkg/plan"
)

// Summary counts what Apply did.
type Summary struct {
	Written  int
	Replaced int
	Skipped  int
	Invalid  int
}

// Apply writes new days. Days that differ from the ledger are overwritten
// only when replace is set.
func (e *Executor) Apply(ctx context.Context, manifest *plan.Manifest, base string, replace bool) (Summary, error) {
	e.logger.Debug("applying manifest", "replace", replace)

	report, err := e.Plan(ctx, manifest, base)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Invalid: len(report.Invalid)}
	for _, it := range report.Items {
		switch {
		case it.Status == compare.New:
			sum.Written++
		case it.Status == compare.Differs && replace:
			sum.Replaced++
		default:
			sum.Skipped++
			continue
		}
		rec := it.Row.Record
		if err := e.ledger.WriteDay(ctx, rec.Date, rec); err != nil {
			return sum, fmt.Errorf("failed to write %s: %w", rec.Date, err)
		}
	}

	e.logger.Info("import applied", "written", sum.Written, "replaced", sum.Replaced, "skipped", sum.Skipped, "invalid", sum.Invalid)
	return sum, nil
}
