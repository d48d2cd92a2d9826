package executors

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/yurifrl/compta/pkg/compare"
	"github.com/yurifrl/compta/pkg/plan"
)

// Plan reads every source of the manifest and classifies each day against the
// ledger. When several rows carry the same date, the last one read wins.
func (e *Executor) Plan(ctx context.Context, manifest *plan.Manifest, base string) (*Report, error) {
	byDate := map[string]Entry{}
	report := &Report{}

	for _, src := range manifest.Sources {
		path, err := src.Path(base)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("planning source", "file", path, "sheet", src.Sheet)

		rows, err := e.importer.ReadFile(path, src.Sheet)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Err != nil {
				report.Invalid = append(report.Invalid, Invalid{Source: src.File, Row: row})
				continue
			}
			if prev, ok := byDate[row.Record.Date]; ok {
				e.logger.Warn("duplicate day, keeping the last one", "date", row.Record.Date, "previous", prev.Source, "source", src.File)
			}
			byDate[row.Record.Date] = Entry{Source: src.File, Row: row}
		}
	}

	for _, entry := range byDate {
		stored, err := e.ledger.ReadDay(ctx, entry.Row.Record.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from the ledger: %w", entry.Row.Record.Date, err)
		}
		entry.Stored = stored
		entry.Status = compare.Classify(entry.Row.Record, stored)
		report.Items = append(report.Items, entry)
	}
	sort.Slice(report.Items, func(i, j int) bool {
		return report.Items[i].Row.Record.Date < report.Items[j].Row.Record.Date
	})

	e.logger.Debug("plan ready", "days", len(report.Items), "new", report.Count(compare.New), "differs", report.Count(compare.Differs), "invalid", len(report.Invalid))
	return report, nil
}

var (
	sameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	differsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// Print writes a human-readable preview of the report.
func (r *Report) Print(w io.Writer) {
	for _, it := range r.Items {
		rec := it.Row.Record
		line := fmt.Sprintf("%s | %-24s | réel %10s | déclaré %10s", rec.Date, fmt.Sprintf("%s:%d", it.Source, it.Row.Line), rec.TotalActual.StringFixed(2), rec.TotalDeclared.StringFixed(2))
		switch it.Status {
		case compare.Same:
			fmt.Fprintln(w, sameStyle.Render("= "+line))
		case compare.Differs:
			fmt.Fprintln(w, differsStyle.Render("~ "+line+" | "+compare.Describe(rec, it.Stored)))
		default:
			fmt.Fprintln(w, newStyle.Render("+ "+line))
		}
	}
	for _, inv := range r.Invalid {
		fmt.Fprintln(w, invalidStyle.Render(fmt.Sprintf("! %s:%d (%s) %v", inv.Source, inv.Row.Line, inv.Row.Sheet, inv.Row.Err)))
	}

	fmt.Fprintf(w, "\nPlan: %d new, %d differ, %d identical, %d invalid\n",
		r.Count(compare.New), r.Count(compare.Differs), r.Count(compare.Same), len(r.Invalid))
}
