package executors

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/compta/pkg/compare"
	"github.com/yurifrl/compta/pkg/importer"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/plan"
	"github.com/yurifrl/compta/pkg/validate"
)

const legacy = `Date;CB;Espèces;Total déclaré
01/06/2025;500;100;550
02/06/2025;300;0;300
03/06/2025;200;50;200
31/02/2025;10;0;10
`

const later = `Date;CB;Espèces;Total déclaré
03/06/2025;250;50;250
`

func setup(t *testing.T) (*Executor, *ledger.MemoryStore, *plan.Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{"2025.csv": legacy, "fix.csv": later} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	store := ledger.NewMemoryStore()
	stored := []models.Record{
		{Date: "2025-06-01", CardActual: decimal.NewFromInt(500), CashActual: decimal.NewFromInt(100), TotalDeclared: decimal.NewFromInt(550)},
		{Date: "2025-06-02", CardActual: decimal.NewFromInt(999), TotalDeclared: decimal.NewFromInt(999)},
	}
	for _, r := range stored {
		if err := store.WriteDay(context.Background(), r.Date, r.Recompute()); err != nil {
			t.Fatal(err)
		}
	}
	logger := log.New(io.Discard)
	exec := New(logger, store, importer.New(validate.New(validate.DefaultLimits()), logger))
	manifest := &plan.Manifest{Sources: []plan.Source{{File: "2025.csv"}, {File: "fix.csv"}}}
	return exec, store, manifest, dir
}

func TestPlan(t *testing.T) {
	exec, _, manifest, dir := setup(t)
	report, err := exec.Plan(context.Background(), manifest, dir)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	want := map[string]compare.Status{"2025-06-01": compare.Same, "2025-06-02": compare.Differs, "2025-06-03": compare.New}
	if len(report.Items) != len(want) {
		t.Fatalf("expected %d days, got %+v", len(want), report.Items)
	}
	for _, it := range report.Items {
		if it.Status != want[it.Row.Record.Date] {
			t.Errorf("%s: status %s", it.Row.Record.Date, it.Status.Marker())
		}
	}
	if last := report.Items[2]; last.Source != "fix.csv" || !last.Row.Record.CardActual.Equal(decimal.NewFromInt(250)) {
		t.Errorf("the later source should win for a repeated day: %+v", last)
	}
	if len(report.Invalid) != 1 {
		t.Errorf("expected the 31/02 row to be invalid, got %+v", report.Invalid)
	}

	var buf bytes.Buffer
	report.Print(&buf)
	out := buf.String()
	for _, s := range []string{"= 2025-06-01", "~ 2025-06-02", "+ 2025-06-03", "! 2025.csv:5", "Plan: 1 new, 1 differ, 1 identical, 1 invalid"} {
		if !strings.Contains(out, s) {
			t.Errorf("preview lacks %q:\n%s", s, out)
		}
	}
}

func TestApply(t *testing.T) {
	for _, replace := range []bool{false, true} {
		exec, store, manifest, dir := setup(t)
		sum, err := exec.Apply(context.Background(), manifest, dir, replace)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if sum.Written != 1 || sum.Invalid != 1 {
			t.Errorf("replace=%v: unexpected summary %+v", replace, sum)
		}

		got, _ := store.ReadDay(context.Background(), "2025-06-02")
		card := decimal.NewFromInt(999)
		if replace {
			card = decimal.NewFromInt(300)
		}
		if got == nil || !got.CardActual.Equal(card) {
			t.Errorf("replace=%v: 2025-06-02 = %+v", replace, got)
		}
		if got, _ := store.ReadDay(context.Background(), "2025-06-03"); got == nil {
			t.Errorf("replace=%v: new day not written", replace)
		}
	}
}
