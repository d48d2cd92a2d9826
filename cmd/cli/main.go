package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/yurifrl/compta/pkg/config"
	"github.com/yurifrl/compta/pkg/csv"
	"github.com/yurifrl/compta/pkg/executors"
	"github.com/yurifrl/compta/pkg/importer"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
	"github.com/yurifrl/compta/pkg/plan"
	"github.com/yurifrl/compta/pkg/reconcile"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/service"
	"github.com/yurifrl/compta/pkg/validate"
)

var (
	cliFilters filters
	cfgFile    string
	outFile    string
	replace    bool
)

// app is what every ledger command needs, built from the config.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  ledger.Store
	close  func() error
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "compta-cli",
	})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	store, closer, err := service.OpenLedger(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, close: closer}, nil
}

// monthArg defaults to the current month in the business timezone.
func (a *app) monthArg(args []string) (models.Month, error) {
	if len(args) == 0 {
		return models.MonthOf(time.Now().In(a.cfg.Location())), nil
	}
	return models.ParseMonth(args[0])
}

var rootCmd = &cobra.Command{
	Use:   "compta-cli",
	Short: "Inspect and maintain the daily takings ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var recapCmd = &cobra.Command{
	Use:   "recap [YYYY-MM]",
	Short: "Print the month totals",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		month, err := a.monthArg(args)
		if err != nil {
			return err
		}
		rc, _, err := ledger.Recap(cmd.Context(), a.store, month)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d/%d jours)\n", month.Label(), rc.DaysFilled, month.Days())
		fmt.Printf("  Réel        %12s\n", models.FormatEUR(rc.TotalActual))
		fmt.Printf("  Déclaré     %12s\n", models.FormatEUR(rc.TotalDeclared))
		fmt.Printf("  Non déclaré %12s\n", models.FormatEUR(rc.TotalUndeclared))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [YYYY-MM]",
	Short: "Render the monthly PDF report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		month, err := a.monthArg(args)
		if err != nil {
			return err
		}
		rc, records, err := ledger.Recap(cmd.Context(), a.store, month)
		if err != nil {
			return err
		}
		data, err := report.New("compta").Render(month, records, rc)
		if err != nil {
			return err
		}
		path := outFile
		if path == "" {
			path = report.Filename(month)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		a.logger.Info("report written", "file", path, "days", rc.DaysFilled)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [YYYY-MM]",
	Short: "Print a month of the ledger as CSV",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		month, err := a.monthArg(args)
		if err != nil {
			return err
		}
		records, err := a.store.ReadMonth(cmd.Context(), month)
		if err != nil {
			return err
		}
		models.SortByDate(records)
		out, err := csv.Create(records, cliFilters.toFilterFunc())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import legacy spreadsheets listed in a YAML manifest",
}

func loadImport(cmd *cobra.Command, path string) (*app, *executors.Executor, *plan.Manifest, string, error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, "", err
	}
	m, base, err := plan.Load(path)
	if err != nil {
		a.close()
		return nil, nil, nil, "", err
	}
	imp := importer.New(validate.New(a.cfg.ValidatorLimits()), a.logger.WithPrefix("import"))
	return a, executors.New(a.logger, a.store, imp), m, base, nil
}

var importPlanCmd = &cobra.Command{
	Use:   "plan <manifest>",
	Short: "Preview an import (dry-run)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, exec, m, base, err := loadImport(cmd, args[0])
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Printf("Plan preview for %s\n", args[0])
		m.Print(os.Stdout)
		rep, err := exec.Plan(cmd.Context(), m, base)
		if err != nil {
			return err
		}
		fmt.Println()
		rep.Print(os.Stdout)
		return nil
	},
}

var importApplyCmd = &cobra.Command{
	Use:   "apply <manifest>",
	Short: "Write new days, and differing days with --replace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, exec, m, base, err := loadImport(cmd, args[0])
		if err != nil {
			return err
		}
		defer a.close()

		sum, err := exec.Apply(cmd.Context(), m, base, replace)
		if err != nil {
			return err
		}
		fmt.Printf("Applied: %d written, %d replaced, %d skipped, %d invalid\n", sum.Written, sum.Replaced, sum.Skipped, sum.Invalid)
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Show how a typed message is understood",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		now := time.Now()
		partial, err := parser.New().Parse(args[0], now)
		if err != nil {
			return err
		}
		if partial.Date == "" {
			partial.Date = now.Format(models.DateLayout)
		}
		pp.Println(partial)
		pp.Println(reconcile.Reconcile(partial, nil))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level")
	rootCmd.PersistentFlags().String("ledger", "", "Ledger backend (xlsx, postgres, memory)")
	rootCmd.PersistentFlags().String("ledger-path", "", "Workbook path for the xlsx backend")
	rootCmd.PersistentFlags().String("ledger-dsn", "", "Connection string for the postgres backend")
	rootCmd.PersistentFlags().String("tz", "", "Business timezone")

	exportCmd.Flags().StringVar(&cliFilters.startDate, "start", "", "Start date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&cliFilters.endDate, "end", "", "End date (YYYY-MM-DD)")
	exportCmd.Flags().Float64Var(&cliFilters.minAmount, "min", 0, "Minimum actual total")
	exportCmd.Flags().Float64Var(&cliFilters.maxAmount, "max", 0, "Maximum actual total")
	exportCmd.Flags().BoolVar(&cliFilters.undeclaredOnly, "undeclared", false, "Only days with an undeclared amount")

	reportCmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (default compta_YYYY-MM.pdf)")
	importApplyCmd.Flags().BoolVar(&replace, "replace", false, "Overwrite days that differ from the ledger")

	importCmd.AddCommand(importPlanCmd, importApplyCmd)
	rootCmd.AddCommand(recapCmd, reportCmd, exportCmd, importCmd, parseCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
