package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yurifrl/compta/pkg/config"
	"github.com/yurifrl/compta/pkg/service"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "compta-server",
	Short:        "Run the cash register bot and its HTTP API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "compta",
		})
		level, err := log.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		logger.SetLevel(level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := service.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		logger.Info("compta starting", "ledger", cfg.Ledger.Backend, "sessions", cfg.Session.Backend, "tz", cfg.Timezone)
		return svc.Run(ctx)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	flags.String("addr", "", "HTTP listen address")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("ledger", "", "Ledger backend (xlsx, postgres, memory)")
	flags.String("ledger-path", "", "Workbook path for the xlsx backend")
	flags.String("ledger-dsn", "", "Connection string for the postgres backend")
	flags.String("tz", "", "Business timezone")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
