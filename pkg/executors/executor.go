// Package executors previews and applies legacy imports against the ledger.
package executors

import (
	"github.com/charmbracelet/log"

	"github.com/yurifrl/compta/pkg/importer"
	"github.com/yurifrl/compta/pkg/ledger"
)

type Executor struct {
	logger   *log.Logger
	ledger   ledger.Store
	importer *importer.Importer
}

func New(logger *log.Logger, store ledger.Store, imp *importer.Importer) *Executor {
	return &Executor{
		logger:   logger,
		ledger:   store,
		importer: imp,
	}
}
