package store

import (
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/am"
	"github.com/Capstone-NovoCert/novo/errors"
)

// New builds the store selected by cfg.Backend
func New(cfg am.StoreConfig, log *zap.SugaredLogger) (*PartitionStore, error) {
	opts := Options{EagerLoad: cfg.EagerLoad, Logger: log}

	switch cfg.Backend {
	case am.BackendJSON, "":
		return NewJSON(cfg.ResolvedDir(), opts)
	case am.BackendMemory:
		return NewMemory(opts), nil
	case am.BackendSQLite:
		return NewSQLite(cfg.ResolvedSQLitePath(), opts)
	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unknown store backend %q", cfg.Backend),
			"store.backend must be json, memory or sqlite",
		)
	}
}
