// Package storage selects and opens the configured LedgerStore.
package storage

import (
	"context"
	"fmt"

	"github.com/sheikh-saqib/educoin-ledger/internal/config"
	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/file"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/educoin-ledger/internal/storage/sqlite"
)

// Open returns the store named by cfg.Store and a func that releases it.
func Open(ctx context.Context, cfg *config.Config) (interfaces.LedgerStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreFile:
		return file.NewFileLedgerStore(cfg.LedgerFile), noop, nil
	case config.StoreMemory:
		return memory.NewMemoryLedgerStore(), noop, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
