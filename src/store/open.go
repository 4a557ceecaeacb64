package store

import (
	"context"
	"fmt"

	"github.com/square-key-labs/strawgo-lisa/src/config"
)

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.DSN)
	case config.DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
