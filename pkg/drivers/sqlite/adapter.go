// Package sqlite provides the embedded SQLite driver adapter backed by the
// cgo-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxBindValues = 32766

// Adapter implements driver.Adapter for embedded SQLite.
type Adapter struct {
	driver.BaseSQLAdapter
}

// New opens (or creates) a SQLite database at cfg.Path. An empty path means
// an in-memory database. If logger is nil, a discard logger is used.
func New(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The embedded engine serializes writers; a single pooled connection
	// avoids SQLITE_BUSY churn and keeps in-memory databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Adapter{
		BaseSQLAdapter: driver.BaseSQLAdapter{
			DB:     db,
			Cfg:    cfg,
			Logger: logger,
			Tag:    core.ProviderSQLite,
			Describe: core.AdapterInfo{
				Provider: core.ProviderSQLite,
				Name:     "sqlite",
			},
		},
	}, nil
}

// ConnectionInfo reports the fixed "main" schema and the bind limit.
func (a *Adapter) ConnectionInfo() (*core.ConnectionInfo, bool) {
	return &core.ConnectionInfo{Schema: "main", MaxBindValues: maxBindValues}, true
}
