// Package turso provides the edge SQLite driver adapter, speaking the
// libSQL remote protocol via tursodatabase/libsql-client-go.
package turso

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // libsql driver
)

// Adapter implements driver.Adapter for the remote edge flavor of SQLite.
type Adapter struct {
	driver.BaseSQLAdapter
}

// New connects to a libSQL edge database. cfg.URL carries the libsql:// (or
// https://) database URL; cfg.AuthToken, when set, is appended as the
// authToken query parameter. If logger is nil, a discard logger is used.
func New(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("edge sqlite requires a database URL")
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("connecting to edge sqlite", slog.String("url", cfg.URL))

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge sqlite connection: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping edge sqlite: %w", err)
	}

	return &Adapter{
		BaseSQLAdapter: driver.BaseSQLAdapter{
			DB:     db,
			Cfg:    cfg,
			Logger: logger,
			Tag:    core.ProviderSQLite,
			Describe: core.AdapterInfo{
				Provider: core.ProviderSQLite,
				Name:     "sqlite+edge",
			},
		},
	}, nil
}

// ExecuteBatch runs a list of statements as one batch on the remote
// backend and returns the per-statement result sets in order.
//
// An empty statement list returns an empty result slice without contacting
// the backend at all: the remote protocol rejects zero-length batches.
func (a *Adapter) ExecuteBatch(ctx context.Context, stmts []string) ([]*core.ResultSet, error) {
	if len(stmts) == 0 {
		return []*core.ResultSet{}, nil
	}

	results := make([]*core.ResultSet, 0, len(stmts))
	for _, stmt := range stmts {
		rs, err := a.QueryRaw(ctx, stmt, nil)
		if err != nil {
			return nil, fmt.Errorf("batch statement failed: %w", err)
		}
		results = append(results, rs)
	}
	return results, nil
}

// ExecuteScript splits the script and routes it through ExecuteBatch so the
// empty-script case never reaches the backend.
func (a *Adapter) ExecuteScript(ctx context.Context, script string) error {
	_, err := a.ExecuteBatch(ctx, driver.SplitStatements(script))
	return err
}

func buildDSN(cfg core.DatabaseConfig) (string, error) {
	if cfg.AuthToken == "" {
		return cfg.URL, nil
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid edge sqlite URL: %w", err)
	}
	q := u.Query()
	q.Set("authToken", cfg.AuthToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
