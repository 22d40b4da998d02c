// Package mssql provides the SQL Server driver adapter.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
)

// SQL Server caps parameters at 2100 per request.
const maxBindValues = 2100

// Adapter implements driver.Adapter for SQL Server.
type Adapter struct {
	driver.BaseSQLAdapter
}

// New opens a SQL Server connection. If logger is nil, a discard logger is
// used.
func New(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := cfg.URL
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	logger.Debug("connecting to sqlserver", slog.String("database", cfg.Database))

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlserver connection: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlserver: %w", err)
	}

	return &Adapter{
		BaseSQLAdapter: driver.BaseSQLAdapter{
			DB:     db,
			Cfg:    cfg,
			Logger: logger,
			Tag:    core.ProviderSQLServer,
			Describe: core.AdapterInfo{
				Provider: core.ProviderSQLServer,
				Name:     "sqlserver",
			},
		},
	}, nil
}

// ConnectionInfo reports the default schema and the parameter limit.
func (a *Adapter) ConnectionInfo() (*core.ConnectionInfo, bool) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "dbo"
	}
	return &core.ConnectionInfo{Schema: schema, MaxBindValues: maxBindValues}, true
}

// buildDSN constructs a sqlserver:// connection URL.
func buildDSN(cfg core.DatabaseConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	u := &url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
