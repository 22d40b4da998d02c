// Package mysql provides the driver adapter for MySQL-compatible backends,
// including edge-hosted stores that speak the MySQL wire protocol.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
)

// MySQL's placeholder limit per prepared statement.
const maxBindValues = 65535

// Adapter implements driver.Adapter for MySQL-compatible backends.
type Adapter struct {
	driver.BaseSQLAdapter
}

// New opens a MySQL connection. If logger is nil, a discard logger is used.
func New(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := cfg.URL
	if dsn == "" {
		dsn = buildDSN(cfg)
	}

	logger.Debug("connecting to mysql", slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &Adapter{
		BaseSQLAdapter: driver.BaseSQLAdapter{
			DB:     db,
			Cfg:    cfg,
			Logger: logger,
			Tag:    core.ProviderMySQL,
			Describe: core.AdapterInfo{
				Provider: core.ProviderMySQL,
				Name:     "mysql",
			},
		},
	}, nil
}

// ConnectionInfo reports the connected database as the schema. MySQL has no
// separate schema concept.
func (a *Adapter) ConnectionInfo() (*core.ConnectionInfo, bool) {
	return &core.ConnectionInfo{Schema: a.Cfg.Database, MaxBindValues: maxBindValues}, true
}

// buildDSN constructs a go-sql-driver DSN from the discrete config fields.
func buildDSN(cfg core.DatabaseConfig) string {
	mc := gomysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = fmt.Sprintf("%s:%d", host, port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if len(cfg.Options) > 0 {
		mc.Params = map[string]string{}
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}
