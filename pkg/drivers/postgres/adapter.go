// Package postgres provides the PostgreSQL driver adapter, in both its
// TCP and unix-socket flavors.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
)

// Postgres caps bind parameters at 65535 per statement (int16 wire field).
const maxBindValues = 65535

// Adapter implements driver.Adapter for PostgreSQL via pgx's database/sql
// bridge.
type Adapter struct {
	driver.BaseSQLAdapter
}

// New opens a PostgreSQL connection over TCP.
// If logger is nil, a discard logger is used.
func New(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	return open(ctx, cfg, logger, "postgres", false)
}

// NewSocket opens a PostgreSQL connection over a unix domain socket.
// cfg.Host carries the socket directory (e.g. /var/run/postgresql).
func NewSocket(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (*Adapter, error) {
	return open(ctx, cfg, logger, "postgres+socket", true)
}

func open(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger, name string, socket bool) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := cfg.URL
	if dsn == "" {
		dsn = buildDSN(cfg, socket)
	}

	logger.Debug("connecting to postgres", slog.String("adapter", name), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Adapter{
		BaseSQLAdapter: driver.BaseSQLAdapter{
			DB:     db,
			Cfg:    cfg,
			Logger: logger,
			Tag:    core.ProviderPostgres,
			Describe: core.AdapterInfo{
				Provider:              core.ProviderPostgres,
				Name:                  name,
				SupportsRelationJoins: true,
			},
		},
	}, nil
}

// ConnectionInfo reports the active schema and the backend's bind limit.
func (a *Adapter) ConnectionInfo() (*core.ConnectionInfo, bool) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &core.ConnectionInfo{Schema: schema, MaxBindValues: maxBindValues}, true
}

// buildDSN constructs a key=value PostgreSQL connection string. For the
// socket flavor, host is the socket directory and sslmode is forced off.
func buildDSN(cfg core.DatabaseConfig, socket bool) string {
	host := cfg.Host
	if host == "" {
		if socket {
			host = "/var/run/postgresql"
		} else {
			host = "localhost"
		}
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if !socket && cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cfg.Schema)
	}
	return dsn
}
