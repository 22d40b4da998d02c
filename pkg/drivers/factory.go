// Package drivers is the single setup factory for driver adapters. It
// switches exhaustively over the fixed provider enumeration; adding a
// backend means adding a constant in pkg/core and an arm here, so a new
// provider can never silently fall through unhandled.
package drivers

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
	"github.com/leapstack-labs/querypipe/pkg/drivers/mssql"
	"github.com/leapstack-labs/querypipe/pkg/drivers/mysql"
	"github.com/leapstack-labs/querypipe/pkg/drivers/postgres"
	"github.com/leapstack-labs/querypipe/pkg/drivers/sqlite"
	"github.com/leapstack-labs/querypipe/pkg/drivers/turso"
)

// Open constructs the adapter for cfg.Provider/cfg.Variant and verifies the
// connection. The returned adapter lives for the whole session and must be
// disposed explicitly.
func Open(ctx context.Context, cfg core.DatabaseConfig, logger *slog.Logger) (driver.Adapter, error) {
	switch cfg.Provider {
	case core.ProviderPostgres:
		switch cfg.Variant {
		case core.VariantDefault:
			return postgres.New(ctx, cfg, logger)
		case core.VariantSocket:
			return postgres.NewSocket(ctx, cfg, logger)
		default:
			return nil, &driver.UnknownVariantError{Provider: cfg.Provider, Variant: cfg.Variant}
		}

	case core.ProviderMySQL:
		switch cfg.Variant {
		// The edge-hosted store speaks the same wire protocol; one adapter
		// covers both.
		case core.VariantDefault, core.VariantEdge:
			return mysql.New(ctx, cfg, logger)
		default:
			return nil, &driver.UnknownVariantError{Provider: cfg.Provider, Variant: cfg.Variant}
		}

	case core.ProviderSQLite:
		switch cfg.Variant {
		case core.VariantDefault:
			return sqlite.New(ctx, cfg, logger)
		case core.VariantEdge:
			return turso.New(ctx, cfg, logger)
		default:
			return nil, &driver.UnknownVariantError{Provider: cfg.Provider, Variant: cfg.Variant}
		}

	case core.ProviderSQLServer:
		switch cfg.Variant {
		case core.VariantDefault:
			return mssql.New(ctx, cfg, logger)
		default:
			return nil, &driver.UnknownVariantError{Provider: cfg.Provider, Variant: cfg.Variant}
		}

	default:
		return nil, &driver.UnknownProviderError{Provider: cfg.Provider, Available: core.Providers()}
	}
}
