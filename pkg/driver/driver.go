// Package driver defines the capability interface every SQL backend adapter
// implements, plus the shared database/sql plumbing concrete adapters embed.
//
// Concrete adapter implementations live in pkg/drivers/ subdirectories and
// are selected by the exhaustive provider switch in pkg/drivers.
package driver

import (
	"context"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// Queryable is anything capable of executing raw SQL: the ambient connection
// owned by an adapter, or a transaction-scoped handle owned by the
// transaction manager. Whoever holds the handle owns it exclusively.
type Queryable interface {
	// Provider returns the backend family this handle talks to.
	Provider() core.Provider

	// QueryRaw executes a query and materializes the full result set.
	QueryRaw(ctx context.Context, query string, args []any) (*core.ResultSet, error)

	// ExecuteRaw executes a statement and returns the affected row count.
	ExecuteRaw(ctx context.Context, query string, args []any) (int64, error)
}

// Adapter is the uniform capability interface over one concrete backend
// connection. An adapter is created once per session by the pkg/drivers
// factory and disposed explicitly.
type Adapter interface {
	Queryable

	// Info describes the adapter: provider family, concrete name, and
	// capability flags.
	Info() core.AdapterInfo

	// ConnectionInfo reports backend connection details. The capability is
	// optional: adapters that cannot supply it return ok=false.
	ConnectionInfo() (*core.ConnectionInfo, bool)

	// Begin opens a backend transaction at the given isolation level and
	// returns its scoped handle.
	Begin(ctx context.Context, level core.IsolationLevel) (Transaction, error)

	// ExecuteScript runs a multi-statement SQL script.
	ExecuteScript(ctx context.Context, script string) error

	// Dispose closes the underlying connection and releases resources.
	Dispose() error
}

// Transaction is a transaction-scoped Queryable. Statements issued through
// it share one backend connection, so callers must serialize use.
type Transaction interface {
	Queryable

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
