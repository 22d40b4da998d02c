package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// QueryRaw, ExecuteRaw, Begin, ExecuteScript, and Dispose implementations.
type BaseSQLAdapter struct {
	DB       *sql.DB
	Cfg      core.DatabaseConfig
	Logger   *slog.Logger
	Tag      core.Provider
	Describe core.AdapterInfo
}

// Provider returns the backend family this adapter talks to.
func (b *BaseSQLAdapter) Provider() core.Provider {
	return b.Tag
}

// Info describes the adapter.
func (b *BaseSQLAdapter) Info() core.AdapterInfo {
	return b.Describe
}

// ConnectionInfo is absent by default; adapters with the capability
// override it.
func (b *BaseSQLAdapter) ConnectionInfo() (*core.ConnectionInfo, bool) {
	return nil, false
}

// QueryRaw executes a query and materializes the full result set.
func (b *BaseSQLAdapter) QueryRaw(ctx context.Context, query string, args []any) (*core.ResultSet, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	b.log().Debug("query raw", "provider", b.Tag, "sql", query)
	return scanResultSet(ctx, b.DB, query, args)
}

// ExecuteRaw executes a statement and returns the affected row count.
func (b *BaseSQLAdapter) ExecuteRaw(ctx context.Context, query string, args []any) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	b.log().Debug("execute raw", "provider", b.Tag, "sql", query)
	res, err := b.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some backends cannot report a count; treat as zero rather than
		// failing the whole call.
		b.log().Debug("rows affected unavailable", "error", err)
		return 0, nil
	}
	return affected, nil
}

// Begin opens a backend transaction at the given isolation level.
func (b *BaseSQLAdapter) Begin(ctx context.Context, level core.IsolationLevel) (Transaction, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	tx, err := b.DB.BeginTx(ctx, &sql.TxOptions{Isolation: level.SQLLevel()})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &SQLTransaction{tx: tx, provider: b.Tag, logger: b.log()}, nil
}

// ExecuteScript splits a multi-statement script and executes each statement
// in order on the ambient connection.
func (b *BaseSQLAdapter) ExecuteScript(ctx context.Context, script string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	for _, stmt := range SplitStatements(script) {
		if _, err := b.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute script statement: %w", err)
		}
	}
	return nil
}

// Dispose closes the underlying connection.
func (b *BaseSQLAdapter) Dispose() error {
	if b.DB != nil {
		b.log().Debug("closing database connection", "provider", b.Tag)
		return b.DB.Close()
	}
	return nil
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// SQLTransaction is the transaction-scoped Queryable returned by
// BaseSQLAdapter.Begin.
type SQLTransaction struct {
	tx       *sql.Tx
	provider core.Provider
	logger   *slog.Logger
}

// Provider returns the backend family of the owning adapter.
func (t *SQLTransaction) Provider() core.Provider {
	return t.provider
}

// QueryRaw executes a query on the transaction's connection.
func (t *SQLTransaction) QueryRaw(ctx context.Context, query string, args []any) (*core.ResultSet, error) {
	t.logger.Debug("tx query raw", "provider", t.provider, "sql", query)
	return scanResultSet(ctx, t.tx, query, args)
}

// ExecuteRaw executes a statement on the transaction's connection.
func (t *SQLTransaction) ExecuteRaw(ctx context.Context, query string, args []any) (int64, error) {
	t.logger.Debug("tx execute raw", "provider", t.provider, "sql", query)
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// Commit commits the transaction.
func (t *SQLTransaction) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back.
func (t *SQLTransaction) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// scanResultSet runs a query and decodes every row into Go natives.
func scanResultSet(ctx context.Context, q querier, query string, args []any) (*core.ResultSet, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	types := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		types[i] = ct.DatabaseTypeName()
	}

	rs := &core.ResultSet{Columns: columns, Types: types, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// Drivers hand text columns back as []byte and may reuse the buffer
		// between rows.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return rs, nil
}

// SplitStatements splits a SQL script on statement-terminating semicolons,
// dropping empty fragments. It does not understand string literals
// containing semicolons; scripts are expected to be trusted setup SQL.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
