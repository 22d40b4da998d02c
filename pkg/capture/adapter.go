package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
)

// Queryable is the capture-shaped view of driver.Queryable.
type Queryable interface {
	Provider() core.Provider
	QueryRaw(ctx context.Context, query string, args []any) Result[*core.ResultSet]
	ExecuteRaw(ctx context.Context, query string, args []any) Result[int64]
}

// Session is the capture-shaped view of a whole driver adapter. The
// concrete decorator, the recorder, and the replayer all satisfy it.
type Session interface {
	Queryable

	Info() core.AdapterInfo
	ConnectionInfo() Result[*core.ConnectionInfo]
	Begin(ctx context.Context, level core.IsolationLevel) Result[Tx]
	ExecuteScript(ctx context.Context, script string) Result[Unit]
	Dispose() Result[Unit]
	Registry() *Registry
}

// Tx is the capture-shaped view of driver.Transaction.
type Tx interface {
	Queryable

	Commit(ctx context.Context) Result[Unit]
	Rollback(ctx context.Context) Result[Unit]
}

// Adapter decorates a driver.Adapter so every fallible call returns a
// Result. It wraps the adapter for the adapter's whole lifetime; nothing
// should call the inner adapter directly once wrapped.
type Adapter struct {
	inner driver.Adapter
	reg   *Registry
}

// NewAdapter wraps inner with error capturing backed by reg. A nil reg gets
// a fresh registry.
func NewAdapter(inner driver.Adapter, reg *Registry) *Adapter {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Adapter{inner: inner, reg: reg}
}

// Registry exposes the error registry shared by this adapter and its
// transactions.
func (a *Adapter) Registry() *Registry {
	return a.reg
}

// Provider returns the wrapped adapter's backend family.
func (a *Adapter) Provider() core.Provider {
	return a.inner.Provider()
}

// Info returns the wrapped adapter's descriptor.
func (a *Adapter) Info() core.AdapterInfo {
	return a.inner.Info()
}

// QueryRaw executes a query, capturing any failure.
func (a *Adapter) QueryRaw(ctx context.Context, query string, args []any) Result[*core.ResultSet] {
	rs, err := a.inner.QueryRaw(ctx, query, args)
	if err != nil {
		return ErrResult[*core.ResultSet](a.reg.Register(err))
	}
	return OKResult(rs)
}

// ExecuteRaw executes a statement, capturing any failure.
func (a *Adapter) ExecuteRaw(ctx context.Context, query string, args []any) Result[int64] {
	affected, err := a.inner.ExecuteRaw(ctx, query, args)
	if err != nil {
		return ErrResult[int64](a.reg.Register(err))
	}
	return OKResult(affected)
}

// ConnectionInfo reports connection details. The capability is optional;
// its absence is captured as an unsupported-capability error, not a
// backend failure.
func (a *Adapter) ConnectionInfo() Result[*core.ConnectionInfo] {
	info, ok := a.inner.ConnectionInfo()
	if !ok {
		err := fmt.Errorf("%w: adapter %q does not expose connection info", errors.ErrUnsupported, a.inner.Info().Name)
		return ErrResult[*core.ConnectionInfo](a.reg.Register(err))
	}
	return OKResult(info)
}

// Begin opens a transaction, returning its capture-shaped handle.
func (a *Adapter) Begin(ctx context.Context, level core.IsolationLevel) Result[Tx] {
	tx, err := a.inner.Begin(ctx, level)
	if err != nil {
		return ErrResult[Tx](a.reg.Register(err))
	}
	return OKResult[Tx](&capturedTx{inner: tx, reg: a.reg})
}

// ExecuteScript runs a multi-statement script, capturing any failure.
func (a *Adapter) ExecuteScript(ctx context.Context, script string) Result[Unit] {
	if err := a.inner.ExecuteScript(ctx, script); err != nil {
		return ErrResult[Unit](a.reg.Register(err))
	}
	return OKResult(Unit{})
}

// Dispose closes the wrapped adapter, capturing any failure.
func (a *Adapter) Dispose() Result[Unit] {
	if err := a.inner.Dispose(); err != nil {
		return ErrResult[Unit](a.reg.Register(err))
	}
	return OKResult(Unit{})
}

// capturedTx mirrors the decorator for transaction-scoped handles. It
// shares the owning adapter's registry.
type capturedTx struct {
	inner driver.Transaction
	reg   *Registry
}

func (t *capturedTx) Provider() core.Provider {
	return t.inner.Provider()
}

func (t *capturedTx) QueryRaw(ctx context.Context, query string, args []any) Result[*core.ResultSet] {
	rs, err := t.inner.QueryRaw(ctx, query, args)
	if err != nil {
		return ErrResult[*core.ResultSet](t.reg.Register(err))
	}
	return OKResult(rs)
}

func (t *capturedTx) ExecuteRaw(ctx context.Context, query string, args []any) Result[int64] {
	affected, err := t.inner.ExecuteRaw(ctx, query, args)
	if err != nil {
		return ErrResult[int64](t.reg.Register(err))
	}
	return OKResult(affected)
}

func (t *capturedTx) Commit(ctx context.Context) Result[Unit] {
	if err := t.inner.Commit(ctx); err != nil {
		return ErrResult[Unit](t.reg.Register(err))
	}
	return OKResult(Unit{})
}

func (t *capturedTx) Rollback(ctx context.Context) Result[Unit] {
	if err := t.inner.Rollback(ctx); err != nil {
		return ErrResult[Unit](t.reg.Register(err))
	}
	return OKResult(Unit{})
}
