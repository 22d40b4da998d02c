package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/driver"
)

// fakeDriver is a scriptable driver.Adapter.
type fakeDriver struct {
	rs          *core.ResultSet
	queryErr    error
	affected    int64
	execErr     error
	connInfo    *core.ConnectionInfo
	beginErr    error
	tx          *fakeDriverTx
	scriptErr   error
	disposeErr  error
	disposed    bool
	queryCalls  int
	execCalls   int
	scriptCalls int
}

func (f *fakeDriver) Provider() core.Provider { return core.ProviderPostgres }

func (f *fakeDriver) Info() core.AdapterInfo {
	return core.AdapterInfo{Provider: core.ProviderPostgres, Name: "postgres"}
}

func (f *fakeDriver) QueryRaw(_ context.Context, _ string, _ []any) (*core.ResultSet, error) {
	f.queryCalls++
	return f.rs, f.queryErr
}

func (f *fakeDriver) ExecuteRaw(_ context.Context, _ string, _ []any) (int64, error) {
	f.execCalls++
	return f.affected, f.execErr
}

func (f *fakeDriver) ConnectionInfo() (*core.ConnectionInfo, bool) {
	return f.connInfo, f.connInfo != nil
}

func (f *fakeDriver) Begin(_ context.Context, _ core.IsolationLevel) (driver.Transaction, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func (f *fakeDriver) ExecuteScript(_ context.Context, _ string) error {
	f.scriptCalls++
	return f.scriptErr
}

func (f *fakeDriver) Dispose() error {
	f.disposed = true
	return f.disposeErr
}

type fakeDriverTx struct {
	rs          *core.ResultSet
	queryErr    error
	commitErr   error
	rollbackErr error
	committed   int
	rolledBack  int
}

func (f *fakeDriverTx) Provider() core.Provider { return core.ProviderPostgres }

func (f *fakeDriverTx) QueryRaw(_ context.Context, _ string, _ []any) (*core.ResultSet, error) {
	return f.rs, f.queryErr
}

func (f *fakeDriverTx) ExecuteRaw(_ context.Context, _ string, _ []any) (int64, error) {
	return 0, nil
}

func (f *fakeDriverTx) Commit(_ context.Context) error {
	f.committed++
	return f.commitErr
}

func (f *fakeDriverTx) Rollback(_ context.Context) error {
	f.rolledBack++
	return f.rollbackErr
}

func TestAdapterQueryRawSuccess(t *testing.T) {
	rs := &core.ResultSet{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}
	adapter := NewAdapter(&fakeDriver{rs: rs}, nil)

	res := adapter.QueryRaw(context.Background(), "SELECT id FROM users", nil)
	require.True(t, res.OK)
	assert.Same(t, rs, res.Value)
	assert.Equal(t, 0, adapter.Registry().Len())
}

func TestAdapterQueryRawFailureIsCaptured(t *testing.T) {
	adapter := NewAdapter(&fakeDriver{queryErr: errors.New("syntax error")}, nil)

	res := adapter.QueryRaw(context.Background(), "SELEC", nil)
	require.False(t, res.OK)
	assert.Equal(t, 1, adapter.Registry().Len())

	_, err := res.Unpack(adapter.Registry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Equal(t, 0, adapter.Registry().Len(), "unpack consumes the handle")
}

func TestAdapterExecuteRaw(t *testing.T) {
	adapter := NewAdapter(&fakeDriver{affected: 7}, nil)

	res := adapter.ExecuteRaw(context.Background(), "UPDATE users SET active = true", nil)
	require.True(t, res.OK)
	assert.Equal(t, int64(7), res.Value)
}

func TestAdapterConnectionInfoCapabilityGated(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		adapter := NewAdapter(&fakeDriver{connInfo: &core.ConnectionInfo{Schema: "public"}}, nil)
		res := adapter.ConnectionInfo()
		require.True(t, res.OK)
		assert.Equal(t, "public", res.Value.Schema)
	})

	t.Run("absent", func(t *testing.T) {
		adapter := NewAdapter(&fakeDriver{}, nil)
		res := adapter.ConnectionInfo()
		require.False(t, res.OK)

		detail := adapter.Registry().Consume(res.Error)
		assert.Equal(t, KindUnsupported, detail.Kind)
	})
}

func TestAdapterBeginWrapsTransaction(t *testing.T) {
	inner := &fakeDriverTx{rs: &core.ResultSet{Columns: []string{"n"}}}
	adapter := NewAdapter(&fakeDriver{tx: inner}, nil)

	res := adapter.Begin(context.Background(), core.IsolationSerializable)
	require.True(t, res.OK)

	tx := res.Value
	qres := tx.QueryRaw(context.Background(), "SELECT 1 AS n", nil)
	require.True(t, qres.OK)

	cres := tx.Commit(context.Background())
	require.True(t, cres.OK)
	assert.Equal(t, 1, inner.committed)
}

func TestAdapterTransactionFailuresShareRegistry(t *testing.T) {
	inner := &fakeDriverTx{rollbackErr: errors.New("connection lost")}
	adapter := NewAdapter(&fakeDriver{tx: inner}, nil)

	tx := adapter.Begin(context.Background(), "").Value
	res := tx.Rollback(context.Background())
	require.False(t, res.OK)

	detail := adapter.Registry().Consume(res.Error)
	assert.Contains(t, detail.Message, "connection lost")
}

func TestAdapterDispose(t *testing.T) {
	inner := &fakeDriver{}
	adapter := NewAdapter(inner, nil)

	res := adapter.Dispose()
	require.True(t, res.OK)
	assert.True(t, inner.disposed)
}

func TestAdapterExecuteScript(t *testing.T) {
	inner := &fakeDriver{scriptErr: errors.New("script failed")}
	adapter := NewAdapter(inner, nil)

	res := adapter.ExecuteScript(context.Background(), "CREATE TABLE t (id INT)")
	require.False(t, res.OK)
	assert.Equal(t, 1, inner.scriptCalls)
}
