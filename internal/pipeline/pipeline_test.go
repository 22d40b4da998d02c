package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querypipe/internal/testutil"
	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/txmanager"
)

// fakeSession satisfies capture.Session; the pipeline only ever hands it to
// the interpreter, so the query methods are inert.
type fakeSession struct {
	reg *capture.Registry
}

func newFakeSession() *fakeSession {
	return &fakeSession{reg: capture.NewRegistry()}
}

func (f *fakeSession) Provider() core.Provider { return core.ProviderSQLite }

func (f *fakeSession) Info() core.AdapterInfo {
	return core.AdapterInfo{Provider: core.ProviderSQLite, Name: "sqlite"}
}

func (f *fakeSession) Registry() *capture.Registry { return f.reg }

func (f *fakeSession) QueryRaw(_ context.Context, _ string, _ []any) capture.Result[*core.ResultSet] {
	return capture.OKResult(core.EmptyResultSet())
}

func (f *fakeSession) ExecuteRaw(_ context.Context, _ string, _ []any) capture.Result[int64] {
	return capture.OKResult(int64(0))
}

func (f *fakeSession) ConnectionInfo() capture.Result[*core.ConnectionInfo] {
	return capture.OKResult(&core.ConnectionInfo{Schema: "main"})
}

func (f *fakeSession) Begin(_ context.Context, _ core.IsolationLevel) capture.Result[capture.Tx] {
	return capture.ErrResult[capture.Tx](f.reg.Register(assert.AnError))
}

func (f *fakeSession) ExecuteScript(_ context.Context, _ string) capture.Result[capture.Unit] {
	return capture.OKResult(capture.Unit{})
}

func (f *fakeSession) Dispose() capture.Result[capture.Unit] {
	return capture.OKResult(capture.Unit{})
}

// fakeTxQueryable marks a transaction-scoped handle distinct from the
// ambient session.
type fakeTxQueryable struct{ fakeSession }

// echoCompiler passes the serialized query through as the plan.
type echoCompiler struct {
	mu    sync.Mutex
	calls int
}

func (c *echoCompiler) Compile(query []byte) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return query, nil
}

// panicCompiler simulates a foreign abort inside the compiled module.
type panicCompiler struct{ detail string }

func (c *panicCompiler) Compile(_ []byte) ([]byte, error) {
	panic(c.detail)
}

type interpCall struct {
	key     string
	allowTx bool
	q       capture.Queryable
}

// fakeInterp decodes the echoed plan back into the query and answers from
// scripted per-response-key results.
type fakeInterp struct {
	mu      sync.Mutex
	calls   []interpCall
	results map[string]any
	errs    map[string]error
	events  []core.QueryEvent
}

func (f *fakeInterp) Run(_ context.Context, plan []byte, q capture.Queryable, opts InterpreterOptions) (any, error) {
	var query core.JSONQuery
	if err := json.Unmarshal(plan, &query); err != nil {
		return nil, err
	}
	key := query.ResponseKey()

	f.mu.Lock()
	f.calls = append(f.calls, interpCall{key: key, allowTx: opts.AllowTransaction, q: q})
	f.mu.Unlock()

	if opts.OnQuery != nil {
		for _, ev := range f.events {
			opts.OnQuery(ev)
		}
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.results[key], nil
}

func (f *fakeInterp) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInterp) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.calls))
	for i, c := range f.calls {
		keys[i] = c.key
	}
	return keys
}

// fakeTxm scripts the transaction manager without real backend state.
type fakeTxm struct {
	mu          sync.Mutex
	id          string
	tx          capture.Queryable
	started     []core.TransactionOptions
	commits     []string
	rollbacks   []string
	rollbackErr error
	commitErr   error
}

func (f *fakeTxm) Start(_ context.Context, opts core.TransactionOptions) (core.TxInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, opts)
	return core.TxInfo{ID: f.id, Status: core.TxStatusOpen}, nil
}

func (f *fakeTxm) Get(id, action string) (capture.Queryable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.id && f.tx != nil {
		return f.tx, nil
	}
	return nil, &txmanager.TransactionNotFoundError{ID: id, Action: action}
}

func (f *fakeTxm) Commit(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, id)
	return f.commitErr
}

func (f *fakeTxm) Rollback(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks = append(f.rollbacks, id)
	return f.rollbackErr
}

func query(action, model string) core.JSONQuery {
	return core.JSONQuery{Action: action, ModelName: model}
}

func TestRunShapesEnvelope(t *testing.T) {
	interp := &fakeInterp{results: map[string]any{
		"createOneUser": map[string]any{"id": int64(1)},
	}}
	e := New(newFakeSession(), &echoCompiler{}, interp, &fakeTxm{}, nil)

	resp, err := e.Run(context.Background(), query("createOne", "User"), "")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"data": map[string]any{
			"createOneUser": map[string]any{"id": int64(1)},
		},
	}, resp)
}

func TestRunImplicitTransactionGating(t *testing.T) {
	session := newFakeSession()
	tx := &fakeTxQueryable{}
	interp := &fakeInterp{}
	txm := &fakeTxm{id: "tx-1", tx: tx}
	e := New(session, &echoCompiler{}, interp, txm, nil)

	t.Run("standalone query may open its own transaction", func(t *testing.T) {
		_, err := e.Run(context.Background(), query("findMany", "User"), "")
		require.NoError(t, err)

		last := interp.calls[len(interp.calls)-1]
		assert.True(t, last.allowTx)
		assert.Same(t, capture.Queryable(session), last.q)
	})

	t.Run("transaction-scoped query may not", func(t *testing.T) {
		_, err := e.Run(context.Background(), query("findMany", "User"), "tx-1")
		require.NoError(t, err)

		last := interp.calls[len(interp.calls)-1]
		assert.False(t, last.allowTx)
		assert.Same(t, capture.Queryable(tx), last.q)
	})
}

func TestRunUnknownTransactionID(t *testing.T) {
	compiler := &echoCompiler{}
	interp := &fakeInterp{}
	e := New(newFakeSession(), compiler, interp, &fakeTxm{}, nil)

	_, err := e.Run(context.Background(), query("findMany", "User"), "ghost")
	require.Error(t, err)
	assert.Equal(t, "No transaction with id ghost found. Please call startTx first.", err.Error())

	// Resolution fails before compilation or interpretation is reached.
	assert.Zero(t, compiler.calls)
	assert.Zero(t, interp.callCount())
}

func TestRunNumericResultShaping(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   any
	}{
		{name: "int", result: 3, want: map[string]any{"count": int64(3)}},
		{name: "int64", result: int64(5), want: map[string]any{"count": int64(5)}},
		{name: "uint32", result: uint32(7), want: map[string]any{"count": int64(7)}},
		{name: "float64", result: float64(2), want: map[string]any{"count": int64(2)}},
		{name: "json number", result: json.Number("11"), want: map[string]any{"count": int64(11)}},
		{name: "row result passes through", result: map[string]any{"id": int64(1)}, want: map[string]any{"id": int64(1)}},
		{name: "string passes through", result: "ok", want: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interp := &fakeInterp{results: map[string]any{"deleteManyUser": tt.result}}
			e := New(newFakeSession(), &echoCompiler{}, interp, &fakeTxm{}, nil)

			resp, err := e.Run(context.Background(), query("deleteMany", "User"), "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp["data"].(map[string]any)["deleteManyUser"])
		})
	}
}

func TestRunCompilerPanicIsBridged(t *testing.T) {
	interp := &fakeInterp{}
	e := New(newFakeSession(), &panicCompiler{detail: "boom"}, interp, &fakeTxm{}, nil)

	_, err := e.Run(context.Background(), query("findMany", "User"), "")
	require.Error(t, err)
	assert.Equal(t, "Panic in query-compiler: boom", err.Error())
	assert.Zero(t, interp.callCount())

	// The bridge must be fully restored: a second run behaves identically.
	_, err = e.Run(context.Background(), query("findMany", "User"), "")
	require.Error(t, err)
	assert.Equal(t, "Panic in query-compiler: boom", err.Error())
}

func TestRunCompilerErrorPassesThrough(t *testing.T) {
	interp := &fakeInterp{}
	e := New(newFakeSession(), &failCompiler{}, interp, &fakeTxm{}, nil)

	_, err := e.Run(context.Background(), query("findMany", "User"), "")
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, interp.callCount())
}

type failCompiler struct{}

func (failCompiler) Compile(_ []byte) ([]byte, error) { return nil, assert.AnError }

func TestRunBatchIndependent(t *testing.T) {
	interp := &fakeInterp{results: map[string]any{
		"findManyUser": []any{"users"},
		"findManyPost": []any{"posts"},
		"countComment": int64(9),
	}}
	e := New(newFakeSession(), &echoCompiler{}, interp, &fakeTxm{}, nil)

	resp, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch: []core.JSONQuery{
			query("findMany", "User"),
			query("findMany", "Post"),
			query("count", "Comment"),
		},
	})
	require.NoError(t, err)

	// Results line up positionally with the input, concurrency aside.
	results := resp["batchResult"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, []any{"users"}, results[0])
	assert.Equal(t, []any{"posts"}, results[1])
	assert.Equal(t, map[string]any{"count": int64(9)}, results[2])
}

func TestRunBatchIndependentUsesAmbientSession(t *testing.T) {
	session := newFakeSession()
	tx := &fakeTxQueryable{}
	interp := &fakeInterp{}
	// An open explicit transaction exists, but independent items must not
	// share its handle: they run concurrently, and only the session's
	// pooled connections tolerate that.
	txm := &fakeTxm{id: "tx-1", tx: tx}
	e := New(session, &echoCompiler{}, interp, txm, nil)

	_, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch: []core.JSONQuery{
			query("findMany", "User"),
			query("findMany", "Post"),
		},
	})
	require.NoError(t, err)

	require.Equal(t, 2, interp.callCount())
	for _, c := range interp.calls {
		assert.Same(t, capture.Queryable(session), c.q)
		assert.True(t, c.allowTx)
	}
}

func TestRunBatchIndependentFailureDoesNotCancelSiblings(t *testing.T) {
	interp := &fakeInterp{
		results: map[string]any{"findManyUser": []any{}, "findManyPost": []any{}},
		errs:    map[string]error{"findManyTag": assert.AnError},
	}
	txm := &fakeTxm{}
	e := New(newFakeSession(), &echoCompiler{}, interp, txm, nil)

	_, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch: []core.JSONQuery{
			query("findMany", "User"),
			query("findMany", "Tag"),
			query("findMany", "Post"),
		},
	})
	require.ErrorIs(t, err, assert.AnError)

	// Every sibling ran to completion; nothing is rolled back because the
	// items never shared a transaction.
	assert.Equal(t, 3, interp.callCount())
	assert.Empty(t, txm.rollbacks)
}

func TestRunBatchTransactional(t *testing.T) {
	interp := &fakeInterp{results: map[string]any{
		"createOneUser": map[string]any{"id": int64(1)},
		"createOnePost": map[string]any{"id": int64(2)},
	}}
	tx := &fakeTxQueryable{}
	txm := &fakeTxm{id: "tx-9", tx: tx}
	e := New(newFakeSession(), &echoCompiler{}, interp, txm, nil)

	resp, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch: []core.JSONQuery{
			query("createOne", "User"),
			query("createOne", "Post"),
		},
		Transaction: &core.BatchTransactionOpts{IsolationLevel: "Serializable"},
	})
	require.NoError(t, err)

	// Strict input order on the shared transaction handle.
	assert.Equal(t, []string{"createOneUser", "createOnePost"}, interp.callOrder())
	for _, c := range interp.calls {
		assert.Same(t, capture.Queryable(tx), c.q)
		assert.False(t, c.allowTx)
	}

	require.Len(t, txm.started, 1)
	assert.Equal(t, "Serializable", txm.started[0].IsolationLevel)
	assert.Equal(t, []string{"tx-9"}, txm.commits)
	assert.Empty(t, txm.rollbacks)

	results := resp["batchResult"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, map[string]any{"id": int64(1)}, results[0])
	assert.Equal(t, map[string]any{"id": int64(2)}, results[1])
}

func TestRunBatchTransactionalFailureRollsBackOnce(t *testing.T) {
	interp := &fakeInterp{
		results: map[string]any{"createOneUser": map[string]any{"id": int64(1)}},
		errs:    map[string]error{"createOnePost": assert.AnError},
	}
	tx := &fakeTxQueryable{}
	txm := &fakeTxm{id: "tx-9", tx: tx}
	e := New(newFakeSession(), &echoCompiler{}, interp, txm, nil)

	_, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch: []core.JSONQuery{
			query("createOne", "User"),
			query("createOne", "Post"),
			query("createOne", "Tag"),
		},
		Transaction: &core.BatchTransactionOpts{},
	})
	require.ErrorIs(t, err, assert.AnError)

	// The failing item stops the batch: the third item never runs, the
	// transaction is rolled back exactly once, nothing commits.
	assert.Equal(t, []string{"createOneUser", "createOnePost"}, interp.callOrder())
	assert.Equal(t, []string{"tx-9"}, txm.rollbacks)
	assert.Empty(t, txm.commits)
}

func TestRunBatchTransactionalRollbackErrorIsSwallowed(t *testing.T) {
	itemErr := &txmanager.TransactionNotFoundError{ID: "x", Action: "probe"}
	interp := &fakeInterp{errs: map[string]error{"createOneUser": itemErr}}
	txm := &fakeTxm{id: "tx-9", tx: &fakeTxQueryable{}, rollbackErr: assert.AnError}
	e := New(newFakeSession(), &echoCompiler{}, interp, txm, testutil.NewTestLogger(t))

	_, err := e.RunBatch(context.Background(), core.BatchQuery{
		Batch:       []core.JSONQuery{query("createOne", "User")},
		Transaction: &core.BatchTransactionOpts{},
	})

	// The caller sees the original item failure, not the rollback failure.
	require.ErrorIs(t, err, itemErr)
	assert.Equal(t, []string{"tx-9"}, txm.rollbacks)
}

func TestRunBatchEmpty(t *testing.T) {
	e := New(newFakeSession(), &echoCompiler{}, &fakeInterp{}, &fakeTxm{}, nil)

	resp, err := e.RunBatch(context.Background(), core.BatchQuery{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"batchResult": []any{}}, resp)
}

func TestQueryLog(t *testing.T) {
	ev := core.QueryEvent{
		Query:     "SELECT 1",
		Params:    "[]",
		Duration:  1200,
		Timestamp: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	interp := &fakeInterp{events: []core.QueryEvent{ev}}
	e := New(newFakeSession(), &echoCompiler{}, interp, &fakeTxm{}, nil)

	_, err := e.Run(context.Background(), query("findMany", "User"), "")
	require.NoError(t, err)

	logs := e.Logs()
	require.Len(t, logs, 1)

	var decoded core.QueryEvent
	require.NoError(t, json.Unmarshal([]byte(logs[0]), &decoded))
	assert.Equal(t, ev, decoded)

	e.ClearLogs()
	assert.Empty(t, e.Logs())
}
