package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
)

// Recordings is the in-memory store shared by a Recorder and the Replayers
// built from it. It lives only for the host process's lifetime.
type Recordings struct {
	mu   sync.Mutex
	data map[string]capture.Result[*core.ResultSet]
}

// NewRecordings creates an empty store.
func NewRecordings() *Recordings {
	return &Recordings{data: make(map[string]capture.Result[*core.ResultSet])}
}

// Put stores a captured result under key, overwriting any previous entry.
func (r *Recordings) Put(key string, res capture.Result[*core.ResultSet]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = res
}

// Get looks a recording up by key.
func (r *Recordings) Get(key string) (capture.Result[*core.ResultSet], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.data[key]
	return res, ok
}

// Len reports the number of stored recordings.
func (r *Recordings) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ErrRecordingUnsupported marks adapter calls the recording mode does not
// capture. Only read-style queries are recorded in this design.
var ErrRecordingUnsupported = fmt.Errorf("%w in recording mode", errors.ErrUnsupported)

// Recorder decorates a capture session: raw queries delegate to the live
// backend and successful results are stored for later replay. Raw execute,
// transaction contexts, and script execution fail fast.
type Recorder struct {
	inner capture.Session
	store *Recordings
}

// NewRecorder wraps inner, writing every query result into store.
func NewRecorder(inner capture.Session, store *Recordings) *Recorder {
	return &Recorder{inner: inner, store: store}
}

// Store returns the recordings accumulated so far.
func (r *Recorder) Store() *Recordings {
	return r.store
}

// Provider returns the wrapped session's backend family.
func (r *Recorder) Provider() core.Provider {
	return r.inner.Provider()
}

// Info returns the wrapped session's descriptor.
func (r *Recorder) Info() core.AdapterInfo {
	return r.inner.Info()
}

// Registry returns the wrapped session's error registry.
func (r *Recorder) Registry() *capture.Registry {
	return r.inner.Registry()
}

// QueryRaw delegates to the live backend, then records a successful result
// under the normalized key. Failed results are not recorded: their error
// handles bind to the live session's registry, which a replayer does not
// share, so replaying the failure could not reproduce the original detail.
// Replaying such a query misses loudly instead.
func (r *Recorder) QueryRaw(ctx context.Context, query string, args []any) capture.Result[*core.ResultSet] {
	res := r.inner.QueryRaw(ctx, query, args)
	if res.OK {
		r.store.Put(Key(r.Provider(), query, args), res)
	}
	return res
}

// ExecuteRaw is unsupported in recording mode.
func (r *Recorder) ExecuteRaw(_ context.Context, _ string, _ []any) capture.Result[int64] {
	return capture.ErrResult[int64](r.Registry().Register(fmt.Errorf("raw execute: %w", ErrRecordingUnsupported)))
}

// Begin is unsupported in recording mode.
func (r *Recorder) Begin(_ context.Context, _ core.IsolationLevel) capture.Result[capture.Tx] {
	return capture.ErrResult[capture.Tx](r.Registry().Register(fmt.Errorf("transaction context: %w", ErrRecordingUnsupported)))
}

// ExecuteScript is unsupported in recording mode.
func (r *Recorder) ExecuteScript(_ context.Context, _ string) capture.Result[capture.Unit] {
	return capture.ErrResult[capture.Unit](r.Registry().Register(fmt.Errorf("script execution: %w", ErrRecordingUnsupported)))
}

// ConnectionInfo delegates to the wrapped session.
func (r *Recorder) ConnectionInfo() capture.Result[*core.ConnectionInfo] {
	return r.inner.ConnectionInfo()
}

// Dispose delegates to the wrapped session. Recordings survive disposal.
func (r *Recorder) Dispose() capture.Result[capture.Unit] {
	return r.inner.Dispose()
}
