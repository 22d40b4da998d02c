package recorder

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
)

// NotRecordedError is returned when a replayed query has no recording.
// A miss never falls back to a live backend.
type NotRecordedError struct {
	Key string
}

func (e *NotRecordedError) Error() string {
	return fmt.Sprintf("query not recorded: %s", e.Key)
}

// Replayer exposes the same session shape as the capturing adapter but
// answers raw queries from a recording store instead of a live backend,
// guaranteeing deterministic, I/O-free replays.
type Replayer struct {
	store    *Recordings
	reg      *capture.Registry
	provider core.Provider
}

// NewReplayer builds a replayer over store for the given provider family
// (the provider picks the placeholder dialect for key normalization).
func NewReplayer(store *Recordings, provider core.Provider) *Replayer {
	return &Replayer{store: store, reg: capture.NewRegistry(), provider: provider}
}

// Provider returns the provider family the recordings were made against.
func (p *Replayer) Provider() core.Provider {
	return p.provider
}

// Info describes the replayer as a synthetic adapter.
func (p *Replayer) Info() core.AdapterInfo {
	return core.AdapterInfo{Provider: p.provider, Name: string(p.provider) + "+replay"}
}

// Registry returns the replayer's own error registry.
func (p *Replayer) Registry() *capture.Registry {
	return p.reg
}

// QueryRaw answers from the store. A miss fails loudly rather than
// returning an empty result or touching the network.
func (p *Replayer) QueryRaw(_ context.Context, query string, args []any) capture.Result[*core.ResultSet] {
	key := Key(p.provider, query, args)
	res, ok := p.store.Get(key)
	if !ok {
		return capture.ErrResult[*core.ResultSet](p.reg.Register(&NotRecordedError{Key: key}))
	}
	return res
}

// ExecuteRaw is unsupported in replay mode.
func (p *Replayer) ExecuteRaw(_ context.Context, _ string, _ []any) capture.Result[int64] {
	return capture.ErrResult[int64](p.reg.Register(fmt.Errorf("raw execute: %w", ErrRecordingUnsupported)))
}

// Begin is unsupported in replay mode.
func (p *Replayer) Begin(_ context.Context, _ core.IsolationLevel) capture.Result[capture.Tx] {
	return capture.ErrResult[capture.Tx](p.reg.Register(fmt.Errorf("transaction context: %w", ErrRecordingUnsupported)))
}

// ExecuteScript is unsupported in replay mode.
func (p *Replayer) ExecuteScript(_ context.Context, _ string) capture.Result[capture.Unit] {
	return capture.ErrResult[capture.Unit](p.reg.Register(fmt.Errorf("script execution: %w", ErrRecordingUnsupported)))
}

// ConnectionInfo is unsupported in replay mode.
func (p *Replayer) ConnectionInfo() capture.Result[*core.ConnectionInfo] {
	return capture.ErrResult[*core.ConnectionInfo](p.reg.Register(fmt.Errorf("connection info: %w", ErrRecordingUnsupported)))
}

// Dispose is a no-op: there is no live backend to release.
func (p *Replayer) Dispose() capture.Result[capture.Unit] {
	return capture.OKResult(capture.Unit{})
}
