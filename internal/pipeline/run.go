package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
	"github.com/leapstack-labs/querypipe/pkg/panics"
)

// Run executes a single query and shapes the response envelope:
//
//	{"data": {"<action><ModelName>": <shaped result>}}
//
// A non-empty txID scopes the query to that explicit transaction; an
// unknown id fails before the compiler or interpreter is ever reached.
func (e *Executor) Run(ctx context.Context, query core.JSONQuery, txID string) (map[string]any, error) {
	shaped, err := e.execute(ctx, query, txID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"data": map[string]any{query.ResponseKey(): shaped},
	}, nil
}

// execute runs one query end to end and returns the shaped result.
func (e *Executor) execute(ctx context.Context, query core.JSONQuery, txID string) (any, error) {
	q, err := e.resolveQueryable(query, txID)
	if err != nil {
		return nil, err
	}

	plan, err := e.compile(query)
	if err != nil {
		return nil, err
	}

	// A standalone query may open its own implicit transaction inside the
	// interpreter; a query already scoped to an explicit transaction may
	// not.
	result, err := e.interp.Run(ctx, plan, q, InterpreterOptions{
		AllowTransaction: txID == "",
		OnQuery:          e.appendLog,
	})
	if err != nil {
		return nil, err
	}
	return shapeResult(result), nil
}

// resolveQueryable picks the transaction-scoped handle when txID is given,
// the ambient session otherwise. The action label is passed through to the
// transaction manager for diagnostics.
func (e *Executor) resolveQueryable(query core.JSONQuery, txID string) (capture.Queryable, error) {
	if txID == "" {
		return e.session, nil
	}
	return e.txm.Get(txID, query.Action)
}

// compile serializes the query and compiles it under a panic-bridge guard,
// so a foreign abort surfaces as an ordinary error instead of crashing the
// host.
func (e *Executor) compile(query core.JSONQuery) ([]byte, error) {
	raw, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query: %w", err)
	}

	e.compileMu.Lock()
	defer e.compileMu.Unlock()

	var plan []byte
	err = panics.WithLocalHandler(compilerModule, func() error {
		p, cerr := e.compiler.Compile(raw)
		if cerr != nil {
			return cerr
		}
		plan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// shapeResult maps a numeric interpreter result to {"count": N}; every
// other shape passes through unmodified.
func shapeResult(result any) any {
	switch v := result.(type) {
	case int:
		return map[string]any{"count": int64(v)}
	case int32:
		return map[string]any{"count": int64(v)}
	case int64:
		return map[string]any{"count": v}
	case uint:
		return map[string]any{"count": int64(v)}
	case uint32:
		return map[string]any{"count": int64(v)}
	case uint64:
		return map[string]any{"count": int64(v)}
	case float32:
		return map[string]any{"count": int64(v)}
	case float64:
		return map[string]any{"count": int64(v)}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return map[string]any{"count": n}
		}
		return result
	default:
		return result
	}
}
