// Package rawsql provides the pass-through compiler/interpreter pair the
// CLI host wires into the pipeline: queries carry raw SQL in their
// arguments, the "plan" is that SQL plus its parameters, and the
// interpreter relays it to the queryable. It exists so the pipeline can be
// exercised end to end without a full relational compiler.
package rawsql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leapstack-labs/querypipe/internal/pipeline"
	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
)

// Supported raw actions.
const (
	ActionQueryRaw   = "queryRaw"
	ActionExecuteRaw = "executeRaw"
)

type plan struct {
	Kind   string `json:"kind"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// Compiler compiles queryRaw/executeRaw envelopes into pass-through plans.
type Compiler struct{}

// Compile extracts the SQL text and parameters from the query arguments.
func (Compiler) Compile(query []byte) ([]byte, error) {
	var q core.JSONQuery
	if err := json.Unmarshal(query, &q); err != nil {
		return nil, fmt.Errorf("failed to decode query: %w", err)
	}

	var kind string
	switch q.Action {
	case ActionQueryRaw:
		kind = "query"
	case ActionExecuteRaw:
		kind = "execute"
	default:
		return nil, fmt.Errorf("unsupported raw action %q", q.Action)
	}

	sqlText, _ := q.Query.Arguments["query"].(string)
	if sqlText == "" {
		return nil, fmt.Errorf("raw query requires a %q argument", "query")
	}
	params, _ := q.Query.Arguments["parameters"].([]any)

	return json.Marshal(plan{Kind: kind, SQL: sqlText, Params: params})
}

// Interpreter executes pass-through plans against a capture-shaped
// queryable, resolving failed results against the session's registry.
type Interpreter struct {
	reg *capture.Registry
}

// NewInterpreter creates an interpreter unpacking results against reg.
func NewInterpreter(reg *capture.Registry) *Interpreter {
	return &Interpreter{reg: reg}
}

// Run executes the plan. Execute plans yield the affected-row count; query
// plans yield the rows as a list of column→value records.
func (i *Interpreter) Run(ctx context.Context, planBytes []byte, q capture.Queryable, opts pipeline.InterpreterOptions) (any, error) {
	var p plan
	if err := json.Unmarshal(planBytes, &p); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}

	start := time.Now()
	defer func() {
		if opts.OnQuery == nil {
			return
		}
		params, _ := json.Marshal(p.Params)
		opts.OnQuery(core.QueryEvent{
			Query:     p.SQL,
			Params:    string(params),
			Duration:  time.Since(start).Milliseconds(),
			Timestamp: start,
		})
	}()

	if p.Kind == "execute" {
		return q.ExecuteRaw(ctx, p.SQL, p.Params).Unpack(i.reg)
	}

	rs, err := q.QueryRaw(ctx, p.SQL, p.Params).Unpack(i.reg)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		record := make(map[string]any, len(rs.Columns))
		for c, col := range rs.Columns {
			record[col] = row[c]
		}
		records = append(records, record)
	}
	return records, nil
}
