// Package pipeline orchestrates query execution: it resolves the target
// queryable, compiles queries under the panic bridge, runs plans through
// the interpreter, and shapes the response envelope for single queries and
// batches.
//
// The query compiler, the plan interpreter, and the transaction manager are
// collaborators consumed through the interfaces below; the pipeline never
// holds or mutates transaction state itself.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
)

// Compiler turns a serialized query into an execution plan. Compilation may
// abort inside the foreign compiled module; the pipeline guards every call
// with the panic bridge.
type Compiler interface {
	Compile(query []byte) ([]byte, error)
}

// InterpreterOptions configures one interpreter run.
type InterpreterOptions struct {
	// AllowTransaction permits the interpreter to open its own implicit
	// transaction. True only for queries not already scoped to an explicit
	// transaction.
	AllowTransaction bool

	// PlaceholderValues substitutes named plan placeholders.
	PlaceholderValues map[string]any

	// OnQuery receives one event per executed query.
	OnQuery func(core.QueryEvent)
}

// Interpreter executes a compiled plan against a queryable, returning
// either a scalar count or a row-shaped result.
type Interpreter interface {
	Run(ctx context.Context, plan []byte, q capture.Queryable, opts InterpreterOptions) (any, error)
}

// TransactionManager is the sole owner of transaction state. The pipeline
// reaches transactions only through id lookup.
type TransactionManager interface {
	Start(ctx context.Context, opts core.TransactionOptions) (core.TxInfo, error)
	Get(id, action string) (capture.Queryable, error)
	Commit(ctx context.Context, id string) error
	Rollback(ctx context.Context, id string) error
}

// compilerModule names the foreign module in bridged panic messages.
const compilerModule = "query-compiler"

// Executor is the query pipeline root. It owns the ambient session and the
// caller-visible query log; the transaction manager owns every
// transaction-scoped handle.
type Executor struct {
	session  capture.Session
	compiler Compiler
	interp   Interpreter
	txm      TransactionManager
	logger   *slog.Logger

	// compileMu serializes the panic-bridge guarded region: the bridge's
	// handler slot is process-wide and must not be swapped re-entrantly.
	compileMu sync.Mutex

	logMu sync.Mutex
	logs  []string
}

// New builds an executor. If logger is nil, a discard logger is used.
func New(session capture.Session, compiler Compiler, interp Interpreter, txm TransactionManager, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		session:  session,
		compiler: compiler,
		interp:   interp,
		txm:      txm,
		logger:   logger,
	}
}

// Logs returns a copy of the JSON-stringified query-log events emitted so
// far, one entry per interpreter onQuery emission.
func (e *Executor) Logs() []string {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	out := make([]string, len(e.logs))
	copy(out, e.logs)
	return out
}

// ClearLogs discards the accumulated query log.
func (e *Executor) ClearLogs() {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.logs = nil
}

func (e *Executor) appendLog(ev core.QueryEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warn("failed to encode query event", "error", err)
		return
	}
	e.logMu.Lock()
	e.logs = append(e.logs, string(raw))
	e.logMu.Unlock()
}
