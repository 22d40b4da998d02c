// Package txmanager provides the in-process transaction manager: it starts
// backend transactions, hands out their scoped handles by id, and is the
// only component that mutates transaction state.
package txmanager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/querypipe/pkg/capture"
	"github.com/leapstack-labs/querypipe/pkg/core"
)

// TransactionNotFoundError is returned for a lookup of an id that is not,
// or no longer, an open transaction. Lookups by unknown id are always an
// error, never silent.
type TransactionNotFoundError struct {
	ID string

	// Action is the operation that attempted the lookup, for diagnostics.
	Action string
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("No transaction with id %s found. Please call startTx first.", e.ID)
}

type entry struct {
	info core.TxInfo
	tx   capture.Tx
}

// Manager tracks open transactions on one session. At most one live TxInfo
// exists per id; commit or rollback destroys the entry.
type Manager struct {
	session capture.Session
	logger  *slog.Logger

	mu   sync.Mutex
	open map[string]*entry
}

// New creates a manager over session. If logger is nil, a discard logger
// is used.
func New(session capture.Session, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		session: session,
		logger:  logger,
		open:    make(map[string]*entry),
	}
}

// Start begins a transaction at the requested isolation level and registers
// it under a fresh id.
func (m *Manager) Start(ctx context.Context, opts core.TransactionOptions) (core.TxInfo, error) {
	level, err := core.ParseIsolationLevel(opts.IsolationLevel)
	if err != nil {
		return core.TxInfo{}, err
	}

	tx, err := m.session.Begin(ctx, level).Unpack(m.session.Registry())
	if err != nil {
		return core.TxInfo{}, fmt.Errorf("failed to start transaction: %w", err)
	}

	info := core.TxInfo{
		ID:             uuid.NewString(),
		IsolationLevel: level,
		Status:         core.TxStatusOpen,
	}

	m.mu.Lock()
	m.open[info.ID] = &entry{info: info, tx: tx}
	m.mu.Unlock()

	m.logger.Debug("transaction started", "tx_id", info.ID, "isolation_level", string(level))
	return info, nil
}

// Get returns the scoped queryable for an open transaction. action labels
// the operation performing the lookup and appears in logs only.
func (m *Manager) Get(id, action string) (capture.Queryable, error) {
	m.mu.Lock()
	e, ok := m.open[id]
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("transaction lookup failed", "tx_id", id, "action", action)
		return nil, &TransactionNotFoundError{ID: id, Action: action}
	}
	return e.tx, nil
}

// Commit commits the transaction and destroys its entry.
func (m *Manager) Commit(ctx context.Context, id string) error {
	e, err := m.take(id, "commit")
	if err != nil {
		return err
	}
	if _, err := e.tx.Commit(ctx).Unpack(m.session.Registry()); err != nil {
		return fmt.Errorf("failed to commit transaction %s: %w", id, err)
	}
	e.info.Status = core.TxStatusCommitted
	m.logger.Debug("transaction committed", "tx_id", id)
	return nil
}

// Rollback rolls the transaction back and destroys its entry.
func (m *Manager) Rollback(ctx context.Context, id string) error {
	e, err := m.take(id, "rollback")
	if err != nil {
		return err
	}
	if _, err := e.tx.Rollback(ctx).Unpack(m.session.Registry()); err != nil {
		return fmt.Errorf("failed to rollback transaction %s: %w", id, err)
	}
	e.info.Status = core.TxStatusRolledBack
	m.logger.Debug("transaction rolled back", "tx_id", id)
	return nil
}

// OpenCount reports how many transactions are currently open.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// take removes an open entry; finishing a transaction twice is a not-found
// error, same as an unknown id.
func (m *Manager) take(id, action string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.open[id]
	if !ok {
		return nil, &TransactionNotFoundError{ID: id, Action: action}
	}
	delete(m.open, id)
	return e, nil
}
