package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

// RunBatch executes a batch and shapes the response envelope:
//
//	{"batchResult": [<shaped item>, ...]}
//
// in input order. A batch with transaction options runs inside one managed
// transaction; otherwise the items are independent and run against the
// ambient session.
func (e *Executor) RunBatch(ctx context.Context, batch core.BatchQuery) (map[string]any, error) {
	var (
		results []any
		err     error
	)
	if batch.Transaction != nil {
		results, err = e.runTransactionalBatch(ctx, batch)
	} else {
		results, err = e.runIndependentBatch(ctx, batch)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"batchResult": results}, nil
}

// runIndependentBatch issues every item as a concurrently-pending operation
// against the ambient session and collects results positionally. Items never
// share a transaction handle: concurrent execution is only safe on the
// session's pooled connections. Any single failure fails the whole call, but
// sibling operations already issued are not cancelled or rolled back: there
// is no atomicity across independent items.
func (e *Executor) runIndependentBatch(ctx context.Context, batch core.BatchQuery) ([]any, error) {
	results := make([]any, len(batch.Batch))

	// A plain errgroup: the first error is kept, siblings run to
	// completion.
	var g errgroup.Group
	for i, item := range batch.Batch {
		g.Go(func() error {
			shaped, err := e.execute(ctx, item, "")
			if err != nil {
				return err
			}
			results[i] = shaped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runTransactionalBatch opens one transaction for the whole batch and
// executes the items strictly in input order on its scoped handle: they
// share a single connection and may have read-after-write dependencies.
func (e *Executor) runTransactionalBatch(ctx context.Context, batch core.BatchQuery) ([]any, error) {
	info, err := e.txm.Start(ctx, core.TransactionOptions{
		IsolationLevel: batch.Transaction.IsolationLevel,
	})
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(batch.Batch))
	for _, item := range batch.Batch {
		shaped, itemErr := e.execute(ctx, item, info.ID)
		if itemErr != nil {
			// The original failure is what the caller must see; a failing
			// rollback is logged and swallowed.
			if rbErr := e.txm.Rollback(ctx, info.ID); rbErr != nil {
				e.logger.Warn("rollback after batch failure failed",
					"tx_id", info.ID, "error", rbErr)
			}
			return nil, itemErr
		}
		results = append(results, shaped)
	}

	if err := e.txm.Commit(ctx, info.ID); err != nil {
		return nil, err
	}
	return results, nil
}
