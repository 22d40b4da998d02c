package core

import "time"

// JSONQuery is the high-level query envelope handed to the pipeline.
type JSONQuery struct {
	// ModelName is the model the query targets; empty for raw queries.
	ModelName string `json:"modelName,omitempty"`

	// Action is the operation name, e.g. "createOne" or "findMany".
	Action string `json:"action"`

	Query QueryBody `json:"query"`
}

// QueryBody carries the operation's arguments and the field selection.
type QueryBody struct {
	Arguments map[string]any `json:"arguments,omitempty"`
	Selection map[string]any `json:"selection,omitempty"`
}

// ResponseKey is the key the shaped result is stored under in the response
// envelope: the action name with the model name appended ("createOne" +
// "User" → "createOneUser"), or the bare action for model-less queries.
func (q JSONQuery) ResponseKey() string {
	return q.Action + q.ModelName
}

// BatchQuery wraps several queries for batch execution. A nil Transaction
// means the items are independent; a non-nil one requests a single
// transaction spanning all items.
type BatchQuery struct {
	Batch       []JSONQuery           `json:"batch"`
	Transaction *BatchTransactionOpts `json:"transaction,omitempty"`
}

// BatchTransactionOpts configures the transaction wrapping a batch.
type BatchTransactionOpts struct {
	IsolationLevel string `json:"isolationLevel,omitempty"`
}

// TransactionOptions configures an explicit transaction started through the
// transaction manager.
type TransactionOptions struct {
	IsolationLevel string `json:"isolation_level,omitempty"`
}

// QueryEvent is one interpreter-emitted query log entry. The pipeline
// JSON-stringifies events into its caller-visible log list.
type QueryEvent struct {
	Query     string    `json:"query"`
	Params    string    `json:"params"`
	Duration  int64     `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}
