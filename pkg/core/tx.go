package core

import (
	"database/sql"
	"fmt"
	"strings"
)

// TxStatus tracks the lifecycle of a managed transaction.
type TxStatus string

const (
	TxStatusOpen       TxStatus = "open"
	TxStatusCommitted  TxStatus = "committed"
	TxStatusRolledBack TxStatus = "rolled_back"
)

// TxInfo describes a transaction owned by the transaction manager. At most
// one live TxInfo exists per id.
type TxInfo struct {
	ID             string         `json:"id"`
	IsolationLevel IsolationLevel `json:"isolationLevel,omitempty"`
	Status         TxStatus       `json:"status"`
}

// IsolationLevel names a transaction isolation setting as it appears on the
// wire. Values are matched case-insensitively and with optional underscores
// or spaces ("ReadCommitted", "READ COMMITTED", "read_committed" all parse).
type IsolationLevel string

const (
	IsolationReadUncommitted IsolationLevel = "ReadUncommitted"
	IsolationReadCommitted   IsolationLevel = "ReadCommitted"
	IsolationRepeatableRead  IsolationLevel = "RepeatableRead"
	IsolationSnapshot        IsolationLevel = "Snapshot"
	IsolationSerializable    IsolationLevel = "Serializable"
)

// ParseIsolationLevel normalizes a wire-format isolation level name.
// An empty string is valid and means "backend default".
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	if s == "" {
		return "", nil
	}
	normalized := strings.ToLower(strings.NewReplacer("_", "", " ", "").Replace(s))
	switch normalized {
	case "readuncommitted":
		return IsolationReadUncommitted, nil
	case "readcommitted":
		return IsolationReadCommitted, nil
	case "repeatableread":
		return IsolationRepeatableRead, nil
	case "snapshot":
		return IsolationSnapshot, nil
	case "serializable":
		return IsolationSerializable, nil
	}
	return "", fmt.Errorf("invalid isolation level %q", s)
}

// SQLLevel maps the wire-format level onto database/sql's enumeration.
// The empty level maps to sql.LevelDefault.
func (l IsolationLevel) SQLLevel() sql.IsolationLevel {
	switch l {
	case IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case IsolationReadCommitted:
		return sql.LevelReadCommitted
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case IsolationSnapshot:
		return sql.LevelSnapshot
	case IsolationSerializable:
		return sql.LevelSerializable
	}
	return sql.LevelDefault
}
