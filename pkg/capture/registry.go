package capture

import (
	"errors"
	"fmt"
	"sync"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/leapstack-labs/querypipe/pkg/panics"
)

// ErrorHandle is an opaque, monotonically increasing id into the registry.
type ErrorHandle int64

// ErrorKind classifies a registered error.
type ErrorKind string

const (
	// KindPostgres, KindMySQL, KindSQLServer tag backend errors whose
	// driver reported a structured code.
	KindPostgres  ErrorKind = "postgres"
	KindMySQL     ErrorKind = "mysql"
	KindSQLServer ErrorKind = "sqlserver"

	// KindGeneric tags backend errors with no structured code.
	KindGeneric ErrorKind = "generic"

	// KindPanic tags foreign aborts converted by the panic bridge.
	KindPanic ErrorKind = "panic"

	// KindUnsupported tags user errors for absent optional capabilities.
	KindUnsupported ErrorKind = "unsupported"

	// KindUnknown is returned when a handle is not (or no longer) in the
	// registry.
	KindUnknown ErrorKind = "unknown"
)

// ErrorDetail is the structured form an error takes once captured.
type ErrorDetail struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	BackendCode string    `json:"backendCode,omitempty"`

	cause error
}

// Registry maps opaque error handles to structured error detail. Errors
// crossing the adapter boundary lose their Go type; the registry preserves
// the structure for whoever unpacks the Result.
type Registry struct {
	mu     sync.Mutex
	next   ErrorHandle
	errors map[ErrorHandle]*ErrorDetail
}

// NewRegistry creates an empty error registry.
func NewRegistry() *Registry {
	return &Registry{errors: make(map[ErrorHandle]*ErrorDetail)}
}

// Register normalizes err into structured detail and returns its handle.
func (r *Registry) Register(err error) ErrorHandle {
	detail := normalize(err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.errors[h] = detail
	return h
}

// Consume removes and returns the detail for h. An unknown handle yields a
// detail of KindUnknown rather than nil, so lookups never fail silently.
func (r *Registry) Consume(h ErrorHandle) *ErrorDetail {
	r.mu.Lock()
	defer r.mu.Unlock()
	detail, ok := r.errors[h]
	if !ok {
		return &ErrorDetail{Kind: KindUnknown, Message: fmt.Sprintf("no error registered for handle %d", h)}
	}
	delete(r.errors, h)
	return detail
}

// Len reports how many errors are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// normalize extracts driver-specific structure before the Go type is lost
// at the boundary.
func normalize(err error) *ErrorDetail {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &ErrorDetail{Kind: KindPostgres, Message: pgErr.Message, BackendCode: pgErr.Code, cause: err}
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return &ErrorDetail{Kind: KindMySQL, Message: myErr.Message, BackendCode: fmt.Sprintf("%d", myErr.Number), cause: err}
	}

	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		return &ErrorDetail{Kind: KindSQLServer, Message: msErr.Message, BackendCode: fmt.Sprintf("%d", msErr.Number), cause: err}
	}

	var panicErr *panics.PanicError
	if errors.As(err, &panicErr) {
		return &ErrorDetail{Kind: KindPanic, Message: panicErr.Error(), cause: err}
	}

	if errors.Is(err, errors.ErrUnsupported) {
		return &ErrorDetail{Kind: KindUnsupported, Message: err.Error(), cause: err}
	}

	return &ErrorDetail{Kind: KindGeneric, Message: err.Error(), cause: err}
}
