// Package capture decorates a driver adapter so every fallible call returns
// a tagged Result instead of a native error, and owns the registry mapping
// opaque error handles to structured error detail.
//
// The Result shape is the only fallible-call return crossing a component
// boundary: callers on the far side of the boundary see an opaque handle
// and look the detail up in the registry, so no driver-specific error type
// ever crosses unconverted.
package capture

import "fmt"

// Unit is the value type for calls that produce no result.
type Unit = struct{}

// Result is the tagged union crossing component boundaries: either a value
// or an opaque handle into the error registry.
type Result[T any] struct {
	OK    bool
	Value T
	Error ErrorHandle
}

// OKResult wraps a successful value.
func OKResult[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// ErrResult wraps a registered error handle.
func ErrResult[T any](h ErrorHandle) Result[T] {
	return Result[T]{Error: h}
}

// Unpack converts the result back into Go's (value, error) shape at the
// consuming end of the boundary, resolving the handle against reg. The
// handle is consumed: a second Unpack of the same failed result yields an
// unknown-handle detail.
func (r Result[T]) Unpack(reg *Registry) (T, error) {
	if r.OK {
		return r.Value, nil
	}
	var zero T
	return zero, &CapturedError{Handle: r.Error, Detail: reg.Consume(r.Error)}
}

// CapturedError carries the registry detail for a failed Result.
type CapturedError struct {
	Handle ErrorHandle
	Detail *ErrorDetail
}

func (e *CapturedError) Error() string {
	if e.Detail.BackendCode != "" {
		return fmt.Sprintf("%s error %s: %s", e.Detail.Kind, e.Detail.BackendCode, e.Detail.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Detail.Kind, e.Detail.Message)
}

// Unwrap exposes the original error when the registry still holds it.
func (e *CapturedError) Unwrap() error {
	return e.Detail.cause
}
