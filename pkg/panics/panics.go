// Package panics bridges fatal aborts raised inside foreign compiled
// modules (the query compiler) into ordinary recoverable errors.
//
// The bridge owns a single process-wide handler slot. The slot has depth
// exactly one: WithLocalHandler swaps a capturing handler in and restores
// the previous one verbatim on every exit path, so only the innermost guard
// observes an abort. The slot is not safe for re-entrant concurrent use;
// callers that may invoke the foreign module concurrently must serialize
// the guarded region themselves (the pipeline holds a mutex around
// compilation).
package panics

import (
	"fmt"
	"sync"
)

// PanicError is the recoverable form of a foreign abort.
type PanicError struct {
	// Module names the foreign module the abort came from.
	Module string

	// Detail is the abort message as reported by the module.
	Detail string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("Panic in %s: %s", e.Module, e.Detail)
}

// Handler receives a foreign abort notification.
type Handler func(module, detail string)

var (
	slotMu  sync.Mutex
	current Handler
)

// HandleAbort is the entry point foreign module bindings call when the
// module aborts. With no handler installed the abort is re-raised as a
// process panic, which is what an unintercepted fatal abort means.
func HandleAbort(module, detail string) {
	slotMu.Lock()
	h := current
	slotMu.Unlock()

	if h == nil {
		panic(&PanicError{Module: module, Detail: detail})
	}
	h(module, detail)
}

// SetupDefaultHandler installs the process-wide default: any foreign abort
// is raised as a *PanicError panic, catchable by a surrounding guard.
func SetupDefaultHandler() {
	setHandler(func(module, detail string) {
		panic(&PanicError{Module: module, Detail: detail})
	})
}

// ResetHandler clears the handler slot. Intended for tests.
func ResetHandler() {
	setHandler(nil)
}

func setHandler(h Handler) Handler {
	slotMu.Lock()
	defer slotMu.Unlock()
	prev := current
	current = h
	return prev
}

// WithLocalHandler runs fn under a scoped abort guard.
//
// A capturing handler is swapped into the slot for the duration of fn and
// the previous handler is restored on every exit path, success or failure.
// Behavior after restoration:
//   - fn returned an ordinary error: that error propagates unchanged.
//   - fn panicked (the foreign boundary trapped): the panic is converted to
//     a *PanicError and returned.
//   - fn returned normally but an abort was captured during its execution:
//     the captured *PanicError is returned.
func WithLocalHandler(module string, fn func() error) (err error) {
	var captured *PanicError
	prev := setHandler(func(m, d string) {
		captured = &PanicError{Module: m, Detail: d}
	})
	defer setHandler(prev)
	defer func() {
		r := recover()
		if r == nil {
			if err == nil && captured != nil {
				err = captured
			}
			return
		}
		switch v := r.(type) {
		case *PanicError:
			err = v
		default:
			if captured != nil {
				err = captured
				return
			}
			err = &PanicError{Module: module, Detail: fmt.Sprint(r)}
		}
	}()
	err = fn()
	return
}
