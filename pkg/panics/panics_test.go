package panics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicErrorMessage(t *testing.T) {
	err := &PanicError{Module: "query-compiler", Detail: "unreachable code reached"}
	assert.Equal(t, "Panic in query-compiler: unreachable code reached", err.Error())
}

func TestWithLocalHandler_OrdinaryErrorPropagatesUnchanged(t *testing.T) {
	t.Cleanup(ResetHandler)

	sentinel := errors.New("compile failed")
	err := WithLocalHandler("query-compiler", func() error {
		return sentinel
	})
	assert.Same(t, sentinel, err)
}

func TestWithLocalHandler_CapturedAbortWithNormalReturn(t *testing.T) {
	t.Cleanup(ResetHandler)

	err := WithLocalHandler("query-compiler", func() error {
		// The foreign module reports an abort but the call unwinds
		// gracefully.
		HandleAbort("query-compiler", "index out of bounds")
		return nil
	})
	require.Error(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "Panic in query-compiler: index out of bounds", panicErr.Error())
}

func TestWithLocalHandler_PanicInGuardedCall(t *testing.T) {
	t.Cleanup(ResetHandler)

	err := WithLocalHandler("query-compiler", func() error {
		panic("boom")
	})
	require.Error(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "query-compiler", panicErr.Module)
	assert.Equal(t, "boom", panicErr.Detail)
}

func TestWithLocalHandler_RestoresPreviousHandler(t *testing.T) {
	t.Cleanup(ResetHandler)

	var outer []string
	setHandler(func(module, detail string) {
		outer = append(outer, fmt.Sprintf("%s:%s", module, detail))
	})

	err := WithLocalHandler("query-compiler", func() error {
		HandleAbort("query-compiler", "inner abort")
		return nil
	})
	require.Error(t, err)
	assert.Empty(t, outer, "inner abort must not reach the outer handler")

	// The previous handler is restored verbatim after the guard exits.
	HandleAbort("query-compiler", "outer abort")
	assert.Equal(t, []string{"query-compiler:outer abort"}, outer)
}

func TestWithLocalHandler_RestoresHandlerOnPanicExit(t *testing.T) {
	t.Cleanup(ResetHandler)

	var outer int
	setHandler(func(_, _ string) { outer++ })

	_ = WithLocalHandler("query-compiler", func() error {
		panic("boom")
	})

	HandleAbort("m", "d")
	assert.Equal(t, 1, outer)
}

func TestSetupDefaultHandler_RaisesCatchablePanic(t *testing.T) {
	t.Cleanup(ResetHandler)

	SetupDefaultHandler()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		panicErr, ok := r.(*PanicError)
		require.True(t, ok)
		assert.Equal(t, "Panic in query-compiler: fatal abort", panicErr.Error())
	}()
	HandleAbort("query-compiler", "fatal abort")
}

func TestHandleAbort_NoHandlerPanics(t *testing.T) {
	t.Cleanup(ResetHandler)
	ResetHandler()

	assert.Panics(t, func() {
		HandleAbort("query-compiler", "abort with no handler installed")
	})
}
