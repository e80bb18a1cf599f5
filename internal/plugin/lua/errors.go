package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script runs past its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("lua executor is closed")

	// ErrNotFunction is returned when a called value is not a function.
	ErrNotFunction = errors.New("value is not a function")
)

// PanicError wraps a panic raised while running Lua code.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "lua panic: " + err.Error()
	}
	if s, ok := e.Value.(string); ok {
		return "lua panic: " + s
	}
	return "lua panic"
}
