package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)

// RcError is returned when an rc script fails to load or run.
type RcError struct {
	// Path is the script path, or "<string>" for inline chunks.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RcError) Error() string {
	return fmt.Sprintf("rc %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *RcError) Unwrap() error {
	return e.Err
}
