package lua

import (
	"errors"
	"fmt"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrSyntax is returned when a chunk fails to compile.
	ErrSyntax = errors.New("lua syntax error")

	// ErrFunctionNotFound is returned by Call when the global is absent.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNotFunction is returned by Call when the global is not a function.
	ErrNotFunction = errors.New("lua global is not a function")

	// ErrCallTimeout is returned when a call exceeds the configured timeout.
	ErrCallTimeout = errors.New("lua call timed out")
)

// ExecError reports a failure raised while running guest code.
type ExecError struct {
	// Chunk is the chunk name or called function.
	Chunk string

	// Err is the underlying gopher-lua error.
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Chunk, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}
