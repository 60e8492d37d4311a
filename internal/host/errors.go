package host

import (
	"errors"
	"fmt"
)

// Host errors.
var (
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("host already running")

	// ErrNotStarted is returned by Tick before Start.
	ErrNotStarted = errors.New("host not started")

	// ErrUnknownKey is returned for key names ParseKey does not accept.
	ErrUnknownKey = errors.New("unknown key")

	// ErrInitialization indicates a component could not be built.
	ErrInitialization = errors.New("initialization failed")
)

// InitError records which component failed while building the App.
type InitError struct {
	Component string
	Err       error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches ErrInitialization.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
