package capability

import (
	"errors"
	"fmt"
)

// Errors returned while building or injecting a manifest.
var (
	// ErrInvalidName is returned for a binding name that is not a Lua identifier.
	ErrInvalidName = errors.New("invalid binding name")

	// ErrDuplicateBinding is returned when a name is bound twice.
	ErrDuplicateBinding = errors.New("duplicate binding")

	// ErrReservedName is returned when a name collides with a built-in global.
	ErrReservedName = errors.New("reserved binding name")

	// ErrManifestFrozen is returned by Bind after Build.
	ErrManifestFrozen = errors.New("manifest already built")

	// ErrNilBinding is returned when binding a nil value.
	ErrNilBinding = errors.New("nil binding")

	// ErrSharedValue is returned by a Value binding holding a Lua reference
	// value, which would alias one object across sandboxes.
	ErrSharedValue = errors.New("lua reference value cannot be shared")
)

// BindingError reports a binding that failed to install into a sandbox.
type BindingError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	return fmt.Sprintf("capability %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindingError) Unwrap() error {
	return e.Err
}
