package event

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors for event dispatch.
var (
	// ErrArgumentSchemaMismatch is returned when dispatch arguments do not
	// match the event's declared schema.
	ErrArgumentSchemaMismatch = errors.New("argument schema mismatch")

	// ErrUnknownEvent is returned when looking up an undeclared event name.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrHandlerPanic is returned when a dispatch target panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// MismatchError describes why a set of arguments was rejected by a Schema.
type MismatchError struct {
	// Event is the schema name.
	Event string

	// Missing lists declared arguments that were not supplied.
	Missing []string

	// Unexpected lists supplied arguments the schema does not declare.
	Unexpected []string

	// WrongType lists arguments whose value type differs from the declared type.
	WrongType []TypeMismatch
}

// TypeMismatch records one badly typed argument.
type TypeMismatch struct {
	Name string
	Want reflect.Type
	Got  reflect.Type
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	for _, tm := range e.WrongType {
		parts = append(parts, fmt.Sprintf("%s: want %v, got %v", tm.Name, tm.Want, tm.Got))
	}
	return fmt.Sprintf("event %s: %s: %s", e.Event, ErrArgumentSchemaMismatch, strings.Join(parts, "; "))
}

// Unwrap returns ErrArgumentSchemaMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrArgumentSchemaMismatch
}

// PanicError wraps a panic value raised by a dispatch target.
type PanicError struct {
	// Target is the display name of the target that panicked.
	Target string

	// Event is the event being dispatched.
	Event string

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("target %s panicked during %s: %v", e.Target, e.Event, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
