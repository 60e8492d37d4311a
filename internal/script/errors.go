package script

import (
	"errors"
	"fmt"
)

// Script runtime errors.
var (
	// ErrAlreadyLoaded is returned when loading a script that is loaded.
	ErrAlreadyLoaded = errors.New("script is already loaded")

	// ErrScriptExists is returned when creating a script whose file exists.
	ErrScriptExists = errors.New("script already exists")

	// ErrScriptNotFound is returned when a filename is not in the registry.
	ErrScriptNotFound = errors.New("script not found")

	// ErrInvalidFilename is returned for names that are not plain script
	// filenames in the watched directory.
	ErrInvalidFilename = errors.New("invalid script filename")

	// ErrRegistryClosed is returned after Close.
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrCompile matches every *CompileError.
	ErrCompile = errors.New("script failed to load")

	// ErrRuntime matches every *RuntimeError.
	ErrRuntime = errors.New("script handler failed")

	// ErrFileIO matches every *FileIOError.
	ErrFileIO = errors.New("script file i/o failed")
)

// Load phases reported by CompileError.
const (
	PhaseSandbox = "sandbox"
	PhaseInject  = "inject"
	PhaseCompile = "compile"
	PhaseExecute = "execute"
	PhaseOnLoad  = "onLoad"
)

// CompileError reports a failed Load. The instance is left Unloaded.
type CompileError struct {
	Script string
	Phase  string
	Err    error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Script, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Is matches ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// RuntimeError reports a guest error raised by an event handler.
type RuntimeError struct {
	Script string
	Event  string
	Err    error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s in %s: %v", e.Script, e.Event, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is matches ErrRuntime.
func (e *RuntimeError) Is(target error) bool {
	return target == ErrRuntime
}

// FileIOError reports a failed read or write of a script file.
type FileIOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileIOError) Unwrap() error {
	return e.Err
}

// Is matches ErrFileIO.
func (e *FileIOError) Is(target error) bool {
	return target == ErrFileIO
}
