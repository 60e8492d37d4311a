package lua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultChunkName is used when no chunk name is configured.
const DefaultChunkName = "script"

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes calls made
// from Go, but a State is meant to be owned and driven by one goroutine.
type State struct {
	L *lua.LState

	mu sync.Mutex

	// Configuration
	callTimeout time.Duration
	chunkName   string
	print       func(string)

	sandbox *Sandbox
	bridge  *Bridge

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallTimeout bounds every DoString and Call by d. Zero disables the
// watchdog. gopher-lua checks the deadline between instructions, so a
// timeout interrupts pure-Lua loops but not a blocked Go function.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.callTimeout = d
		}
	}
}

// WithChunkName sets the name reported in guest error messages.
func WithChunkName(name string) StateOption {
	return func(s *State) {
		if name != "" {
			s.chunkName = name
		}
	}
}

// WithPrint routes the guest print function to fn.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state with only the base, table,
// string and math libraries available.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{chunkName: DefaultChunkName}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		IncludeGoStackTrace: false,
	})
	state.L = L

	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}

	state.sandbox = NewSandbox(L)
	state.sandbox.Install(state.print)
	state.bridge = NewBridge(L)

	return state, nil
}

// openSafeLibraries opens the libraries guests may use. io, os, debug,
// package and coroutine are never opened.
func openSafeLibraries(L *lua.LState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open libraries: %v", r)
		}
	}()
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return nil
}

// DoString compiles and runs code as one chunk. A compile failure wraps
// ErrSyntax; a runtime failure is returned as *ExecError.
func (s *State) DoString(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	fn, err := s.L.Load(strings.NewReader(code), s.chunkName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	return s.protected(ctx, s.chunkName, func() error {
		s.L.Push(fn)
		return s.L.PCall(0, lua.MultRet, nil)
	})
}

// HasFunction reports whether name is a global function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.global(name).Type() == lua.LTFunction
}

// global reads name from the globals table without metamethods, so a guest
// __index on _G never runs outside a protected call.
func (s *State) global(name string) lua.LValue {
	return s.L.G.Global.RawGetString(name)
}

// Call calls the global function name with args and returns its results.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.global(name)
	switch fnVal.Type() {
	case lua.LTNil:
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	case lua.LTFunction:
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFunction, name, fnVal.Type())
	}

	top := s.L.GetTop()
	err := s.protected(ctx, name, func() error {
		s.L.Push(fnVal)
		for _, arg := range args {
			s.L.Push(arg)
		}
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(top)
		return nil, err
	}

	n := s.L.GetTop() - top
	results := make([]lua.LValue, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, s.L.Get(top+i))
	}
	s.L.SetTop(top)
	return results, nil
}

// protected runs fn with the call context installed and converts panics
// and guest errors into *ExecError.
func (s *State) protected(ctx context.Context, chunk string, fn func() error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	if ctx.Done() != nil {
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ExecError{Chunk: chunk, Err: fmt.Errorf("lua panic: %v", r)}
		}
	}()

	if callErr := fn(); callErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &ExecError{Chunk: chunk, Err: fmt.Errorf("%w: %v", ErrCallTimeout, callErr)}
		}
		return &ExecError{Chunk: chunk, Err: callErr}
	}
	return nil
}

// GetGlobal returns a global variable value. Metamethods on _G are not
// consulted.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.global(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// LuaState returns the underlying gopher-lua state. Capability injection
// uses it to build tables and functions; callers must stay on the owning
// goroutine.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Bridge returns the Go/Lua value converter bound to this state.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// Sandbox returns the sandbox installed in this state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// ChunkName returns the name used in guest error messages.
func (s *State) ChunkName() string {
	return s.chunkName
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Close is idempotent; after it returns every
// other method reports ErrStateClosed or a zero value.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
