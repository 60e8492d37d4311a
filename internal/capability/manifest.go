package capability

import (
	"fmt"
	"regexp"

	"github.com/dshills/tickscript/internal/logging"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Names of the globals every sandbox receives regardless of the manifest.
const (
	ConsoleGlobal = "console"
	UIGlobal      = "ui"
	EventsGlobal  = "events"
	KeysGlobal    = "keys"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved names cannot be bound: built-in utilities, Lua keywords and the
// base library.
var reserved = map[string]bool{
	ConsoleGlobal: true, UIGlobal: true, EventsGlobal: true, KeysGlobal: true,
	"_G": true, "_VERSION": true,
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "if": true,
	"in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true, "until": true,
	"while": true,
	"assert": true, "error": true, "getmetatable": true, "ipairs": true,
	"next": true, "pairs": true, "pcall": true, "print": true,
	"rawequal": true, "rawget": true, "rawset": true, "select": true,
	"setmetatable": true, "tonumber": true, "tostring": true, "type": true,
	"unpack": true, "xpcall": true,
	"string": true, "table": true, "math": true,
}

// Scope carries the per-script context injection needs.
type Scope struct {
	// Script is the display name used to tag console output.
	Script string

	// Logger receives console output. Nil discards it.
	Logger *logging.Logger

	// Surface receives ui calls. Nil uses a surface that never opens.
	Surface Surface
}

// Manifest is the immutable, ordered set of capability bindings injected
// into every sandbox. Build one with a Builder.
type Manifest struct {
	names    []string
	bindings map[string]Binding
}

// Names returns the bound names in insertion order.
func (m *Manifest) Names() []string {
	return append([]string(nil), m.names...)
}

// Lookup returns the binding for name.
func (m *Manifest) Lookup(name string) (Binding, bool) {
	b, ok := m.bindings[name]
	return b, ok
}

// Len returns the number of bindings.
func (m *Manifest) Len() int {
	return len(m.names)
}

// Inject installs every binding as a global in manifest order, then the
// console, ui, events and keys utilities. Inject must run before the script
// body executes.
func (m *Manifest) Inject(state *scriptlua.State, scope Scope) error {
	if state.IsClosed() {
		return scriptlua.ErrStateClosed
	}
	if scope.Logger == nil {
		scope.Logger = logging.NullLogger
	}
	if scope.Surface == nil {
		scope.Surface = NullSurface{}
	}

	for _, name := range m.names {
		v, err := m.bindings[name].Bind(state, scope)
		if err != nil {
			return &BindingError{Name: name, Err: err}
		}
		state.SetGlobal(name, v)
	}

	state.SetGlobal(ConsoleGlobal, newConsole(scope).table(state))
	state.SetGlobal(UIGlobal, uiTable(state, scope.Surface))
	state.SetGlobal(EventsGlobal, eventsTable(state))
	state.SetGlobal(KeysGlobal, keysTable(state))
	return nil
}

// Builder accumulates bindings and freezes them into a Manifest.
type Builder struct {
	names    []string
	bindings map[string]Binding
	built    bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{bindings: make(map[string]Binding)}
}

// Bind adds a binding under name.
func (b *Builder) Bind(name string, binding Binding) error {
	if b.built {
		return ErrManifestFrozen
	}
	if binding == nil {
		return fmt.Errorf("%w: %s", ErrNilBinding, name)
	}
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if reserved[name] || scriptlua.IsRemovedGlobal(name) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	if _, exists := b.bindings[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, name)
	}
	b.names = append(b.names, name)
	b.bindings[name] = binding
	return nil
}

// MustBind is like Bind but panics on error. Use it for static manifests.
func (b *Builder) MustBind(name string, binding Binding) *Builder {
	if err := b.Bind(name, binding); err != nil {
		panic(err)
	}
	return b
}

// Build freezes the builder and returns the manifest. Further Bind calls
// fail with ErrManifestFrozen.
func (b *Builder) Build() *Manifest {
	b.built = true
	m := &Manifest{
		names:    append([]string(nil), b.names...),
		bindings: make(map[string]Binding, len(b.bindings)),
	}
	for k, v := range b.bindings {
		m.bindings[k] = v
	}
	return m
}

// Empty returns a manifest with no bindings. Sandboxes built from it still
// receive the built-in utilities.
func Empty() *Manifest {
	return NewBuilder().Build()
}
