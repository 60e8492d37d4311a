package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are stripped from every state. Each one either reaches
// outside the sandbox, loads code from elsewhere, or inspects the runtime.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"getfenv",
	"setfenv",
	"newproxy",
	"collectgarbage",
	"_printregs",
	"package",
	"io",
	"os",
	"debug",
	"coroutine",
}

// Sandbox restricts a Lua state to safe operations.
type Sandbox struct {
	L *lua.LState

	removed []string
}

// NewSandbox creates a sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{L: L}
}

// Install removes unsafe globals and replaces print with a function that
// forwards to out, or discards output when out is nil.
func (s *Sandbox) Install(out func(string)) {
	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.removed = append(s.removed[:0], removedGlobals...)

	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		if out == nil {
			return 0
		}
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		out(strings.Join(parts, "\t"))
		return 0
	}))

	// string.dump exposes bytecode of guest functions.
	if str, ok := s.L.GetGlobal("string").(*lua.LTable); ok {
		str.RawSetString("dump", lua.LNil)
	}
}

// Removed returns the globals the sandbox stripped.
func (s *Sandbox) Removed() []string {
	return append([]string(nil), s.removed...)
}

// IsRemoved reports whether name is one of the stripped globals.
func (s *Sandbox) IsRemoved(name string) bool {
	for _, r := range s.removed {
		if r == name {
			return true
		}
	}
	return false
}

// IsRemovedGlobal reports whether every sandbox strips name.
func IsRemovedGlobal(name string) bool {
	for _, r := range removedGlobals {
		if r == name {
			return true
		}
	}
	return false
}
