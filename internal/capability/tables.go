package capability

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/event"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// eventsTable maps each host event name to its ordered argument names.
// The outer table is read-only; the argument lists are per-sandbox copies.
func eventsTable(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	t := L.CreateTable(0, len(event.All))
	for _, s := range event.All {
		args := L.CreateTable(s.Arity(), 0)
		for i, name := range s.ArgNames() {
			args.RawSetInt(i+1, lua.LString(name))
		}
		t.RawSetString(s.Name(), args)
	}
	return state.Bridge().ReadOnly(t)
}

// keysTable maps key names to key codes.
func keysTable(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	keys := event.Keys()
	t := L.CreateTable(0, len(keys))
	for _, k := range keys {
		t.RawSetString(k.String(), lua.LNumber(k))
	}
	return state.Bridge().ReadOnly(t)
}
