package host

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/capability"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Globals the host binds into every script.
const (
	ClockGlobal = "clock"
	ChatGlobal  = "chat"
	InputGlobal = "input"
)

// Manifest returns the capability manifest exposing the host's clock, chat
// and key state to scripts.
func Manifest(clock *Clock, chat *Chat, keys *KeyState) *capability.Manifest {
	return capability.NewBuilder().
		MustBind(ClockGlobal, tableBinding(clock.table)).
		MustBind(ChatGlobal, tableBinding(chat.table)).
		MustBind(InputGlobal, tableBinding(keys.table)).
		Build()
}

func tableBinding(build func(*scriptlua.State) *lua.LTable) capability.Binding {
	return capability.BindingFunc(func(state *scriptlua.State, _ capability.Scope) (lua.LValue, error) {
		return state.Bridge().ReadOnly(build(state)), nil
	})
}
