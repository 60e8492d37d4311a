package capability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/logging"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

func newState(t *testing.T) *scriptlua.State {
	t.Helper()
	state, err := scriptlua.NewState()
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func TestBuilder_Bind(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Bind("clock", Value(1)))

	tests := []struct {
		name    string
		binding Binding
		want    error
	}{
		{"clock", Value(2), ErrDuplicateBinding},
		{"", Value(1), ErrInvalidName},
		{"two words", Value(1), ErrInvalidName},
		{"9lives", Value(1), ErrInvalidName},
		{"console", Value(1), ErrReservedName},
		{"keys", Value(1), ErrReservedName},
		{"os", Value(1), ErrReservedName},
		{"require", Value(1), ErrReservedName},
		{"print", Value(1), ErrReservedName},
		{"end", Value(1), ErrReservedName},
		{"nothing", nil, ErrNilBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, b.Bind(tt.name, tt.binding), tt.want)
		})
	}

	m := b.Build()
	assert.ErrorIs(t, b.Bind("late", Value(1)), ErrManifestFrozen)
	assert.Equal(t, []string{"clock"}, m.Names())
	assert.Equal(t, 1, m.Len())
}

func TestBuilder_MustBindPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder().MustBind("x", Value(1)).MustBind("x", Value(2))
	})
}

func TestManifest_Immutable(t *testing.T) {
	b := NewBuilder().MustBind("a", Value(1))
	m := b.Build()

	names := m.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"a"}, m.Names())

	_, ok := m.Lookup("a")
	assert.True(t, ok)
	_, ok = m.Lookup("b")
	assert.False(t, ok)
}

func TestManifest_InjectOrderAndValues(t *testing.T) {
	var order []string
	track := func(name string, v lua.LValue) Binding {
		return BindingFunc(func(*scriptlua.State, Scope) (lua.LValue, error) {
			order = append(order, name)
			return v, nil
		})
	}

	m := NewBuilder().
		MustBind("zeta", track("zeta", lua.LNumber(1))).
		MustBind("alpha", track("alpha", lua.LNumber(2))).
		MustBind("greeting", Value("hi")).
		MustBind("math2", Table(map[string]lua.LGFunction{
			"double": func(L *lua.LState) int {
				L.Push(L.CheckNumber(1) * 2)
				return 1
			},
		})).
		MustBind("answer", Func(func(L *lua.LState) int {
			L.Push(lua.LNumber(42))
			return 1
		})).
		Build()

	state := newState(t)
	require.NoError(t, m.Inject(state, Scope{Script: "t.lua"}))
	assert.Equal(t, []string{"zeta", "alpha"}, order)

	require.NoError(t, state.DoString(context.Background(),
		`r = zeta + alpha .. greeting .. math2.double(4) .. answer()`))
	assert.Equal(t, lua.LString("3hi842"), state.GetGlobal("r"))

	for _, g := range []string{ConsoleGlobal, UIGlobal, EventsGlobal, KeysGlobal} {
		assert.Equal(t, lua.LTTable, state.GetGlobal(g).Type(), g)
	}
}

func TestManifest_ValuesAreFreshPerSandbox(t *testing.T) {
	m := NewBuilder().MustBind("cfg", Value(map[string]any{"n": 1})).Build()
	ctx := context.Background()

	a := newState(t)
	b := newState(t)
	require.NoError(t, m.Inject(a, Scope{}))
	require.NoError(t, m.Inject(b, Scope{}))

	require.NoError(t, a.DoString(ctx, `cfg.n = 99`))
	require.NoError(t, b.DoString(ctx, `r = cfg.n`))
	assert.Equal(t, lua.LNumber(1), b.GetGlobal("r"))
}

func TestManifest_ValueRejectsLuaReferences(t *testing.T) {
	owner := newState(t)
	shared := owner.LuaState().NewTable()
	shared.RawSetString("n", lua.LNumber(1))

	for name, v := range map[string]any{
		"table":    shared,
		"function": owner.LuaState().NewFunction(func(*lua.LState) int { return 0 }),
		"nested":   map[string]any{"inner": []any{shared}},
	} {
		t.Run(name, func(t *testing.T) {
			m := NewBuilder().MustBind("cfg", Value(v)).Build()
			err := m.Inject(newState(t), Scope{})
			var berr *BindingError
			require.ErrorAs(t, err, &berr)
			assert.Equal(t, "cfg", berr.Name)
			assert.ErrorIs(t, err, ErrSharedValue)
		})
	}

	m := NewBuilder().MustBind("greeting", Value(lua.LString("hi"))).Build()
	state := newState(t)
	require.NoError(t, m.Inject(state, Scope{}))
	assert.Equal(t, lua.LString("hi"), state.GetGlobal("greeting"))
}

func TestManifest_InjectBindingError(t *testing.T) {
	boom := errors.New("boom")
	m := NewBuilder().MustBind("bad", BindingFunc(func(*scriptlua.State, Scope) (lua.LValue, error) {
		return nil, boom
	})).Build()

	err := m.Inject(newState(t), Scope{})
	var berr *BindingError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "bad", berr.Name)
	assert.ErrorIs(t, err, boom)
}

func TestManifest_InjectClosedState(t *testing.T) {
	state, err := scriptlua.NewState()
	require.NoError(t, err)
	state.Close()
	assert.ErrorIs(t, Empty().Inject(state, Scope{}), scriptlua.ErrStateClosed)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})

	state := newState(t)
	require.NoError(t, Empty().Inject(state, Scope{Script: "Greeter", Logger: logger}))
	require.NoError(t, state.DoString(context.Background(), `
console.log("hello", 1, true)
console.debug("dbg")
console.warn("careful")
console.error("broken")
`))

	out := buf.String()
	for _, want := range []string{
		`msg="hello 1 true"`, "level=DEBUG", "msg=dbg", "level=WARN", "level=ERROR",
		"script=Greeter", "component=script",
	} {
		assert.True(t, strings.Contains(out, want), "output missing %q:\n%s", want, out)
	}
}

func TestEventsAndKeysTables(t *testing.T) {
	state := newState(t)
	require.NoError(t, Empty().Inject(state, Scope{}))
	ctx := context.Background()

	require.NoError(t, state.DoString(ctx, `
chat = table.concat(events.onChatMessageHandled, ",")
nload = #events.onLoad
f = keys.F
`))
	assert.Equal(t, lua.LString("type,senderId,sender,message"), state.GetGlobal("chat"))
	assert.Equal(t, lua.LNumber(0), state.GetGlobal("nload"))
	assert.NotEqual(t, lua.LNil, state.GetGlobal("f"))

	assert.Error(t, state.DoString(ctx, `keys.F = 1`))
	assert.Error(t, state.DoString(ctx, `events.onFoo = {}`))
}
