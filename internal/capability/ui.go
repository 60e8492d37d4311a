package capability

import (
	"github.com/lucasb-eyer/go-colorful"
	lua "github.com/yuin/gopher-lua"

	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Surface is the host's immediate-mode UI. Begin opens a named region and
// reports whether its contents should be drawn; End is always called after
// Begin, whatever Begin returned.
type Surface interface {
	Begin(name string) bool
	End()
	Text(text string, color *colorful.Color)
	Button(label string) bool
}

// NullSurface never opens a region.
type NullSurface struct{}

// Begin returns false.
func (NullSurface) Begin(string) bool { return false }

// End does nothing.
func (NullSurface) End() {}

// Text does nothing.
func (NullSurface) Text(string, *colorful.Color) {}

// Button returns false.
func (NullSurface) Button(string) bool { return false }

// UIRegion runs body between surface.Begin and surface.End. body runs only
// when Begin returns true, End runs regardless, and body's error is
// returned after End.
func UIRegion(surface Surface, name string, body func() error) (err error) {
	open := surface.Begin(name)
	defer surface.End()
	if !open {
		return nil
	}
	return body()
}

func uiTable(state *scriptlua.State, surface Surface) *lua.LTable {
	L := state.LuaState()

	region := func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)

		err := UIRegion(surface, name, func() error {
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
		})
		if err != nil {
			L.RaiseError("%s", errorText(err))
		}
		return 0
	}

	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"region": region,
		"window": region,
		"text": func(L *lua.LState) int {
			text := L.CheckString(1)
			if L.GetTop() < 2 || L.Get(2) == lua.LNil {
				surface.Text(text, nil)
				return 0
			}
			c, err := colorful.Hex(L.CheckString(2))
			if err != nil {
				L.ArgError(2, "color must be #rgb or #rrggbb")
				return 0
			}
			surface.Text(text, &c)
			return 0
		},
		"button": func(L *lua.LState) int {
			L.Push(lua.LBool(surface.Button(L.CheckString(1))))
			return 1
		},
	})
}

// errorText returns the guest-facing message of a protected call error.
func errorText(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok {
		return apiErr.Object.String()
	}
	return err.Error()
}
