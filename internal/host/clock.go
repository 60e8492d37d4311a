package host

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Clock gives scripts wall time and time since the host started.
type Clock struct {
	now   func() time.Time
	start time.Time
}

// NewClock creates a clock. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now, start: now()}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Elapsed returns the time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	return c.now().Sub(c.start)
}

func (c *Clock) table(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"now": func(L *lua.LState) int {
			L.Push(lua.LNumber(float64(c.Now().UnixNano()) / float64(time.Second)))
			return 1
		},
		"elapsed": func(L *lua.LState) int {
			L.Push(lua.LNumber(c.Elapsed().Seconds()))
			return 1
		},
	})
}
