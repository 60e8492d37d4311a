package capability

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/logging"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Console routes guest console calls to the host logger, tagged with the
// script's display name.
type Console struct {
	logger *logging.Logger
}

func newConsole(scope Scope) *Console {
	return &Console{
		logger: scope.Logger.WithComponent("script").WithField("script", scope.Script),
	}
}

// NewConsole creates a Console for the given scope.
func NewConsole(scope Scope) *Console {
	if scope.Logger == nil {
		scope.Logger = logging.NullLogger
	}
	return newConsole(scope)
}

// Print logs one line at info level. It is used for the guest print function.
func (c *Console) Print(line string) {
	c.logger.Info("%s", line)
}

func (c *Console) table(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"log":   c.at(logging.LevelInfo),
		"info":  c.at(logging.LevelInfo),
		"debug": c.at(logging.LevelDebug),
		"warn":  c.at(logging.LevelWarn),
		"error": c.at(logging.LevelError),
	})
}

// at returns a console function logging its tostring'd arguments at level.
func (c *Console) at(level logging.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		c.logger.Log(level, "%s", strings.Join(parts, " "))
		return 0
	}
}
