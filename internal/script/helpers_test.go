package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/capability"
)

// recorder exposes a record(s) global to guest code and keeps every call.
type recorder struct {
	calls []string
}

func (r *recorder) manifest() *capability.Manifest {
	return capability.NewBuilder().
		MustBind("record", capability.Func(func(L *lua.LState) int {
			r.calls = append(r.calls, L.CheckString(1))
			return 0
		})).
		Build()
}

func (r *recorder) reset() {
	r.calls = nil
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func readScript(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// fakeChanges is a ChangeSource driven by the test.
type fakeChanges struct {
	changed []string
	resync  bool
	closed  int
}

func (f *fakeChanges) Drain() ([]string, bool) {
	changed, resync := f.changed, f.resync
	f.changed, f.resync = nil, false
	return changed, resync
}

func (f *fakeChanges) Close() error {
	f.closed++
	return nil
}
