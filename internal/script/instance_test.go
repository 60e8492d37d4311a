package script

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/event"
	"github.com/dshills/tickscript/internal/notify"
)

func newTestInstance(t *testing.T, body string, opts ...Option) (*Instance, *recorder, *config.MemoryStore) {
	t.Helper()
	rec := &recorder{}
	store := config.NewMemoryStore()
	path := writeScript(t, t.TempDir(), "test.lua", body)
	opts = append([]Option{WithManifest(rec.manifest()), WithStore(store)}, opts...)
	return NewInstance(path, opts...), rec, store
}

func TestInstance_LoadRunsBodyAndOnLoad(t *testing.T) {
	inst, rec, store := newTestInstance(t, `
record("body")
function onLoad() record("onLoad") end
`)

	require.NoError(t, inst.Load(context.Background()))
	assert.Equal(t, StateLoaded, inst.State())
	assert.Equal(t, []string{"body", "onLoad"}, rec.calls)
	assert.True(t, store.Autoload("test.lua"))
	assert.Equal(t, 1, inst.Stats().Loads)
}

func TestInstance_LoadTwice(t *testing.T) {
	inst, _, _ := newTestInstance(t, `x = 1`)
	require.NoError(t, inst.Load(context.Background()))
	assert.ErrorIs(t, inst.Load(context.Background()), ErrAlreadyLoaded)
}

func TestInstance_LoadFailureRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		phase string
	}{
		{"syntax", "function (", PhaseCompile},
		{"runtime", `error("top level")`, PhaseExecute},
		{"onLoad", `function onLoad() error("nope") end`, PhaseOnLoad},
		{"removed global", `os.exit(1)`, PhaseExecute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, _, store := newTestInstance(t, tt.body)

			err := inst.Load(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCompile)

			var cerr *CompileError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.phase, cerr.Phase)
			assert.Equal(t, StateUnloaded, inst.State())
			assert.False(t, store.Autoload("test.lua"))
			assert.Equal(t, err, inst.LastError())
		})
	}
}

func TestInstance_UnloadIsIdempotent(t *testing.T) {
	inst, rec, store := newTestInstance(t, `function onUnload() record("bye") end`)
	require.NoError(t, inst.Load(context.Background()))

	inst.Unload(false)
	inst.Unload(false)
	assert.Equal(t, []string{"bye"}, rec.calls)
	assert.Equal(t, StateUnloaded, inst.State())
	assert.True(t, store.Autoload("test.lua"), "plain unload keeps autoload")

	inst.Unload(true)
	assert.False(t, store.Autoload("test.lua"))
	assert.Equal(t, 1, inst.Stats().Unloads)
}

func TestInstance_OnUnloadErrorStillUnloads(t *testing.T) {
	inst, _, _ := newTestInstance(t, `function onUnload() error("fail") end`)
	require.NoError(t, inst.Load(context.Background()))
	inst.Unload(false)
	assert.False(t, inst.Loaded())
}

func TestInstance_DispatchZeroArity(t *testing.T) {
	inst, rec, _ := newTestInstance(t, `
function onUpdate(...) record(tostring(select("#", ...))) end
`)
	require.NoError(t, inst.Load(context.Background()))
	require.NoError(t, inst.Dispatch(event.OnUpdate, nil))
	assert.Equal(t, []string{"0"}, rec.calls)
}

func TestInstance_DispatchArgsTable(t *testing.T) {
	inst, rec, _ := newTestInstance(t, `
function onKeyUp(args) record(tostring(args.key)) end
function onChatMessageUnhandled(args)
  record(args.sender .. ":" .. args.message .. ":" .. tostring(args.senderId))
end
`)
	require.NoError(t, inst.Load(context.Background()))

	require.NoError(t, inst.Dispatch(event.OnKeyUp, event.KeyArgs(event.KeyA)))
	require.NoError(t, inst.Dispatch(event.OnChatMessageUnhandled,
		event.ChatArgs(event.ChatSay, 7, "ada", "hello")))

	assert.Equal(t, []string{fmt.Sprint(int(event.KeyA)), "ada:hello:7"}, rec.calls)
}

func TestInstance_DispatchMismatchRunsNoGuestCode(t *testing.T) {
	inst, rec, _ := newTestInstance(t, `function onKeyUp(args) record("called") end`)
	require.NoError(t, inst.Load(context.Background()))

	err := inst.Dispatch(event.OnKeyUp, event.Args{"key": "A"})
	assert.ErrorIs(t, err, event.ErrArgumentSchemaMismatch)
	assert.Empty(t, rec.calls)
	assert.Equal(t, 0, inst.Stats().Dispatched)
}

func TestInstance_DispatchIgnoredWhenUnloadedOrMissing(t *testing.T) {
	inst, rec, _ := newTestInstance(t, `function onDraw() record("draw") end`)

	assert.NoError(t, inst.Dispatch(event.OnDraw, nil))
	assert.Empty(t, rec.calls)

	require.NoError(t, inst.Load(context.Background()))
	assert.NoError(t, inst.Dispatch(event.OnUpdate, nil))
	assert.Empty(t, rec.calls)
}

func TestInstance_BreakerTripUnloadsOnce(t *testing.T) {
	now := time.Unix(1000, 0)
	queue := notify.NewQueue(0)
	tripped := 0
	inst, _, store := newTestInstance(t, `function onUpdate() error("boom") end`,
		WithNotifier(queue),
		WithClock(func() time.Time { return now }),
		WithBreaker(5, 30*time.Second),
		WithTripHook(func(*Instance) { tripped++ }),
	)
	require.NoError(t, inst.Load(context.Background()))

	for n := 0; n < 5; n++ {
		require.NoError(t, inst.Dispatch(event.OnUpdate, nil))
		now = now.Add(time.Second)
	}
	assert.False(t, inst.Loaded())
	assert.Equal(t, 1, tripped)
	assert.True(t, errors.Is(inst.LastError(), ErrRuntime))
	assert.True(t, store.Autoload("test.lua"), "trip does not clear autoload")

	notes := queue.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Script disabled", notes[0].Title)
	assert.Contains(t, notes[0].Body, "5 errors")

	// A sixth event reaches nothing.
	require.NoError(t, inst.Dispatch(event.OnUpdate, nil))
	assert.Equal(t, 5, inst.Stats().Errors)
	assert.Equal(t, 1, inst.Stats().Trips)
	assert.Zero(t, queue.Len())
}

func TestInstance_SpacedErrorsDoNotTrip(t *testing.T) {
	now := time.Unix(1000, 0)
	inst, _, _ := newTestInstance(t, `function onUpdate() error("boom") end`,
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, inst.Load(context.Background()))

	for n := 0; n < 10; n++ {
		require.NoError(t, inst.Dispatch(event.OnUpdate, nil))
		now = now.Add(10 * time.Second)
	}
	assert.True(t, inst.Loaded())
	assert.Equal(t, 10, inst.Stats().Errors)
}

func TestInstance_EditsApplyOnlyAfterReload(t *testing.T) {
	inst, rec, _ := newTestInstance(t, `function onUpdate() record("v1") end`)
	require.NoError(t, inst.Load(context.Background()))

	writeScript(t, filepath.Dir(inst.Path()), inst.Filename(),
		`function onUpdate() record("v2") end`)
	require.NoError(t, inst.LoadContents())
	require.NoError(t, inst.Dispatch(event.OnUpdate, nil))

	require.NoError(t, inst.Reload(context.Background()))
	require.NoError(t, inst.Dispatch(event.OnUpdate, nil))

	assert.Equal(t, []string{"v1", "v2"}, rec.calls)
}

func TestInstance_SandboxIsolation(t *testing.T) {
	rec := &recorder{}
	dir := t.TempDir()
	a := NewInstance(writeScript(t, dir, "a.lua", `shared = "a"`), WithManifest(rec.manifest()))
	b := NewInstance(writeScript(t, dir, "b.lua", `
record(tostring(shared))
record(type(os) .. type(io) .. type(require))
`), WithManifest(rec.manifest()))

	require.NoError(t, a.Load(context.Background()))
	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, []string{"nil", "nilnilnil"}, rec.calls)
}

func TestInstance_MetadataHeader(t *testing.T) {
	inst, _, _ := newTestInstance(t, "--m:{\"name\":\"Clock\",\"author\":\"ada\"}\nx = 1\n")
	require.NoError(t, inst.LoadContents())

	assert.Equal(t, Metadata{Name: "Clock", Author: "ada"}, inst.Metadata())
	assert.Equal(t, "x = 1\n", inst.Contents())
	assert.Equal(t, "Clock", inst.DisplayName())

	require.NoError(t, inst.Load(context.Background()))
	assert.Equal(t, "--m:{\"name\":\"Clock\",\"author\":\"ada\"}\nx = 1\n", readScript(t, inst.Path()))
}

func TestInstance_IncompleteHeaderNotRewritten(t *testing.T) {
	inst, _, _ := newTestInstance(t, "--m:{\"name\":\"Clock\"}\nx = 1\n")
	require.NoError(t, inst.Load(context.Background()))

	assert.False(t, inst.Metadata().Valid())
	assert.Equal(t, "x = 1\n", readScript(t, inst.Path()))
}

const strictGlobals = `
setmetatable(_G, {__index = function(_, k) error("undefined global " .. k, 2) end})
`

func TestInstance_StrictGlobalsScript(t *testing.T) {
	now := time.Unix(1000, 0)
	queue := notify.NewQueue(0)
	inst, rec, _ := newTestInstance(t, strictGlobals+`
function onUpdate() record(undefinedName) end
`, WithNotifier(queue), WithClock(func() time.Time { return now }))

	require.NotPanics(t, func() {
		require.NoError(t, inst.Load(context.Background()))
	})
	assert.True(t, inst.Loaded())

	// Handlers the script never defined are skipped without touching __index.
	for n := 0; n < 6; n++ {
		require.NoError(t, inst.Dispatch(event.OnDraw, nil))
	}
	assert.Equal(t, 0, inst.Stats().Errors)
	assert.True(t, inst.Loaded())

	// Errors raised through __index inside a handler count toward the breaker.
	for n := 0; n < DefaultBreakerThreshold; n++ {
		require.NoError(t, inst.Dispatch(event.OnUpdate, nil))
	}
	assert.Empty(t, rec.calls)
	assert.False(t, inst.Loaded())
	assert.Equal(t, 1, inst.Stats().Trips)
	assert.Equal(t, 1, queue.Len())
}

func TestInstance_StrictGlobalsUnload(t *testing.T) {
	inst, _, _ := newTestInstance(t, strictGlobals+`x = 1`)
	require.NoError(t, inst.Load(context.Background()))

	require.NotPanics(t, func() { inst.Unload(false) })
	assert.False(t, inst.Loaded())
}

func TestInstance_SaveContentsKeepsLineEndings(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "crlf.lua", "--m:{\"name\":\"A\",\"author\":\"B\"}\r\nx = 1\r\n")

	inst := NewInstance(path)
	require.NoError(t, inst.LoadContents())
	inst.SetMetadata(Metadata{Name: "Renamed", Author: "B"})
	require.NoError(t, inst.SaveContents())
	assert.Equal(t, "--m:{\"name\":\"Renamed\",\"author\":\"B\"}\r\nx = 1\r\n", readScript(t, path))

	fresh := NewInstance(filepath.Join(dir, "lf.lua"))
	fresh.SetMetadata(Metadata{Name: "A", Author: "B"})
	fresh.SetContents("x = 1\n")
	require.NoError(t, fresh.SaveContents())
	assert.Equal(t, "--m:{\"name\":\"A\",\"author\":\"B\"}\nx = 1\n", readScript(t, filepath.Join(dir, "lf.lua")))
}
