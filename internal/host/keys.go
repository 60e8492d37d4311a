package host

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tickscript/internal/event"
	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// KeyState tracks which keys are held and which were released since the
// last tick. Press and Release may be called from any goroutine.
type KeyState struct {
	mu       sync.Mutex
	down     map[event.KeyCode]bool
	released []event.KeyCode
}

// NewKeyState creates a KeyState with no keys held.
func NewKeyState() *KeyState {
	return &KeyState{down: make(map[event.KeyCode]bool)}
}

// Press marks key as held.
func (k *KeyState) Press(key event.KeyCode) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.down[key] = true
}

// Release marks key as no longer held. Releasing a key that is not held
// produces no key-up.
func (k *KeyState) Release(key event.KeyCode) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.down[key] {
		return
	}
	delete(k.down, key)
	for _, r := range k.released {
		if r == key {
			return
		}
	}
	k.released = append(k.released, key)
}

// Tap presses and releases key, producing one key-up.
func (k *KeyState) Tap(key event.KeyCode) {
	k.Press(key)
	k.Release(key)
}

// TapName taps the key with the given name.
func (k *KeyState) TapName(name string) error {
	key, ok := event.ParseKey(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	k.Tap(key)
	return nil
}

// KeyUps returns the keys released since the previous call, in release
// order.
func (k *KeyState) KeyUps() []event.KeyCode {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := k.released
	k.released = nil
	return out
}

// IsDown reports whether key is held.
func (k *KeyState) IsDown(key event.KeyCode) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[key]
}

// Held returns the names of the held keys in sorted order.
func (k *KeyState) Held() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, 0, len(k.down))
	for key := range k.down {
		names = append(names, key.String())
	}
	sort.Strings(names)
	return names
}

// table returns the guest binding: input.isDown(key) accepts a key name
// or a key code; input.held() lists held key names, sorted.
func (k *KeyState) table(state *scriptlua.State) *lua.LTable {
	L := state.LuaState()
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"held": func(L *lua.LState) int {
			L.Push(state.Bridge().StringList(k.Held()))
			return 1
		},
		"isDown": func(L *lua.LState) int {
			var key event.KeyCode
			switch v := L.CheckAny(1).(type) {
			case lua.LNumber:
				key = event.KeyCode(v)
			case lua.LString:
				parsed, ok := event.ParseKey(string(v))
				if !ok {
					L.ArgError(1, "unknown key "+string(v))
					return 0
				}
				key = parsed
			default:
				L.ArgError(1, "key name or code expected")
				return 0
			}
			L.Push(lua.LBool(k.IsDown(key)))
			return 1
		},
	})
}
