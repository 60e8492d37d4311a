package event

import (
	"reflect"
	"strings"
)

// TypeOf returns the reflect.Type of T. Schemas capture argument types this
// way once, at declaration.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// KeyCode identifies a keyboard key reported by the host.
type KeyCode int

// Key codes exposed to scripts through the keys table.
const (
	KeyNone KeyCode = iota
	KeyEnter
	KeyEscape
	KeySpace
	KeyTab
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyShift
	KeyControl
	KeyAlt
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
)

var keyNames = map[KeyCode]string{
	KeyNone: "None", KeyEnter: "Enter", KeyEscape: "Escape", KeySpace: "Space",
	KeyTab: "Tab", KeyBackspace: "Backspace", KeyUp: "Up", KeyDown: "Down",
	KeyLeft: "Left", KeyRight: "Right", KeyShift: "Shift", KeyControl: "Control",
	KeyAlt: "Alt",
}

func init() {
	for k := KeyF1; k <= KeyF12; k++ {
		keyNames[k] = "F" + itoa(int(k-KeyF1)+1)
	}
	for k := Key0; k <= Key9; k++ {
		keyNames[k] = string(rune('0' + int(k-Key0)))
	}
	for k := KeyA; k <= KeyZ; k++ {
		keyNames[k] = string(rune('A' + int(k-KeyA)))
	}
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// String returns the key name.
func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKey returns the key with the given name, ignoring case.
func ParseKey(name string) (KeyCode, bool) {
	for k, n := range keyNames {
		if k != KeyNone && strings.EqualFold(n, name) {
			return k, true
		}
	}
	return KeyNone, false
}

// Keys returns all named keys except KeyNone, ordered by code.
func Keys() []KeyCode {
	keys := make([]KeyCode, 0, len(keyNames)-1)
	for k := KeyEnter; k <= KeyZ; k++ {
		keys = append(keys, k)
	}
	return keys
}

// ChatType classifies a chat message delivered to scripts.
type ChatType int

// Chat message types.
const (
	ChatSystem ChatType = iota
	ChatSay
	ChatShout
	ChatTell
	ChatParty
	ChatEcho
	ChatCommand
)

// String returns the chat type name.
func (c ChatType) String() string {
	switch c {
	case ChatSystem:
		return "system"
	case ChatSay:
		return "say"
	case ChatShout:
		return "shout"
	case ChatTell:
		return "tell"
	case ChatParty:
		return "party"
	case ChatEcho:
		return "echo"
	case ChatCommand:
		return "command"
	default:
		return "unknown"
	}
}
