package event

import "testing"

func TestKeyCode_String(t *testing.T) {
	tests := []struct {
		key  KeyCode
		want string
	}{
		{KeyNone, "None"},
		{KeyEnter, "Enter"},
		{KeyF1, "F1"},
		{KeyF10, "F10"},
		{KeyF12, "F12"},
		{Key0, "0"},
		{Key9, "9"},
		{KeyA, "A"},
		{KeyZ, "Z"},
		{KeyCode(-1), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("KeyCode(%d).String() = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseKey(t *testing.T) {
	for _, k := range Keys() {
		got, ok := ParseKey(k.String())
		if !ok || got != k {
			t.Errorf("ParseKey(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if k, ok := ParseKey("escape"); !ok || k != KeyEscape {
		t.Errorf("ParseKey should ignore case, got %v %v", k, ok)
	}
	if _, ok := ParseKey("None"); ok {
		t.Error("None should not parse")
	}
	if _, ok := ParseKey("Hyper"); ok {
		t.Error("unknown key should not parse")
	}
}

func TestChatType_String(t *testing.T) {
	if ChatSay.String() != "say" || ChatCommand.String() != "command" || ChatType(42).String() != "unknown" {
		t.Error("unexpected ChatType names")
	}
}
