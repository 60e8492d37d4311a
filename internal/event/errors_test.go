package event

import (
	"errors"
	"strings"
	"testing"
)

func TestMismatchError_Message(t *testing.T) {
	err := NewSchema("onX", ArgOf[int]("a"), ArgOf[string]("b")).Validate(Args{"b": 1, "c": 2})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"onX", "missing a", "unexpected c", "b: want string, got int"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Target: "x.lua", Event: "onDraw", Value: "bad"}
	if !errors.Is(err, ErrHandlerPanic) {
		t.Error("PanicError should match ErrHandlerPanic")
	}
	if !strings.Contains(err.Error(), "x.lua") || !strings.Contains(err.Error(), "onDraw") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
