package lua

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	glua "github.com/yuin/gopher-lua"
)

type sample struct {
	Name    string `json:"name"`
	Count   int
	Skipped string `json:"-"`
	hidden  int
}

type level int

func TestBridge_ToLuaValue(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	tests := []struct {
		name string
		in   any
		want glua.LValue
	}{
		{"nil", nil, glua.LNil},
		{"bool", true, glua.LTrue},
		{"int", 3, glua.LNumber(3)},
		{"uint32", uint32(9), glua.LNumber(9)},
		{"named int", level(4), glua.LNumber(4)},
		{"float", 1.5, glua.LNumber(1.5)},
		{"string", "hi", glua.LString("hi")},
		{"bytes", []byte("raw"), glua.LString("raw")},
		{"lua value", glua.LString("x"), glua.LString("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.ToLuaValue(tt.in); got != tt.want {
				t.Errorf("ToLuaValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBridge_RoundTrip(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	in := map[string]any{
		"list":   []string{"a", "b"},
		"nested": map[string]int{"x": 1},
		"struct": sample{Name: "n", Count: 2, Skipped: "s", hidden: 1},
		"ptr":    &sample{Name: "p"},
	}
	got := b.ToGoValue(b.ToLuaValue(in))

	want := map[string]any{
		"list":   []any{"a", "b"},
		"nested": map[string]any{"x": int64(1)},
		"struct": map[string]any{"name": "n", "Count": int64(2)},
		"ptr":    map[string]any{"name": "p", "Count": int64(0)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_ToGoValue_Cycles(t *testing.T) {
	state := newTestState(t)
	if err := state.DoString(context.Background(), `t = {name = "loop"}; t.self = t`); err != nil {
		t.Fatal(err)
	}

	got := state.Bridge().ToGoValue(state.GetGlobal("t"))
	want := map[string]any{"name": "loop", "self": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestBridge_ArgsTable(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	tbl := b.ArgsTable([]string{"key", "sender"}, map[string]any{
		"key":    level(7),
		"sender": "bob",
		"ignore": 1,
	})
	state.SetGlobal("args", tbl)
	if err := state.DoString(context.Background(), `r = args.key .. ":" .. args.sender; n = args.ignore`); err != nil {
		t.Fatal(err)
	}
	if state.GetGlobal("r") != glua.LString("7:bob") {
		t.Errorf("r = %v", state.GetGlobal("r"))
	}
	if state.GetGlobal("n") != glua.LNil {
		t.Error("undeclared key leaked into args table")
	}
}

func TestBridge_ReadOnly(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	inner := state.L.NewTable()
	inner.RawSetString("a", glua.LNumber(1))
	state.SetGlobal("ro", b.ReadOnly(inner))

	ctx := context.Background()
	if err := state.DoString(ctx, `r = ro.a`); err != nil {
		t.Fatal(err)
	}
	if state.GetGlobal("r") != glua.LNumber(1) {
		t.Error("read-only proxy should expose fields")
	}
	if err := state.DoString(ctx, `ro.b = 2`); err == nil {
		t.Error("write to read-only table should fail")
	}
	if err := state.DoString(ctx, `setmetatable(ro, {})`); err == nil {
		t.Error("replacing protected metatable should fail")
	}
}

func TestBridge_WrapGoFunc(t *testing.T) {
	state := newTestState(t)
	b := state.Bridge()

	state.SetGlobal("sum", state.L.NewFunction(b.WrapGoFunc(func(args []any) (any, error) {
		var total int64
		for _, a := range args {
			total += a.(int64)
		}
		return total, nil
	})))
	if err := state.DoString(context.Background(), `r = sum(1, 2, 3)`); err != nil {
		t.Fatal(err)
	}
	if state.GetGlobal("r") != glua.LNumber(6) {
		t.Errorf("r = %v", state.GetGlobal("r"))
	}
}

func TestBridge_StringList(t *testing.T) {
	state := newTestState(t)
	tbl := state.Bridge().StringList([]string{"b", "a"})
	got := state.Bridge().ToGoValue(tbl)
	if diff := cmp.Diff([]any{"a", "b"}, got); diff != "" {
		t.Errorf("StringList (-want +got):\n%s", diff)
	}
}
