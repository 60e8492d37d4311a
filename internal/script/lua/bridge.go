package lua

import (
	"fmt"
	"reflect"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua for one state.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value. Numbers with no fractional
// part become int64, sequences become []any, other tables map[string]any.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, seen map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if seen[v] {
			return nil
		}
		seen[v] = true
		defer delete(seen, v)
		if n := sequenceLen(v); n > 0 {
			out := make([]any, n)
			for i := 1; i <= n; i++ {
				out[i-1] = b.toGo(v.RawGetInt(i), seen)
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			out[tableKey(k)] = b.toGo(val, seen)
		})
		return out
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// sequenceLen returns n when t holds exactly the keys 1..n, else 0.
func sequenceLen(t *lua.LTable) int {
	count, maxN := 0, 0
	seq := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			seq = false
			return
		}
		if int(kn) > maxN {
			maxN = int(kn)
		}
	})
	if !seq || count != maxN {
		return 0
	}
	return maxN
}

func tableKey(k lua.LValue) string {
	switch kv := k.(type) {
	case lua.LString:
		return string(kv)
	case lua.LNumber:
		return fmt.Sprintf("%v", float64(kv))
	default:
		return k.String()
	}
}

// ToLuaValue converts a Go value to a fresh Lua value. Named numeric,
// string and bool types (KeyCode, ChatType) convert by kind. A lua.LValue is
// returned as is, so reference values must already belong to this state.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case lua.LGFunction:
		return b.L.NewFunction(val)
	case func(*lua.LState) int:
		return b.L.NewFunction(val)
	}
	return b.reflectToLua(reflect.ValueOf(v))
}

func (b *Bridge) reflectToLua(rv reflect.Value) lua.LValue {
	if !rv.IsValid() {
		return lua.LNil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		if rv.Kind() == reflect.Pointer && rv.Elem().Kind() != reflect.Struct {
			return b.reflectToLua(rv.Elem())
		}
		if rv.Kind() == reflect.Interface {
			return b.ToLuaValue(rv.Elem().Interface())
		}
		return b.structToTable(rv.Elem())
	case reflect.Slice, reflect.Array:
		t := b.L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, b.ToLuaValue(rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := b.L.CreateTable(0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(b.ToLuaValue(iter.Key().Interface()), b.ToLuaValue(iter.Value().Interface()))
		}
		return t
	case reflect.Struct:
		return b.structToTable(rv)
	default:
		ud := b.L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}

// structToTable converts exported struct fields, honoring json tag names.
func (b *Bridge) structToTable(rv reflect.Value) *lua.LTable {
	rt := rv.Type()
	t := b.L.CreateTable(0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, _, _ := cutComma(field.Tag.Get("json")); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		t.RawSetString(name, b.ToLuaValue(rv.Field(i).Interface()))
	}
	return t
}

func cutComma(tag string) (string, string, bool) {
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i], tag[i+1:], true
		}
	}
	return tag, "", false
}

// ArgsTable builds the single table argument passed to event handlers,
// keyed by argument name. names fixes which keys are copied.
func (b *Bridge) ArgsTable(names []string, args map[string]any) *lua.LTable {
	t := b.L.CreateTable(0, len(names))
	for _, name := range names {
		t.RawSetString(name, b.ToLuaValue(args[name]))
	}
	return t
}

// ReadOnly wraps t in a proxy table whose writes raise an error.
func (b *Bridge) ReadOnly(t *lua.LTable) *lua.LTable {
	proxy := b.L.NewTable()
	mt := b.L.NewTable()
	mt.RawSetString("__index", t)
	mt.RawSetString("__newindex", b.L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("attempt to modify read-only table")
		return 0
	}))
	mt.RawSetString("__metatable", lua.LFalse)
	b.L.SetMetatable(proxy, mt)
	return proxy
}

// StringList converts a sorted copy of keys into a Lua array.
func (b *Bridge) StringList(keys []string) *lua.LTable {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	t := b.L.CreateTable(len(sorted), 0)
	for i, k := range sorted {
		t.RawSetInt(i+1, lua.LString(k))
	}
	return t
}

// WrapGoFunc adapts fn so Lua arguments arrive as Go values and a returned
// error is raised in the guest.
func (b *Bridge) WrapGoFunc(fn func(args []any) (any, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, n)
		for i := 1; i <= n; i++ {
			args[i-1] = b.ToGoValue(L.Get(i))
		}

		result, err := fn(args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		if result == nil {
			return 0
		}
		L.Push(b.ToLuaValue(result))
		return 1
	}
}
