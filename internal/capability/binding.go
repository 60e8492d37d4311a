package capability

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"

	scriptlua "github.com/dshills/tickscript/internal/script/lua"
)

// Binding produces the Lua value installed under one manifest name. It is
// called once per sandbox, so every script receives its own value.
type Binding interface {
	Bind(state *scriptlua.State, scope Scope) (lua.LValue, error)
}

// BindingFunc adapts a function to the Binding interface.
type BindingFunc func(state *scriptlua.State, scope Scope) (lua.LValue, error)

// Bind calls f.
func (f BindingFunc) Bind(state *scriptlua.State, scope Scope) (lua.LValue, error) {
	return f(state, scope)
}

// Table binds a table of Go functions.
func Table(funcs map[string]lua.LGFunction) Binding {
	copied := make(map[string]lua.LGFunction, len(funcs))
	for k, v := range funcs {
		copied[k] = v
	}
	return BindingFunc(func(state *scriptlua.State, _ Scope) (lua.LValue, error) {
		L := state.LuaState()
		return L.SetFuncs(L.NewTable(), copied), nil
	})
}

// Value binds a Go value converted by the state's Bridge. Tables are built
// fresh for each sandbox so one script cannot modify another's copy. Lua
// tables, functions, userdata and threads belong to a single state and are
// rejected with ErrSharedValue, nested or not; use Func or BindingFunc to
// build them per sandbox.
func Value(v any) Binding {
	return BindingFunc(func(state *scriptlua.State, _ Scope) (lua.LValue, error) {
		if err := checkShareable(reflect.ValueOf(v), 0); err != nil {
			return nil, err
		}
		return state.Bridge().ToLuaValue(v), nil
	})
}

// maxValueDepth bounds the walk over self-referencing Go values.
const maxValueDepth = 32

func checkShareable(rv reflect.Value, depth int) error {
	if !rv.IsValid() || depth > maxValueDepth {
		return nil
	}
	if rv.CanInterface() {
		if lv, ok := rv.Interface().(lua.LValue); ok {
			switch lv.Type() {
			case lua.LTTable, lua.LTFunction, lua.LTUserData, lua.LTThread, lua.LTChannel:
				return fmt.Errorf("%w: %s", ErrSharedValue, lv.Type())
			}
			return nil
		}
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		return checkShareable(rv.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkShareable(rv.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := checkShareable(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := checkShareable(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if err := checkShareable(rv.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Func binds a single Go function.
func Func(fn lua.LGFunction) Binding {
	return BindingFunc(func(state *scriptlua.State, _ Scope) (lua.LValue, error) {
		return state.LuaState().NewFunction(fn), nil
	})
}
