// Package lua runs guest scripts on gopher-lua inside a sandbox.
//
// A State is created per script load and never reused: NewState opens only
// the base, table, string and math libraries and then strips every global
// that can load code, touch the host, or inspect the runtime (see Sandbox).
//
//	state, err := lua.NewState(lua.WithChunkName("hello.lua"))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoString(ctx, body); err != nil {
//	    return err
//	}
//	if state.HasFunction("onLoad") {
//	    _, err = state.Call(ctx, "onLoad")
//	}
//
// There is no default execution limit. WithCallTimeout installs a context
// deadline per call, which gopher-lua checks between instructions.
//
// Bridge converts values in both directions and builds the argument table
// passed to event handlers.
package lua
