// Package capability decides what a guest script can reach.
//
// A Manifest is the complete list of host objects exposed to scripts. It is
// built once by a Builder, never changes afterwards, and is injected into
// each fresh sandbox before the script body runs. Every sandbox also gets
// the console, ui, events and keys globals, which do not depend on the
// manifest.
//
//	m := capability.NewBuilder().
//	    MustBind("clock", clock).
//	    MustBind("version", capability.Value("1.2.0")).
//	    Build()
//
//	err := m.Inject(state, capability.Scope{Script: "hello.lua", Logger: log})
package capability
