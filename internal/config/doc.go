// Package config loads tickscript settings and persists script state.
//
// Settings come from built-in defaults, then an optional TOML or YAML file,
// then TICKSCRIPT_* environment variables (optionally seeded from a .env
// file). Validate rejects values the runtime cannot use.
//
// A Store records which scripts load automatically and which script is
// selected. FileStore keeps that state in a small TOML file:
//
//	selected_script = "hello.lua"
//
//	[autoload]
//	"hello.lua" = true
package config
