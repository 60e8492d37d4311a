// Package script manages the lifecycle of guest Lua scripts.
//
// A Registry mirrors one flat directory of script files. Each file is an
// Instance that is either Unloaded (contents held, no sandbox) or Loaded
// (a private sandbox built from the capability manifest). Edits on disk
// refresh the held contents but never a running sandbox; only Reload does
// that.
//
// Events reach loaded instances through an event.Bus. A handler that keeps
// failing trips the instance's Breaker, which unloads the script and
// queues a notification for the user.
//
// A script file may start with a metadata header:
//
//	--m:{"name":"Clock","author":"ada"}
//
// The header is split off before the body runs and is written back only
// when both fields are set.
package script
