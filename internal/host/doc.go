// Package host is a headless reference host for tickscript.
//
// App drives the script registry on a fixed tick. Each tick it applies
// file changes, dispatches key-ups and chat lines, calls onUpdate, then
// collects one frame of UI output around onDraw on a TextSurface.
// Notifications raised during the tick (for example a script disabled by
// its breaker) are delivered to the log and, when available, the desktop.
//
// Scripts see three host globals besides the built-in utilities:
//
//	clock.now()          wall time in seconds
//	clock.elapsed()      seconds since the host started
//	chat.send(text)      append a line to the outbox
//	input.isDown(key)    key name or code
//	input.held()         names of held keys, sorted
package host
