// Package event declares the host events scripts can handle and delivers
// them to script instances.
//
// Each event is a *Schema: a name plus an ordered list of typed arguments.
// Argument types are captured once with TypeOf and compared by identity, so
// a dispatch whose Args disagree with the schema is rejected with a
// *MismatchError before any guest code runs.
//
// Bus delivers a validated event to targets in order, recovering panics and
// logging failures per target so that one broken script never prevents the
// others from receiving the event.
package event
