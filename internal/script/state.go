package script

// State is the lifecycle state of a script instance.
type State int

// Script states.
const (
	// StateUnloaded - no sandbox exists; events are ignored.
	StateUnloaded State = iota

	// StateLoaded - the script body ran and onLoad succeeded.
	StateLoaded
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}
