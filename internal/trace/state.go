package trace

// State is the producer lifecycle state. Transitions only move forward.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopRequested
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop_requested"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
