package lifecycle

import (
	"errors"
	"fmt"
)

// State is the shutdown state.
type State int32

const (
	StateIdle State = iota
	StateRequested
	StateAwaitingProducer
	StateAwaitingWindows
	StateComplete
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateAwaitingProducer:
		return "awaiting_producer"
	case StateAwaitingWindows:
		return "awaiting_windows"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s permits process exit.
func (s State) IsTerminal() bool {
	return s == StateComplete
}

// allowedTransitions lists every legal edge. Requested may skip
// AwaitingProducer when there is no producer left to wait for.
var allowedTransitions = map[State][]State{
	StateIdle:             {StateRequested},
	StateRequested:        {StateAwaitingProducer, StateAwaitingWindows},
	StateAwaitingProducer: {StateAwaitingWindows},
	StateAwaitingWindows:  {StateComplete},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition matches every TransitionError.
var ErrInvalidTransition = errors.New("invalid shutdown transition")

// TransitionError reports an illegal state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid shutdown transition %s -> %s", e.From, e.To)
}

// Is allows errors.Is to match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
