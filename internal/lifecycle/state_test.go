package lifecycle

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateRequested, true},
		{StateRequested, StateAwaitingProducer, true},
		{StateRequested, StateAwaitingWindows, true},
		{StateAwaitingProducer, StateAwaitingWindows, true},
		{StateAwaitingWindows, StateComplete, true},
		{StateIdle, StateComplete, false},
		{StateAwaitingProducer, StateComplete, false},
		{StateComplete, StateIdle, false},
		{StateAwaitingWindows, StateRequested, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if StateAwaitingProducer.String() != "awaiting_producer" {
		t.Errorf("unexpected name %q", StateAwaitingProducer.String())
	}
	if State(42).String() != "unknown" {
		t.Error("expected unknown for out-of-range state")
	}
	if !StateComplete.IsTerminal() || StateAwaitingWindows.IsTerminal() {
		t.Error("only Complete is terminal")
	}
}

func TestTransitionError(t *testing.T) {
	var err error = &TransitionError{From: StateIdle, To: StateComplete}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError should match ErrInvalidTransition")
	}
	if err.Error() != "invalid shutdown transition idle -> complete" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
