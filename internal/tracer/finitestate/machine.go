// Package finitestate tracks whether a launcher is idle or running a script.
package finitestate

import (
	"log/slog"

	"github.com/robbyt/go-fsm"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
)

// LauncherTransitions allows a launcher to start a run only from idle and to
// return to idle once the run is over.
var LauncherTransitions = map[string][]string{
	StatusIdle:    {StatusRunning},
	StatusRunning: {StatusIdle},
}

// Machine is the subset of the state machine the launcher relies on.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionIfCurrentState transitions only when the machine is in currentState.
	TransitionIfCurrentState(currentState, newState string) error

	// GetState returns the current state of the state machine.
	GetState() string
}

// New creates an idle launcher state machine.
func New(handler slog.Handler) (Machine, error) {
	machine, err := fsm.New(handler, StatusIdle, LauncherTransitions)
	if err != nil {
		return nil, err
	}
	return machine, nil
}
