package workflow

import (
	"fmt"
	"sort"
)

// transitions is the complete lifecycle: a request is created PENDING, an admin
// approves or rejects it, and a rejected request may be resubmitted back to
// PENDING. APPROVED has no outgoing edges.
var transitions = map[State]map[Trigger]State{
	StatePending: {
		TriggerApprove: StateApproved,
		TriggerReject:  StateRejected,
	},
	StateRejected: {
		TriggerResubmit: StatePending,
	},
}

// Next returns the state reached by firing trigger from the given state.
// It returns ErrInvalidState for unknown states and ErrInvalidTransition
// when the trigger is not permitted, so callers can distinguish data
// corruption from guard failures.
func Next(from State, trigger Trigger) (State, error) {
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, from)
	}

	to, ok := transitions[from][trigger]
	if !ok {
		return "", fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, from)
	}

	return to, nil
}

// CanFire returns true if the trigger is permitted in the given state
func CanFire(from State, trigger Trigger) bool {
	_, ok := transitions[from][trigger]
	return ok
}

// PermittedTriggers returns all triggers that can be fired in the given state,
// in stable order
func PermittedTriggers(from State) []Trigger {
	permitted := make([]Trigger, 0, len(transitions[from]))
	for trigger := range transitions[from] {
		permitted = append(permitted, trigger)
	}
	sort.Slice(permitted, func(i, j int) bool { return permitted[i] < permitted[j] })
	return permitted
}
