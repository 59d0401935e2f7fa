package service

import (
	"github.com/mkale-dev/swarmd/internal/domain"
)

// Legal lifecycle transitions. CREATED can only start; RUNNING can
// pause or stop; PAUSED can resume or stop; STOPPED can restart.
var transitions = map[domain.AgentState]map[domain.AgentState]bool{
	domain.StateCreated: {domain.StateRunning: true},
	domain.StateRunning: {domain.StatePaused: true, domain.StateStopped: true},
	domain.StatePaused:  {domain.StateRunning: true, domain.StateStopped: true},
	domain.StateStopped: {domain.StateRunning: true},
}

// Transition validates a requested state change. Requesting the
// current state again is idempotent: it succeeds with changed=false
// and must cause no side effects. Any other illegal request returns
// InvalidTransitionError.
func Transition(from, to domain.AgentState) (changed bool, err error) {
	if from == to {
		return false, nil
	}
	if transitions[from][to] {
		return true, nil
	}
	return false, &domain.InvalidTransitionError{From: from, To: to}
}

// Runnable reports whether the dispatcher may fire the agent now.
// Consulted before every firing attempt, not only at registration,
// because state can change between a timer's registration and its
// tick.
func Runnable(a *domain.Agent) bool {
	return a.State == domain.StateRunning
}
