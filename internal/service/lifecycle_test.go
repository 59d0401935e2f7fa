package service

import (
	"errors"
	"testing"

	"github.com/mkale-dev/swarmd/internal/domain"
)

func TestTransitionTable(t *testing.T) {
	legal := []struct {
		from, to domain.AgentState
	}{
		{domain.StateCreated, domain.StateRunning},
		{domain.StateRunning, domain.StatePaused},
		{domain.StateRunning, domain.StateStopped},
		{domain.StatePaused, domain.StateRunning},
		{domain.StatePaused, domain.StateStopped},
		{domain.StateStopped, domain.StateRunning},
	}
	for _, tc := range legal {
		changed, err := Transition(tc.from, tc.to)
		if err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !changed {
			t.Errorf("%s -> %s: expected changed", tc.from, tc.to)
		}
	}

	illegal := []struct {
		from, to domain.AgentState
	}{
		{domain.StateCreated, domain.StatePaused},
		{domain.StateCreated, domain.StateStopped},
		{domain.StateStopped, domain.StatePaused},
		{domain.StatePaused, domain.StateCreated},
		{domain.StateRunning, domain.StateCreated},
	}
	for _, tc := range illegal {
		_, err := Transition(tc.from, tc.to)
		var ite *domain.InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Errorf("%s -> %s: expected InvalidTransitionError, got %v", tc.from, tc.to, err)
		}
	}
}

func TestTransitionIdempotent(t *testing.T) {
	for _, s := range []domain.AgentState{domain.StateCreated, domain.StateRunning, domain.StatePaused, domain.StateStopped} {
		changed, err := Transition(s, s)
		if err != nil {
			t.Errorf("%s -> %s: unexpected error %v", s, s, err)
		}
		if changed {
			t.Errorf("%s -> %s: same-state request must be a no-op", s, s)
		}
	}
}

func TestRunnable(t *testing.T) {
	a := &domain.Agent{State: domain.StateRunning}
	if !Runnable(a) {
		t.Error("RUNNING agent must be runnable")
	}
	for _, s := range []domain.AgentState{domain.StateCreated, domain.StatePaused, domain.StateStopped} {
		a.State = s
		if Runnable(a) {
			t.Errorf("%s agent must not be runnable", s)
		}
	}
}
