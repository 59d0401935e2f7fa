package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookup and dispatch failures.
var (
	// ErrNotFound means the agent id is unknown.
	ErrNotFound = errors.New("agent not found")
	// ErrDuplicateID means create was called with an id that exists
	// or existed before. Agent ids are never reused.
	ErrDuplicateID = errors.New("agent id already in use")
	// ErrNotRunnable means a webhook fired while the agent was not
	// in the RUNNING state.
	ErrNotRunnable = errors.New("agent is not runnable")
	// ErrNoOutput means the agent has no successful run yet.
	ErrNoOutput = errors.New("agent has no output")
)

// ValidationError reports the first violated constraint of a
// blueprint or inbound payload.
type ValidationError struct {
	Constraint string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Constraint
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Constraint: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidTransitionError reports an illegal lifecycle state change.
type InvalidTransitionError struct {
	From AgentState
	To   AgentState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ExecutionError wraps a strategy or tool failure during a run. It is
// recorded in the run's ExecutionRecord and never crashes the engine.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return "execution failed: " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
