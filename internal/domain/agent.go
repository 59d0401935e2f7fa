package domain

import (
	"time"
)

// AgentState is the lifecycle state of an agent.
type AgentState string

const (
	StateCreated AgentState = "CREATED"
	StateRunning AgentState = "RUNNING"
	StatePaused  AgentState = "PAUSED"
	StateStopped AgentState = "STOPPED"
)

// ValidState reports whether s is one of the four lifecycle states.
func ValidState(s AgentState) bool {
	switch s {
	case StateCreated, StateRunning, StatePaused, StateStopped:
		return true
	}
	return false
}

// TriggerType selects how an agent's runs are initiated.
// Immutable after creation.
type TriggerType string

const (
	TriggerPeriodic TriggerType = "PERIODIC"
	TriggerWebhook  TriggerType = "WEBHOOK"
)

// ToolRef names a tool from the tool catalog plus its opaque
// per-agent configuration.
type ToolRef struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// StrategyRef names the agent's strategy from the strategy catalog
// plus its opaque configuration. One per agent.
type StrategyRef struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// TriggerConfig carries the trigger kind and its parameters.
// PERIODIC requires a positive interval; WEBHOOK accepts an optional
// payload-schema override.
type TriggerConfig struct {
	Type          TriggerType `json:"type"`
	IntervalSec   int         `json:"interval_sec,omitempty"`
	PayloadSchema Schema      `json:"payload_schema,omitempty"`
}

// Blueprint is an agent's composition: an ordered tool list, one
// strategy, one trigger config.
type Blueprint struct {
	Tools    []ToolRef     `json:"tools"`
	Strategy StrategyRef   `json:"strategy"`
	Trigger  TriggerConfig `json:"trigger"`
}

type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	State       AgentState  `json:"state"`
	TriggerType TriggerType `json:"trigger_type"`
	Blueprint   Blueprint   `json:"blueprint"`
	// InputSchema is derived from the strategy's declared input shape
	// at blueprint composition time (webhook payload-schema override
	// applied). Read-only.
	InputSchema Schema    `json:"input_schema"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AgentUpdate is the mutable subset of an agent. Nil fields are left
// unchanged. ID and TriggerType are immutable after creation.
type AgentUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Blueprint   *Blueprint `json:"blueprint,omitempty"`
}
