package domain

import (
	"context"
)

// AgentStore is the durable system of record for agents. All
// mutations are atomic per agent id; no cross-agent transactions.
type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	// Update persists the mutable fields (name, description,
	// blueprint, input schema) of an existing agent.
	Update(ctx context.Context, a *Agent) error
	UpdateState(ctx context.Context, id string, state AgentState) error
	// Delete retires the agent's id permanently; a retired id can
	// never be created again.
	Delete(ctx context.Context, id string) error
	// List returns all live agents in insertion order.
	List(ctx context.Context) ([]*Agent, error)
}

// RunStore is the append-only per-agent log of execution records,
// bounded FIFO by the retention policy.
type RunStore interface {
	Append(ctx context.Context, rec *ExecutionRecord) error
	// Trim evicts the oldest records beyond keep for the agent.
	Trim(ctx context.Context, agentID string, keep int) error
	// ListByAgent returns the newest limit records, ordered by
	// started_at ascending.
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*ExecutionRecord, error)
	// LatestOutput returns the output of the most recent SUCCESS run.
	LatestOutput(ctx context.Context, agentID string) (map[string]any, error)
	PurgeAgent(ctx context.Context, agentID string) error
}

// OutputStore holds the single "current output" slot per agent,
// overwritten only by SUCCESS runs.
type OutputStore interface {
	Set(ctx context.Context, agentID string, output map[string]any) error
	Get(ctx context.Context, agentID string) (map[string]any, error)
	Delete(ctx context.Context, agentID string) error
}

// Tool is an opaque callable from the tool catalog. config is the
// blueprint's per-agent tool configuration, args per invocation.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, config, args map[string]any) (map[string]any, error)
}

// BoundTool pairs a tool implementation with the configuration it
// was composed with in a blueprint.
type BoundTool struct {
	Ref  ToolRef
	Impl Tool
}

func (b BoundTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return b.Impl.Invoke(ctx, b.Ref.Config, args)
}

// StrategyCall is everything a strategy receives for one run.
type StrategyCall struct {
	Agent   *Agent
	Config  map[string]any
	Payload map[string]any
	Tools   []BoundTool
	// Logf appends a line to the run's log. Safe for concurrent use;
	// writes after the run is finalized are dropped.
	Logf func(format string, args ...any)
}

// Strategy is an opaque callable from the strategy catalog. Execute
// must honor ctx cancellation; the runner abandons uncooperative
// strategies after a grace period.
type Strategy interface {
	Name() string
	InputSchema() Schema
	Execute(ctx context.Context, call *StrategyCall) (map[string]any, error)
}
