package domain

import "time"

// RunStatus is the terminal status of a single execution.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailure RunStatus = "FAILURE"
	RunSkipped RunStatus = "SKIPPED"
)

// ExecutionRecord captures one run of an agent's strategy. Records
// for a single agent form a strict sequence: the runner's per-agent
// lock admits at most one run in flight.
type ExecutionRecord struct {
	ID         string         `json:"id"`
	AgentID    string         `json:"agent_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Status     RunStatus      `json:"status"`
	LogLines   []string       `json:"log_lines"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
}
