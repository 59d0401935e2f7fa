package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkale-dev/swarmd/internal/catalog"
	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/store"
)

// CreateAgentRequest is the input for composing a new agent. ID is
// optional; a UUID is assigned when absent. Client-supplied ids are
// accepted but never reusable once retired.
type CreateAgentRequest struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TriggerType domain.TriggerType `json:"trigger_type"`
	Blueprint   domain.Blueprint   `json:"blueprint"`
}

// AgentService owns agent CRUD and lifecycle transitions, and keeps
// the dispatcher's registrations in step with persisted state.
type AgentService struct {
	agents     domain.AgentStore
	runs       domain.RunStore
	outputs    domain.OutputStore
	tools      *catalog.ToolCatalog
	strategies *catalog.StrategyCatalog
	dispatcher *Dispatcher
	runner     *Runner
	logger     *zap.Logger
}

func NewAgentService(agents domain.AgentStore, runs domain.RunStore, outputs domain.OutputStore, tools *catalog.ToolCatalog, strategies *catalog.StrategyCatalog, dispatcher *Dispatcher, runner *Runner, logger *zap.Logger) *AgentService {
	return &AgentService{
		agents:     agents,
		runs:       runs,
		outputs:    outputs,
		tools:      tools,
		strategies: strategies,
		dispatcher: dispatcher,
		runner:     runner,
		logger:     logger,
	}
}

// Create validates the blueprint, derives the input schema and
// persists the agent in CREATED state. No dispatch is armed until an
// explicit start.
func (s *AgentService) Create(ctx context.Context, req *CreateAgentRequest) (*domain.Agent, error) {
	if req.Name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if req.TriggerType != domain.TriggerPeriodic && req.TriggerType != domain.TriggerWebhook {
		return nil, domain.NewValidationError("trigger_type must be %s or %s", domain.TriggerPeriodic, domain.TriggerWebhook)
	}

	schema, err := ValidateBlueprint(&req.Blueprint, req.TriggerType, s.tools, s.strategies)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	a := &domain.Agent{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		State:       domain.StateCreated,
		TriggerType: req.TriggerType,
		Blueprint:   req.Blueprint,
		InputSchema: schema,
	}
	if err := s.agents.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domain.ErrDuplicateID
		}
		return nil, err
	}

	s.logger.Info("agent created",
		zap.String("agent_id", a.ID),
		zap.String("trigger_type", string(a.TriggerType)),
		zap.String("strategy", a.Blueprint.Strategy.Name))
	return a, nil
}

func (s *AgentService) Get(ctx context.Context, id string) (*domain.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AgentService) List(ctx context.Context) ([]*domain.Agent, error) {
	return s.agents.List(ctx)
}

// Update applies the mutable fields. A new blueprint is revalidated
// against the catalogs; the trigger type stays immutable, so a
// blueprint whose trigger kind differs from the agent's is rejected.
// A changed interval on a RUNNING periodic agent re-arms its timer.
func (s *AgentService) Update(ctx context.Context, id string, upd *domain.AgentUpdate) (*domain.Agent, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, domain.NewValidationError("name is required")
		}
		a.Name = *upd.Name
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Blueprint != nil {
		schema, err := ValidateBlueprint(upd.Blueprint, a.TriggerType, s.tools, s.strategies)
		if err != nil {
			return nil, err
		}
		a.Blueprint = *upd.Blueprint
		a.InputSchema = schema
	}

	if err := s.agents.Update(ctx, a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if upd.Blueprint != nil && a.State == domain.StateRunning && a.TriggerType == domain.TriggerPeriodic {
		s.dispatcher.Register(a)
	}
	return a, nil
}

// Delete tears down dispatch, signals cancellation to any in-flight
// run without waiting for it, retires the id and purges execution
// history. See DESIGN.md for the in-flight policy decision.
func (s *AgentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	s.dispatcher.Deregister(id)
	s.runner.Cancel(id)

	if err := s.agents.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if err := s.runs.PurgeAgent(ctx, id); err != nil {
		s.logger.Warn("purge execution history failed", zap.String("agent_id", id), zap.Error(err))
	}
	if err := s.outputs.Delete(ctx, id); err != nil {
		s.logger.Warn("delete current output failed", zap.String("agent_id", id), zap.Error(err))
	}

	s.logger.Info("agent deleted", zap.String("agent_id", id))
	return nil
}

// SetState drives the lifecycle state machine and then re-arms or
// tears down dispatch to match. Requesting the current state is
// idempotent and touches nothing.
func (s *AgentService) SetState(ctx context.Context, id string, target domain.AgentState) (*domain.Agent, error) {
	if !domain.ValidState(target) {
		return nil, domain.NewValidationError("unknown state %q", target)
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := Transition(a.State, target)
	if err != nil {
		return nil, err
	}
	if !changed {
		return a, nil
	}

	if err := s.agents.UpdateState(ctx, id, target); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.State = target

	// Dispatch follows persisted state: timers armed only while
	// RUNNING; webhook routes stay registered and are rejected per
	// the runnable check until state returns to RUNNING.
	if target == domain.StateRunning {
		s.dispatcher.Register(a)
	} else {
		s.dispatcher.Deregister(id)
	}

	s.logger.Info("agent state changed",
		zap.String("agent_id", id),
		zap.String("state", string(target)))
	return a, nil
}

// Logs returns the agent's retained execution records, oldest first.
func (s *AgentService) Logs(ctx context.Context, id string, limit int) ([]*domain.ExecutionRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.runs.ListByAgent(ctx, id, limit)
}

// Output returns the agent's current output: the cache slot when
// warm, otherwise the latest SUCCESS record from durable storage.
func (s *AgentService) Output(ctx context.Context, id string) (map[string]any, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.outputs.Get(ctx, id)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("output cache read failed, falling back", zap.String("agent_id", id), zap.Error(err))
	}
	out, err = s.runs.LatestOutput(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNoOutput
		}
		return nil, err
	}
	return out, nil
}
