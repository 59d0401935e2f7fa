package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkale-dev/swarmd/internal/catalog"
	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/store"
)

// memAgentStore implements domain.AgentStore for testing. Retired ids
// stay retired, matching the soft-delete behavior of the pg store.
type memAgentStore struct {
	mu      sync.Mutex
	agents  map[string]*domain.Agent
	order   []string
	retired map[string]bool
}

func newMemAgentStore() *memAgentStore {
	return &memAgentStore{
		agents:  make(map[string]*domain.Agent),
		retired: make(map[string]bool),
	}
}

func (m *memAgentStore) Create(ctx context.Context, a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.agents[a.ID]; exists || m.retired[a.ID] {
		return store.ErrConflict
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	m.agents[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memAgentStore) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAgentStore) Update(ctx context.Context, a *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.agents[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Name = a.Name
	cur.Description = a.Description
	cur.Blueprint = a.Blueprint
	cur.InputSchema = a.InputSchema
	cur.UpdatedAt = time.Now().UTC()
	a.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *memAgentStore) UpdateState(ctx context.Context, id string, state domain.AgentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return store.ErrNotFound
	}
	a.State = state
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memAgentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.agents, id)
	m.retired[id] = true
	return nil
}

func (m *memAgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Agent
	for _, id := range m.order {
		if a, ok := m.agents[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memRunStore implements domain.RunStore for testing.
type memRunStore struct {
	mu      sync.Mutex
	byAgent map[string][]*domain.ExecutionRecord
}

func newMemRunStore() *memRunStore {
	return &memRunStore{byAgent: make(map[string][]*domain.ExecutionRecord)}
}

func (m *memRunStore) Append(ctx context.Context, rec *domain.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.byAgent[rec.AgentID] = append(m.byAgent[rec.AgentID], &cp)
	return nil
}

func (m *memRunStore) Trim(ctx context.Context, agentID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.byAgent[agentID]
	if keep > 0 && len(recs) > keep {
		m.byAgent[agentID] = recs[len(recs)-keep:]
	}
	return nil
}

func (m *memRunStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.byAgent[agentID]
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]*domain.ExecutionRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (m *memRunStore) LatestOutput(ctx context.Context, agentID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.byAgent[agentID]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Status == domain.RunSuccess {
			return recs[i].Output, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRunStore) PurgeAgent(ctx context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byAgent, agentID)
	return nil
}

func (m *memRunStore) count(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byAgent[agentID])
}

// memOutputStore implements domain.OutputStore for testing.
type memOutputStore struct {
	mu      sync.Mutex
	outputs map[string]map[string]any
}

func newMemOutputStore() *memOutputStore {
	return &memOutputStore{outputs: make(map[string]map[string]any)}
}

func (m *memOutputStore) Set(ctx context.Context, agentID string, output map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[agentID] = output
	return nil
}

func (m *memOutputStore) Get(ctx context.Context, agentID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.outputs[agentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (m *memOutputStore) Delete(ctx context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outputs, agentID)
	return nil
}

// stubStrategy is a configurable strategy for tests. Delay is waited
// out before returning; honoring ctx cancellation is controlled by
// ignoreCtx to exercise the abandonment path.
type stubStrategy struct {
	name      string
	input     domain.Schema
	output    map[string]any
	err       error
	delay     time.Duration
	ignoreCtx bool
	started   chan struct{}

	mu    sync.Mutex
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) InputSchema() domain.Schema { return s.input }

func (s *stubStrategy) Execute(ctx context.Context, call *domain.StrategyCall) (map[string]any, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.delay > 0 {
		if s.ignoreCtx {
			time.Sleep(s.delay)
		} else {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if s.err != nil {
		call.Logf("stub failing: %v", s.err)
		return nil, s.err
	}
	call.Logf("stub ran")
	if s.output != nil {
		return s.output, nil
	}
	if call.Payload != nil {
		if v, ok := call.Payload["value"].(float64); ok {
			return map[string]any{"value": v * 2}, nil
		}
	}
	return map[string]any{"ok": true}, nil
}

func (s *stubStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testCatalogs(strategies ...domain.Strategy) (*catalog.ToolCatalog, *catalog.StrategyCatalog) {
	tools := catalog.NewToolCatalog(catalog.ToolEntry{
		Name:        "ping",
		Description: "echo",
		Impl:        pingStub{},
	})
	entries := make([]catalog.StrategyEntry, 0, len(strategies))
	for _, s := range strategies {
		entries = append(entries, catalog.StrategyEntry{
			Name:  s.Name(),
			Input: s.InputSchema(),
			Impl:  s,
		})
	}
	return tools, catalog.NewStrategyCatalog(entries...)
}

type pingStub struct{}

func (pingStub) Name() string { return "ping" }

func (pingStub) Invoke(_ context.Context, config, args map[string]any) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

// testAgent builds a minimal persisted agent for direct runner and
// dispatcher tests.
func testAgent(id string, trigger domain.TriggerType, strategyName string, state domain.AgentState) *domain.Agent {
	bp := domain.Blueprint{
		Tools:    []domain.ToolRef{{Name: "ping"}},
		Strategy: domain.StrategyRef{Name: strategyName},
		Trigger:  domain.TriggerConfig{Type: trigger},
	}
	if trigger == domain.TriggerPeriodic {
		bp.Trigger.IntervalSec = 1
	}
	return &domain.Agent{
		ID:          id,
		Name:        fmt.Sprintf("agent %s", id),
		State:       state,
		TriggerType: trigger,
		Blueprint:   bp,
	}
}

type testEnv struct {
	agents     *memAgentStore
	runs       *memRunStore
	outputs    *memOutputStore
	runner     *Runner
	dispatcher *Dispatcher
	svc        *AgentService
}

func newTestEnv(strategies ...domain.Strategy) *testEnv {
	agents := newMemAgentStore()
	runs := newMemRunStore()
	outputs := newMemOutputStore()
	tools, strats := testCatalogs(strategies...)
	logger := zap.NewNop()

	runner := NewRunner(agents, runs, outputs, tools, strats, logger)
	dispatcher := NewDispatcher(agents, runner, logger)
	dispatcher.SetTickUnit(20 * time.Millisecond)
	svc := NewAgentService(agents, runs, outputs, tools, strats, dispatcher, runner, logger)

	return &testEnv{
		agents:     agents,
		runs:       runs,
		outputs:    outputs,
		runner:     runner,
		dispatcher: dispatcher,
		svc:        svc,
	}
}
