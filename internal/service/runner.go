package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkale-dev/swarmd/internal/catalog"
	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/store"
)

const (
	defaultRunTimeout = 60 * time.Second
	defaultRunGrace   = 5 * time.Second
	defaultRetention  = 100
)

// Runner invokes an agent's strategy under per-agent mutual
// exclusion and records the outcome. The per-agent lock is the sole
// primitive protecting log-append ordering and the current-output
// slot: at most one run per agent is ever in flight.
type Runner struct {
	agents     domain.AgentStore
	runs       domain.RunStore
	outputs    domain.OutputStore
	tools      *catalog.ToolCatalog
	strategies *catalog.StrategyCatalog
	logger     *zap.Logger

	timeout   time.Duration
	grace     time.Duration
	retention int

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	active map[string]context.CancelFunc
}

func NewRunner(agents domain.AgentStore, runs domain.RunStore, outputs domain.OutputStore, tools *catalog.ToolCatalog, strategies *catalog.StrategyCatalog, logger *zap.Logger) *Runner {
	return &Runner{
		agents:     agents,
		runs:       runs,
		outputs:    outputs,
		tools:      tools,
		strategies: strategies,
		logger:     logger,
		timeout:    defaultRunTimeout,
		grace:      defaultRunGrace,
		retention:  defaultRetention,
		locks:      make(map[string]*sync.Mutex),
		active:     make(map[string]context.CancelFunc),
	}
}

// SetTimeout bounds each strategy invocation. Zero disables the bound.
func (r *Runner) SetTimeout(d time.Duration) { r.timeout = d }

// SetGrace sets how long a timed-out strategy is given to observe
// cancellation before the runner abandons it.
func (r *Runner) SetGrace(d time.Duration) { r.grace = d }

// SetRetention sets the FIFO log retention per agent.
func (r *Runner) SetRetention(n int) { r.retention = n }

func (r *Runner) lockFor(agentID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[agentID] = l
	}
	return l
}

// TryRun is the periodic-tick path. The lock is attempted without
// blocking: a tick that finds a prior run still in flight is a
// suppressed overlap, dropped rather than deferred. Returns ok=false
// when the tick was suppressed.
func (r *Runner) TryRun(ctx context.Context, agentID string) (*domain.ExecutionRecord, bool) {
	l := r.lockFor(agentID)
	if !l.TryLock() {
		return nil, false
	}
	defer l.Unlock()

	agent, err := r.agents.GetByID(ctx, agentID)
	if err != nil {
		// Deleted between tick and lock acquisition.
		return nil, false
	}
	if !Runnable(agent) {
		// Paused or stopped after this tick started tracking: record
		// the skip so the gap is observable in the log.
		rec := &domain.ExecutionRecord{
			ID:         uuid.NewString(),
			AgentID:    agentID,
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
			Status:     domain.RunSkipped,
			LogLines:   []string{fmt.Sprintf("skipped: agent state is %s", agent.State)},
		}
		r.persist(agent, rec)
		return rec, true
	}

	rec := r.execute(agent, nil)
	r.persist(agent, rec)
	return rec, true
}

// Run is the webhook path. It blocks on the per-agent lock: webhook
// callers expect a response, so a concurrent call waits for the
// in-flight run instead of being rejected. The runnable check is
// repeated under the lock because state may have changed while
// waiting.
func (r *Runner) Run(ctx context.Context, agentID string, payload map[string]any) (*domain.ExecutionRecord, error) {
	l := r.lockFor(agentID)
	l.Lock()
	defer l.Unlock()

	agent, err := r.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !Runnable(agent) {
		return nil, domain.ErrNotRunnable
	}

	rec := r.execute(agent, payload)
	r.persist(agent, rec)
	return rec, nil
}

// Cancel signals cancellation to the agent's in-flight run, if any.
// Used by deletion; callers do not wait for the run to unwind.
func (r *Runner) Cancel(agentID string) {
	r.mu.Lock()
	cancel, ok := r.active[agentID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

type strategyResult struct {
	output map[string]any
	err    error
}

// execute invokes the strategy with the resolved tool set. Callers
// hold the agent's lock.
func (r *Runner) execute(agent *domain.Agent, payload map[string]any) *domain.ExecutionRecord {
	rec := &domain.ExecutionRecord{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		StartedAt: time.Now().UTC(),
	}
	buf := newLogBuffer()

	fail := func(err error) *domain.ExecutionRecord {
		execErr := &domain.ExecutionError{Err: err}
		buf.logf("error: %v", err)
		rec.FinishedAt = time.Now().UTC()
		rec.Status = domain.RunFailure
		rec.Error = execErr.Error()
		rec.LogLines = buf.close()
		return rec
	}

	strat, ok := r.strategies.Lookup(agent.Blueprint.Strategy.Name)
	if !ok {
		return fail(fmt.Errorf("strategy %q not in catalog", agent.Blueprint.Strategy.Name))
	}
	bound := make([]domain.BoundTool, 0, len(agent.Blueprint.Tools))
	for _, ref := range agent.Blueprint.Tools {
		entry, ok := r.tools.Lookup(ref.Name)
		if !ok {
			return fail(fmt.Errorf("tool %q not in catalog", ref.Name))
		}
		bound = append(bound, domain.BoundTool{Ref: ref, Impl: entry.Impl})
	}

	// Runs are decoupled from the caller's context: pausing a timer
	// or dropping a webhook connection must not kill an in-flight
	// run. Deletion cancels through the active registry.
	runCtx := context.Background()
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	r.mu.Lock()
	r.active[agent.ID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, agent.ID)
		r.mu.Unlock()
		cancel()
	}()

	call := &domain.StrategyCall{
		Agent:   agent,
		Config:  agent.Blueprint.Strategy.Config,
		Payload: payload,
		Tools:   bound,
		Logf:    buf.logf,
	}

	resultCh := make(chan strategyResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				resultCh <- strategyResult{err: fmt.Errorf("strategy panic: %v", p)}
			}
		}()
		out, err := strat.Impl.Execute(runCtx, call)
		resultCh <- strategyResult{output: out, err: err}
	}()

	var res strategyResult
	select {
	case res = <-resultCh:
	case <-runCtx.Done():
		// Cancellation was signalled through runCtx; give the
		// strategy the grace period to unwind, then abandon it. The
		// deadline is authoritative either way: a strategy that
		// returns inside the grace window is still a FAILURE and its
		// output is discarded. The closed log buffer drops any late
		// writes.
		select {
		case res = <-resultCh:
			if res.err == nil {
				buf.logf("strategy returned after cancellation, output discarded")
				res.err = runCtx.Err()
			}
			res.output = nil
		case <-time.After(r.grace):
			res = strategyResult{err: fmt.Errorf("abandoned after %s grace: %w", r.grace, runCtx.Err())}
			r.logger.Warn("strategy did not observe cancellation",
				zap.String("agent_id", agent.ID),
				zap.String("strategy", strat.Name))
		}
	}

	rec.FinishedAt = time.Now().UTC()
	if res.err != nil {
		execErr := &domain.ExecutionError{Err: res.err}
		buf.logf("error: %v", res.err)
		rec.Status = domain.RunFailure
		rec.Error = execErr.Error()
	} else {
		rec.Status = domain.RunSuccess
		rec.Output = res.output
	}
	rec.LogLines = buf.close()
	return rec
}

// persist appends the record, trims retention, and on SUCCESS
// overwrites the agent's current output. A failed run never touches
// the last-known-good output. Persistence errors are logged, never
// fatal: the engine must stay available for subsequent ticks.
func (r *Runner) persist(agent *domain.Agent, rec *domain.ExecutionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.runs.Append(ctx, rec); err != nil {
		r.logger.Error("append execution record failed",
			zap.String("agent_id", agent.ID), zap.Error(err))
	} else if err := r.runs.Trim(ctx, agent.ID, r.retention); err != nil {
		r.logger.Warn("trim execution log failed",
			zap.String("agent_id", agent.ID), zap.Error(err))
	}

	if rec.Status == domain.RunSuccess {
		if err := r.outputs.Set(ctx, agent.ID, rec.Output); err != nil {
			r.logger.Error("store current output failed",
				zap.String("agent_id", agent.ID), zap.Error(err))
		}
	}
}

// logBuffer collects log lines for one run. Closing it freezes the
// lines; writes from an abandoned strategy goroutine are dropped.
type logBuffer struct {
	mu     sync.Mutex
	closed bool
	lines  []string
}

func newLogBuffer() *logBuffer {
	return &logBuffer{}
}

func (b *logBuffer) logf(format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
}

func (b *logBuffer) close() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.lines
}
