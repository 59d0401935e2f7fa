package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkale-dev/swarmd/internal/domain"
	"github.com/mkale-dev/swarmd/internal/store"
)

// Dispatcher owns one recurring timer per RUNNING periodic agent and
// the inbound-event route for webhook agents. It holds no independent
// source of truth: everything it schedules is re-derivable from the
// persisted state of the agent store (see Reconcile).
type Dispatcher struct {
	agents domain.AgentStore
	runner *Runner
	logger *zap.Logger

	tickUnit time.Duration

	mu     sync.Mutex
	timers map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(agents domain.AgentStore, runner *Runner, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		agents:   agents,
		runner:   runner,
		logger:   logger,
		tickUnit: time.Second,
		timers:   make(map[string]context.CancelFunc),
	}
}

// SetTickUnit sets the wall-clock duration of one interval unit.
// Defaults to one second; lowered in tests and by the tick-resolution
// config knob.
func (d *Dispatcher) SetTickUnit(unit time.Duration) {
	if unit > 0 {
		d.tickUnit = unit
	}
}

// Register arms dispatch for an agent that entered RUNNING. For
// periodic agents this starts the ticker goroutine; webhook agents
// need no standing state, their route is resolved per call.
func (d *Dispatcher) Register(a *domain.Agent) {
	if a.TriggerType != domain.TriggerPeriodic {
		return
	}

	interval := time.Duration(a.Blueprint.Trigger.IntervalSec) * d.tickUnit

	d.mu.Lock()
	if cancel, exists := d.timers[a.ID]; exists {
		cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.timers[a.ID] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go d.tickLoop(ctx, a.ID, interval)

	d.logger.Info("periodic agent registered",
		zap.String("agent_id", a.ID),
		zap.Duration("interval", interval))
}

// Deregister cancels the agent's timer. An in-flight run is allowed
// to finish; only future ticks stop.
func (d *Dispatcher) Deregister(agentID string) {
	d.mu.Lock()
	cancel, exists := d.timers[agentID]
	if exists {
		delete(d.timers, agentID)
	}
	d.mu.Unlock()

	if exists {
		cancel()
		d.logger.Info("periodic agent deregistered", zap.String("agent_id", agentID))
	}
}

// Reconcile re-derives live registrations from durable storage: every
// persisted RUNNING agent is re-registered. Called once at startup,
// before the management API starts mutating state.
func (d *Dispatcher) Reconcile(ctx context.Context) error {
	all, err := d.agents.List(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, a := range all {
		if a.State == domain.StateRunning {
			d.Register(a)
			count++
		}
	}
	d.logger.Info("dispatcher reconciled",
		zap.Int("agents", len(all)),
		zap.Int("registered", count))
	return nil
}

// Trigger is the webhook route. It validates the call, then submits
// the run synchronously and returns only after it completes. A
// FAILURE record is a valid response: the caller can distinguish
// "the agent ran and failed" from "the agent does not exist".
func (d *Dispatcher) Trigger(ctx context.Context, agentID string, payload map[string]any) (*domain.ExecutionRecord, error) {
	a, err := d.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if a.TriggerType != domain.TriggerWebhook {
		return nil, domain.NewValidationError("agent %q has trigger type %s, not %s", agentID, a.TriggerType, domain.TriggerWebhook)
	}
	if payload != nil && len(a.InputSchema) > 0 {
		if err := a.InputSchema.Validate(payload); err != nil {
			return nil, domain.NewValidationError("payload: %v", err)
		}
	}
	if !Runnable(a) {
		return nil, domain.ErrNotRunnable
	}
	return d.runner.Run(ctx, agentID, payload)
}

// Stop cancels all timers and waits for the tick loops and any
// timer-driven runs still in flight to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	for id, cancel := range d.timers {
		cancel()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

// tickLoop fires on wall-clock cadence independent of run duration.
// The loop itself never blocks on a run: each tick is dispatched on
// its own goroutine, so the ticker channel keeps draining and a tick
// that lands mid-run fails TryLock and is genuinely dropped rather
// than buffered for the instant the run finishes. A tick for a
// non-runnable agent is skipped silently. No agent failure is fatal
// to the loop.
func (d *Dispatcher) tickLoop(ctx context.Context, agentID string, interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a, err := d.agents.GetByID(context.Background(), agentID)
			if err != nil {
				// Agent deleted out from under the timer; the delete
				// path also deregisters, this is just the race.
				d.Deregister(agentID)
				return
			}
			if !Runnable(a) {
				continue
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				rec, ok := d.runner.TryRun(context.Background(), agentID)
				if !ok {
					d.logger.Debug("tick suppressed, run in flight", zap.String("agent_id", agentID))
					return
				}
				if rec.Status == domain.RunFailure {
					// Periodic failures have no caller to surface to;
					// they are observable through the log interface.
					d.logger.Warn("periodic run failed",
						zap.String("agent_id", agentID),
						zap.String("error", rec.Error))
				}
			}()
		}
	}
}
