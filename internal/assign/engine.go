package assign

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"missionboard/internal/observability"
	"missionboard/internal/oracle"
	"missionboard/internal/protocol"
	"missionboard/internal/state"
)

var (
	ErrAlreadyProcessing = errors.New("task is already being evaluated")
	ErrNotAssignable     = errors.New("task is not a valid assignment target")
	ErrTaskNotFound      = errors.New("task not found")
)

// Sender is the outbound half of the sync connection.
type Sender interface {
	Send(env protocol.Envelope) error
}

// Engine drives the automatic assignment loop: it watches task changes,
// filters for eligible pending tasks, invokes the Planning Oracle off-loop,
// and commits the first planned agent back through the sync connection.
type Engine struct {
	tasks    *state.TaskStore
	agents   *state.AgentStore
	registry *Registry
	planner  oracle.Planner
	sender   Sender
	metrics  *observability.Metrics

	oracleTimeout time.Duration

	modeMu sync.RWMutex
	mode   Mode

	wg sync.WaitGroup
}

func NewEngine(tasks *state.TaskStore, agents *state.AgentStore, planner oracle.Planner, sender Sender, mode Mode, oracleTimeout time.Duration, metrics *observability.Metrics) *Engine {
	if oracleTimeout <= 0 {
		oracleTimeout = 60 * time.Second
	}
	return &Engine{
		tasks:         tasks,
		agents:        agents,
		registry:      NewRegistry(),
		planner:       planner,
		sender:        sender,
		metrics:       metrics,
		oracleTimeout: oracleTimeout,
		mode:          mode,
	}
}

func (e *Engine) Mode() Mode {
	e.modeMu.RLock()
	defer e.modeMu.RUnlock()
	return e.mode
}

func (e *Engine) SetMode(mode Mode) {
	e.modeMu.Lock()
	e.mode = mode
	e.modeMu.Unlock()
}

// Run consumes task-change notifications until ctx is cancelled. It sweeps
// existing pending tasks once on startup so tasks mirrored before the engine
// started are not stranded.
func (e *Engine) Run(ctx context.Context) {
	ch, cancel := e.tasks.Subscribe()
	defer cancel()

	for _, task := range e.tasks.Pending() {
		e.Evaluate(ctx, task.ID)
	}

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return
		case taskID, ok := <-ch:
			if !ok {
				e.wg.Wait()
				return
			}
			e.Evaluate(ctx, taskID)
		}
	}
}

// Evaluate runs one eligibility check for a task and, when it passes,
// reserves the id and launches the planning invocation. Overlapping calls
// for the same id are rejected by the registry, so at most one invocation
// is ever in flight per task.
func (e *Engine) Evaluate(ctx context.Context, taskID string) {
	task, ok := e.tasks.Get(taskID)
	if !ok {
		return
	}
	if !Eligible(task, e.Mode()) {
		return
	}
	e.startInvocation(ctx, task)
}

// RequestAssignment is the explicit trigger used by the interface layer. It
// bypasses the mode policy (an explicit request is its own eligibility) but
// keeps every structural precondition and the registry guarantee.
func (e *Engine) RequestAssignment(ctx context.Context, taskID string) error {
	task, ok := e.tasks.Get(taskID)
	if !ok {
		return ErrTaskNotFound
	}
	if !task.Assignable() {
		return ErrNotAssignable
	}
	if e.registry.Held(task.ID) {
		return ErrAlreadyProcessing
	}
	e.startInvocation(ctx, task)
	return nil
}

func (e *Engine) startInvocation(ctx context.Context, task state.Task) {
	if !e.registry.Reserve(task.ID) {
		return
	}
	e.wg.Add(1)
	go e.invoke(ctx, task)
}

func (e *Engine) invoke(ctx context.Context, task state.Task) {
	defer e.wg.Done()
	defer e.registry.Release(task.ID)

	invocationID := uuid.NewString()
	roster := e.agents.ActiveRoster()
	if len(roster) == 0 {
		log.Printf("assign: no active agents for task %s, leaving pending", task.ID)
		e.metrics.ObserveAssignment("empty_roster")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	start := time.Now()
	raw, err := e.planner.Plan(callCtx, task, roster)
	e.metrics.ObserveOracleLatency(time.Since(start))
	if err != nil {
		// A failed Oracle call collapses to "no plan": the task stays
		// pending and eligible for the next cycle.
		log.Printf("assign: oracle call failed for task %s (invocation %s): %v", task.ID, invocationID, err)
		e.metrics.ObserveAssignment("oracle_error")
		return
	}

	plan := oracle.ValidatePlan(raw, roster)
	if plan.Empty() {
		log.Printf("assign: no suitable agent for task %s, leaving pending", task.ID)
		e.metrics.ObserveAssignment("empty_plan")
		return
	}

	agentID := plan.Agents[0].AgentID
	commitStart := time.Now()
	defer func() { e.metrics.ObserveCommitLatency(time.Since(commitStart)) }()
	if !e.tasks.AssignIfPending(task.ID, agentID) {
		// Task state moved while the Oracle was thinking. Discard quietly.
		e.metrics.ObserveAssignment("stale")
		return
	}

	env, err := protocol.NewAssignTask(task, agentID, invocationID, plan)
	if err != nil {
		log.Printf("assign: build assign_task for %s: %v", task.ID, err)
		e.metrics.ObserveAssignment("encode_error")
		return
	}
	if err := e.sender.Send(env); err != nil {
		log.Printf("assign: send assign_task for %s: %v", task.ID, err)
	}
	e.metrics.ObserveAssignment("assigned")
	log.Printf("assign: task %s -> agent %s (%d candidate(s), invocation %s)",
		task.ID, agentID, len(plan.Agents), shortID(invocationID))
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
