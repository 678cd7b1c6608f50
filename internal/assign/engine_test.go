package assign

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"missionboard/internal/protocol"
	"missionboard/internal/state"
)

type fakePlanner struct {
	mu    sync.Mutex
	calls int
	fn    func(task state.Task, roster []state.Agent) (state.OrchestrationPlan, error)
}

func (p *fakePlanner) Plan(_ context.Context, task state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.fn(task, roster)
}

func (p *fakePlanner) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type captureSender struct {
	mu   sync.Mutex
	sent []protocol.Envelope
	err  error
}

func (s *captureSender) Send(env protocol.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *captureSender) messages() []protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Envelope, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestEngine(planner *fakePlanner, sender *captureSender, mode Mode) (*Engine, *state.TaskStore, *state.AgentStore) {
	tasks := state.NewTaskStore()
	agents := state.NewAgentStore()
	e := NewEngine(tasks, agents, planner, sender, mode, 5*time.Second, nil)
	return e, tasks, agents
}

func TestEngineAssignsFirstPlannedAgent(t *testing.T) {
	planner := &fakePlanner{fn: func(_ state.Task, _ []state.Agent) (state.OrchestrationPlan, error) {
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: "A1", Order: 1},
			{AgentID: "A2", Order: 2},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeManual)

	agents.Upsert(state.Agent{ID: "A1", Name: "coder", IsActive: true})
	agents.Upsert(state.Agent{ID: "A2", Name: "reviewer", IsActive: true})
	tasks.Upsert(state.Task{
		ID:       "t1",
		Status:   state.TaskStatusPending,
		Priority: state.PriorityUrgent,
		Source:   "manual",
	})

	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()

	got, _ := tasks.Get("t1")
	if got.Status != state.TaskStatusInProgress {
		t.Fatalf("task status = %q, want %q", got.Status, state.TaskStatusInProgress)
	}
	if got.AssignedAgentID != "A1" {
		t.Fatalf("AssignedAgentID = %q, want %q", got.AssignedAgentID, "A1")
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("outbound messages = %d, want 1", len(msgs))
	}
	if msgs[0].Type != protocol.TypeAssignTask {
		t.Fatalf("outbound type = %q, want %q", msgs[0].Type, protocol.TypeAssignTask)
	}
	var payload protocol.AssignTaskPayload
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error = %v", err)
	}
	if payload.AgentID != "A1" || len(payload.OrchestrationPlan.Agents) != 2 {
		t.Fatalf("payload = %+v, want A1 with full 2-agent plan", payload)
	}
	if payload.OrchestrationPlan.Agents[1].AgentID != "A2" {
		t.Fatalf("second planned agent = %q, want A2", payload.OrchestrationPlan.Agents[1].AgentID)
	}
	if payload.InvocationID == "" {
		t.Fatalf("InvocationID empty, want the planning call id carried outbound")
	}
}

func TestEngineGhostPlanLeavesTaskPending(t *testing.T) {
	planner := &fakePlanner{fn: func(_ state.Task, _ []state.Agent) (state.OrchestrationPlan, error) {
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: "GHOST", Order: 1},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeGlobal)

	agents.Upsert(state.Agent{ID: "A1", IsActive: true})
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending})

	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()

	got, _ := tasks.Get("t1")
	if got.Status != state.TaskStatusPending || got.AssignedAgentID != "" {
		t.Fatalf("task = %+v, want still pending and unassigned", got)
	}
	if len(sender.messages()) != 0 {
		t.Fatalf("outbound messages = %d, want 0", len(sender.messages()))
	}
	// Registry entry released, so the task stays eligible for re-evaluation.
	if e.registry.Held("t1") {
		t.Fatalf("registry still holds t1 after empty plan")
	}
}

func TestEngineNoDoubleInvocation(t *testing.T) {
	release := make(chan struct{})
	planner := &fakePlanner{fn: func(_ state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
		<-release
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: roster[0].ID, Order: 1},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeGlobal)

	agents.Upsert(state.Agent{ID: "A1", IsActive: true})
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending})

	e.Evaluate(context.Background(), "t1")
	e.Evaluate(context.Background(), "t1")
	e.Evaluate(context.Background(), "t1")
	close(release)
	e.wg.Wait()

	if got := planner.callCount(); got != 1 {
		t.Fatalf("planner calls = %d, want 1 for overlapping evaluations", got)
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("outbound messages = %d, want 1", len(sender.messages()))
	}
}

func TestEngineStalePlanCommitIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	planner := &fakePlanner{fn: func(_ state.Task, _ []state.Agent) (state.OrchestrationPlan, error) {
		<-release
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: "A1", Order: 1},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeGlobal)

	agents.Upsert(state.Agent{ID: "A1", IsActive: true})
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending})

	e.Evaluate(context.Background(), "t1")

	// The task is cancelled while the Oracle call is in flight.
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusCancelled})
	close(release)
	e.wg.Wait()

	got, _ := tasks.Get("t1")
	if got.Status != state.TaskStatusCancelled || got.AssignedAgentID != "" {
		t.Fatalf("task = %+v, want cancelled and unassigned", got)
	}
	if len(sender.messages()) != 0 {
		t.Fatalf("outbound messages = %d, want 0 for stale commit", len(sender.messages()))
	}
}

func TestEngineOracleErrorKeepsTaskEligible(t *testing.T) {
	fail := true
	planner := &fakePlanner{fn: func(_ state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
		if fail {
			return state.OrchestrationPlan{}, errors.New("oracle unreachable")
		}
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: roster[0].ID, Order: 1},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeGlobal)

	agents.Upsert(state.Agent{ID: "A1", IsActive: true})
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending})

	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()

	got, _ := tasks.Get("t1")
	if got.Status != state.TaskStatusPending {
		t.Fatalf("task status after oracle error = %q, want pending", got.Status)
	}

	// Next cycle succeeds: the registry entry was released.
	fail = false
	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()

	got, _ = tasks.Get("t1")
	if got.AssignedAgentID != "A1" {
		t.Fatalf("AssignedAgentID after retry = %q, want A1", got.AssignedAgentID)
	}
}

func TestEngineEmptyRosterShortCircuits(t *testing.T) {
	planner := &fakePlanner{fn: func(_ state.Task, _ []state.Agent) (state.OrchestrationPlan, error) {
		t.Errorf("planner called despite empty roster")
		return state.OrchestrationPlan{}, nil
	}}
	sender := &captureSender{}
	e, tasks, _ := newTestEngine(planner, sender, ModeGlobal)

	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending})

	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()

	if got, _ := tasks.Get("t1"); got.Status != state.TaskStatusPending {
		t.Fatalf("task status = %q, want pending", got.Status)
	}
}

func TestEngineRequestAssignmentBypassesModePolicy(t *testing.T) {
	planner := &fakePlanner{fn: func(_ state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
		return state.OrchestrationPlan{Agents: []state.PlannedAgent{
			{AgentID: roster[0].ID, Order: 1},
		}}, nil
	}}
	sender := &captureSender{}
	e, tasks, agents := newTestEngine(planner, sender, ModeManual)

	agents.Upsert(state.Agent{ID: "A1", IsActive: true})
	// Low priority, unset autoAssign: not eligible under manual mode.
	tasks.Upsert(state.Task{ID: "t1", Status: state.TaskStatusPending, Priority: state.PriorityLow})

	e.Evaluate(context.Background(), "t1")
	e.wg.Wait()
	if got, _ := tasks.Get("t1"); got.AssignedAgentID != "" {
		t.Fatalf("manual-mode task auto-assigned without explicit request")
	}

	if err := e.RequestAssignment(context.Background(), "t1"); err != nil {
		t.Fatalf("RequestAssignment() error = %v", err)
	}
	e.wg.Wait()
	if got, _ := tasks.Get("t1"); got.AssignedAgentID != "A1" {
		t.Fatalf("AssignedAgentID = %q, want A1 after explicit request", got.AssignedAgentID)
	}
}

func TestEngineRequestAssignmentErrors(t *testing.T) {
	planner := &fakePlanner{fn: func(_ state.Task, _ []state.Agent) (state.OrchestrationPlan, error) {
		return state.OrchestrationPlan{}, nil
	}}
	sender := &captureSender{}
	e, tasks, _ := newTestEngine(planner, sender, ModeGlobal)

	if err := e.RequestAssignment(context.Background(), "missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("RequestAssignment(missing) error = %v, want ErrTaskNotFound", err)
	}

	tasks.Upsert(state.Task{ID: "done", Status: state.TaskStatusCompleted})
	if err := e.RequestAssignment(context.Background(), "done"); !errors.Is(err, ErrNotAssignable) {
		t.Fatalf("RequestAssignment(done) error = %v, want ErrNotAssignable", err)
	}
}
