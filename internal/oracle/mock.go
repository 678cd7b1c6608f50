package oracle

import (
	"context"
	"fmt"

	"missionboard/internal/state"
)

// MockPlanner provides deterministic plans when no Oracle is configured:
// the active roster in order, first agent first.
type MockPlanner struct{}

func NewMockPlanner() *MockPlanner { return &MockPlanner{} }

func (p *MockPlanner) Plan(ctx context.Context, task state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
	select {
	case <-ctx.Done():
		return state.OrchestrationPlan{}, ctx.Err()
	default:
	}

	if len(roster) == 0 {
		return state.OrchestrationPlan{}, nil
	}

	agents := make([]state.PlannedAgent, 0, len(roster))
	for i, a := range roster {
		agents = append(agents, state.PlannedAgent{
			AgentID:   a.ID,
			AgentName: a.Name,
			Reason:    fmt.Sprintf("roster candidate %d for %q", i+1, task.Title),
			Order:     i + 1,
		})
	}
	return state.OrchestrationPlan{Agents: agents}, nil
}
