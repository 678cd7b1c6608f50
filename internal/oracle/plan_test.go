package oracle

import (
	"testing"

	"missionboard/internal/state"
)

func TestValidatePlanDiscardsUnknownAgents(t *testing.T) {
	roster := []state.Agent{
		{ID: "a1", Name: "coder", IsActive: true},
		{ID: "a2", Name: "reviewer", IsActive: true},
	}
	plan := state.OrchestrationPlan{Agents: []state.PlannedAgent{
		{AgentID: "GHOST", Order: 1},
		{AgentID: "a2", Order: 2},
		{AgentID: "a1", Order: 3},
	}}

	got := ValidatePlan(plan, roster)
	if len(got.Agents) != 2 {
		t.Fatalf("validated agents len = %d, want 2", len(got.Agents))
	}
	if got.Agents[0].AgentID != "a2" || got.Agents[1].AgentID != "a1" {
		t.Fatalf("validated order = [%s %s], want [a2 a1]", got.Agents[0].AgentID, got.Agents[1].AgentID)
	}
}

func TestValidatePlanAllUnknownYieldsEmpty(t *testing.T) {
	roster := []state.Agent{{ID: "a1", Name: "coder", IsActive: true}}
	plan := state.OrchestrationPlan{Agents: []state.PlannedAgent{
		{AgentID: "GHOST", Order: 1},
	}}

	got := ValidatePlan(plan, roster)
	if !got.Empty() {
		t.Fatalf("validated plan = %+v, want empty", got)
	}
}

func TestValidatePlanSortsByOrderStable(t *testing.T) {
	roster := []state.Agent{
		{ID: "a1"}, {ID: "a2"}, {ID: "a3"},
	}
	plan := state.OrchestrationPlan{Agents: []state.PlannedAgent{
		{AgentID: "a3", Order: 2},
		{AgentID: "a1", Order: 1},
		{AgentID: "a2", Order: 2},
	}}

	got := ValidatePlan(plan, roster)
	if len(got.Agents) != 3 {
		t.Fatalf("validated agents len = %d, want 3", len(got.Agents))
	}
	// a1 first (order 1); a3 before a2 on the order=2 tie because a3 came
	// first in the response.
	if got.Agents[0].AgentID != "a1" || got.Agents[1].AgentID != "a3" || got.Agents[2].AgentID != "a2" {
		t.Fatalf("validated order = [%s %s %s], want [a1 a3 a2]",
			got.Agents[0].AgentID, got.Agents[1].AgentID, got.Agents[2].AgentID)
	}
}

func TestValidatePlanEmptyRosterShortCircuits(t *testing.T) {
	plan := state.OrchestrationPlan{Agents: []state.PlannedAgent{{AgentID: "a1", Order: 1}}}
	if got := ValidatePlan(plan, nil); !got.Empty() {
		t.Fatalf("validated plan with empty roster = %+v, want empty", got)
	}
}

func TestValidatePlanFillsAgentNameFromRoster(t *testing.T) {
	roster := []state.Agent{{ID: "a1", Name: "coder"}}
	plan := state.OrchestrationPlan{Agents: []state.PlannedAgent{{AgentID: "a1", Order: 1}}}

	got := ValidatePlan(plan, roster)
	if got.Agents[0].AgentName != "coder" {
		t.Fatalf("AgentName = %q, want %q", got.Agents[0].AgentName, "coder")
	}
}
