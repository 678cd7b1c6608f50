package oracle

import (
	"sort"

	"missionboard/internal/state"
)

// ValidatePlan filters a raw Oracle proposal against the roster that was
// supplied to the invocation. Entries referencing unknown agent ids are
// discarded; survivors are sorted by their order field ascending with the
// original response order breaking ties. A proposal that validates down to
// zero agents is a normal "no suitable agent" outcome, not an error.
func ValidatePlan(plan state.OrchestrationPlan, roster []state.Agent) state.OrchestrationPlan {
	if len(roster) == 0 {
		return state.OrchestrationPlan{}
	}

	known := make(map[string]state.Agent, len(roster))
	for _, a := range roster {
		known[a.ID] = a
	}

	kept := make([]state.PlannedAgent, 0, len(plan.Agents))
	for _, entry := range plan.Agents {
		agent, ok := known[entry.AgentID]
		if !ok {
			continue
		}
		if entry.AgentName == "" {
			entry.AgentName = agent.Name
		}
		kept = append(kept, entry)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Order < kept[j].Order
	})

	plan.Agents = kept
	return plan
}
