package assign

import (
	"testing"

	"missionboard/internal/state"
)

func boolPtr(v bool) *bool { return &v }

func TestEligibleTable(t *testing.T) {
	cases := []struct {
		name       string
		mode       Mode
		autoAssign *bool
		priority   state.Priority
		source     string
		want       bool
	}{
		{"global unset", ModeGlobal, nil, state.PriorityLow, "manual", true},
		{"global true", ModeGlobal, boolPtr(true), state.PriorityLow, "manual", true},
		{"global explicit false", ModeGlobal, boolPtr(false), state.PriorityUrgent, "slack", false},
		{"manual true", ModeManual, boolPtr(true), state.PriorityLow, "manual", true},
		{"manual explicit false", ModeManual, boolPtr(false), state.PriorityUrgent, "slack", false},
		{"manual unset low manual", ModeManual, nil, state.PriorityLow, "manual", false},
		{"manual unset normal email", ModeManual, nil, state.PriorityNormal, "email", false},
		{"manual unset high", ModeManual, nil, state.PriorityHigh, "manual", true},
		{"manual unset urgent", ModeManual, nil, state.PriorityUrgent, "manual", true},
		{"manual unset slack", ModeManual, nil, state.PriorityLow, "slack", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := state.Task{
				ID:         "t1",
				Status:     state.TaskStatusPending,
				AutoAssign: tc.autoAssign,
				Priority:   tc.priority,
				Source:     tc.source,
			}
			if got := Eligible(task, tc.mode); got != tc.want {
				t.Fatalf("Eligible(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestEligibleRequiresPendingAndUnassigned(t *testing.T) {
	base := state.Task{ID: "t1", Status: state.TaskStatusPending, AutoAssign: boolPtr(true)}

	for _, mode := range []Mode{ModeGlobal, ModeManual} {
		inProgress := base
		inProgress.Status = state.TaskStatusInProgress
		if Eligible(inProgress, mode) {
			t.Fatalf("Eligible(in_progress, %s) = true, want false", mode)
		}

		assigned := base
		assigned.AssignedAgentID = "a1"
		if Eligible(assigned, mode) {
			t.Fatalf("Eligible(assigned, %s) = true, want false", mode)
		}
	}
}

func TestParseMode(t *testing.T) {
	if got := ParseMode("manual"); got != ModeManual {
		t.Fatalf("ParseMode(manual) = %q, want %q", got, ModeManual)
	}
	if got := ParseMode("MANUAL "); got != ModeManual {
		t.Fatalf("ParseMode(MANUAL ) = %q, want %q", got, ModeManual)
	}
	if got := ParseMode("anything-else"); got != ModeGlobal {
		t.Fatalf("ParseMode(anything-else) = %q, want %q", got, ModeGlobal)
	}
}
