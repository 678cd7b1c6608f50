package assign

import (
	"strings"

	"missionboard/internal/state"
)

// Mode is the global assignment policy.
type Mode string

const (
	// ModeGlobal assigns every pending task unless it opted out.
	ModeGlobal Mode = "global"
	// ModeManual assigns only tasks that opted in, plus a default heuristic
	// for tasks that never said either way.
	ModeManual Mode = "manual"
)

func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeManual)) {
		return ModeManual
	}
	return ModeGlobal
}

// Eligible decides whether automatic assignment applies to a task under the
// given mode. Tasks that are not pending or already have an agent are never
// eligible regardless of mode.
func Eligible(task state.Task, mode Mode) bool {
	if !task.Assignable() {
		return false
	}

	switch mode {
	case ModeManual:
		if task.AutoAssign != nil {
			return *task.AutoAssign
		}
		return task.Priority == state.PriorityHigh ||
			task.Priority == state.PriorityUrgent ||
			task.Source == "slack"
	default:
		return task.AutoAssign == nil || *task.AutoAssign
	}
}
