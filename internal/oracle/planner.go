package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"missionboard/internal/state"
)

// Planner proposes an ordered multi-agent execution plan for a task. The
// reasoning behind the plan is opaque to the sync core.
type Planner interface {
	Plan(ctx context.Context, task state.Task, roster []state.Agent) (state.OrchestrationPlan, error)
}

// Config controls planner construction.
type Config struct {
	Mode    string
	HTTPURL string
	Timeout time.Duration
}

func NewPlanner(cfg Config) (Planner, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPPlanner(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMockPlanner(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("oracle HTTP url is required for http mode")
		}
		return NewHTTPPlanner(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockPlanner(), nil
	default:
		return nil, fmt.Errorf("unsupported oracle mode %q", cfg.Mode)
	}
}
