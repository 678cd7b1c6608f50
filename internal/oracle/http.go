package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"missionboard/internal/reliability"
	"missionboard/internal/state"
)

const (
	maxPlanAttempts  = 3
	planBackoffBase  = 300 * time.Millisecond
	planBackoffLimit = 2 * time.Second
)

// HTTPPlanner forwards planning requests to an Oracle-compatible HTTP
// endpoint. The prompt construction happens server-side; this client only
// carries the task and the roster snapshot.
type HTTPPlanner struct {
	url    string
	client *http.Client
}

type planRequest struct {
	Task   state.Task    `json:"task"`
	Agents []state.Agent `json:"agents"`
}

func NewHTTPPlanner(url string, timeout time.Duration) *HTTPPlanner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPPlanner{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPPlanner) Plan(ctx context.Context, task state.Task, roster []state.Agent) (state.OrchestrationPlan, error) {
	if len(roster) == 0 {
		return state.OrchestrationPlan{}, nil
	}

	payload, err := json.Marshal(planRequest{Task: task, Agents: roster})
	if err != nil {
		return state.OrchestrationPlan{}, fmt.Errorf("marshal plan request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxPlanAttempts; attempt++ {
		if attempt > 0 {
			if !reliability.Sleep(ctx, attempt-1, planBackoffBase, planBackoffLimit) {
				return state.OrchestrationPlan{}, ctx.Err()
			}
		}

		body, retryable, err := p.post(ctx, payload)
		if err == nil {
			// An unparseable body is a legitimate "no suitable agent"
			// outcome, not a transport failure: the call succeeded, the
			// Oracle just did not produce a usable proposal.
			return parsePlanBody(body), nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return state.OrchestrationPlan{}, lastErr
}

func (p *HTTPPlanner) post(ctx context.Context, payload []byte) ([]byte, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("create plan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(httpReq)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("send plan request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		retryable := reliability.IsRetryableHTTPStatus(res.StatusCode)
		return nil, retryable, fmt.Errorf("oracle http status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read plan response: %w", err)
	}
	return body, false, nil
}

func parsePlanBody(body []byte) state.OrchestrationPlan {
	var direct state.OrchestrationPlan
	if err := json.Unmarshal(body, &direct); err == nil && len(direct.Agents) > 0 {
		return direct
	}

	var wrapped struct {
		Plan state.OrchestrationPlan `json:"plan"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Plan.Agents) > 0 {
		return wrapped.Plan
	}

	// Keep needsUserInput from a direct parse even without agents.
	if direct.NeedsUserInput {
		return direct
	}
	return state.OrchestrationPlan{}
}
