package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"missionboard/internal/state"
)

// EventType identifies sync stream payload variants.
type EventType string

const (
	// Inbound domain events.
	TypeTaskCreated          EventType = "task_created"
	TypeTaskUpdated          EventType = "task_updated"
	TypeAgentUpdate          EventType = "agent_update"
	TypeTicketCreated        EventType = "ticket_created"
	TypeTicketUpdated        EventType = "ticket_updated"
	TypeApprovalRequest      EventType = "approval_request"
	TypeInteractionCreated   EventType = "interaction_created"
	TypeInteractionResponded EventType = "interaction_responded"
	TypeTaskInteraction      EventType = "task_interaction"
	TypeAgentLog             EventType = "agent_log"
	TypeChatMessage          EventType = "chat_message"

	// Replay batch wrapper. Its embedded events are dispatched through the
	// same per-type handlers as live delivery.
	TypeTaskEventsResponse EventType = "task_events_response"

	// Outbound control messages.
	TypeReplayEvents EventType = "replay_events"
	TypeAssignTask   EventType = "assign_task"
)

var (
	ErrMissingType      = errors.New("envelope type is missing")
	ErrMissingTimestamp = errors.New("envelope timestamp is missing")
)

// Envelope wraps every event on the wire, both directions.
type Envelope struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParseEnvelope decodes and shape-checks one inbound frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	if env.Timestamp.IsZero() {
		return Envelope{}, ErrMissingTimestamp
	}
	return env, nil
}

// NewEnvelope builds an outbound envelope around a marshalable payload.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ReplayBatch is the payload of a task_events_response frame: the events
// missed while disconnected, in the order the server wants them applied.
type ReplayBatch struct {
	Events []Envelope `json:"events"`
}

// ReplayRequest asks the server for every event after the cursor.
type ReplayRequest struct {
	Since time.Time `json:"since"`
}

func NewReplayRequest(since time.Time) (Envelope, error) {
	return NewEnvelope(TypeReplayEvents, ReplayRequest{Since: since})
}

// AssignTaskPayload announces a committed automatic assignment, carrying the
// full ordered plan so downstream consumers can pre-stage later agents. The
// invocation id correlates the message with the planning call that produced
// it, in logs on both ends.
type AssignTaskPayload struct {
	TaskID            string                  `json:"taskId"`
	AgentID           string                  `json:"agentId"`
	InvocationID      string                  `json:"invocationId,omitempty"`
	OrchestrationPlan state.OrchestrationPlan `json:"orchestrationPlan"`
	Task              AssignTaskRef           `json:"task"`
}

// AssignTaskRef is the subset of task fields the server needs to identify
// and route the assignment.
type AssignTaskRef struct {
	ID          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Priority    state.Priority `json:"priority,omitempty"`
	Source      string         `json:"source,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

func NewAssignTask(task state.Task, agentID, invocationID string, plan state.OrchestrationPlan) (Envelope, error) {
	return NewEnvelope(TypeAssignTask, AssignTaskPayload{
		TaskID:            task.ID,
		AgentID:           agentID,
		InvocationID:      invocationID,
		OrchestrationPlan: plan,
		Task: AssignTaskRef{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Priority:    task.Priority,
			Source:      task.Source,
			Tags:        task.Tags,
		},
	})
}
