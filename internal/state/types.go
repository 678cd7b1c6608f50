package state

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusFailed     TaskStatus = "failed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Task mirrors the server-side task record. The sync core only writes
// AssignedAgentID and Status, and only through TaskStore.AssignIfPending.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title,omitempty"`
	Description     string     `json:"description,omitempty"`
	Status          TaskStatus `json:"status"`
	AssignedAgentID string     `json:"assignedAgentId,omitempty"`
	AutoAssign      *bool      `json:"autoAssign,omitempty"`
	Priority        Priority   `json:"priority,omitempty"`
	Source          string     `json:"source,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt,omitempty"`
}

func (t Task) Clone() Task {
	out := t
	if t.AutoAssign != nil {
		v := *t.AutoAssign
		out.AutoAssign = &v
	}
	if t.Tags != nil {
		out.Tags = make([]string, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	return out
}

// Assignable reports whether the task is a valid automatic-assignment target.
func (t Task) Assignable() bool {
	return t.Status == TaskStatusPending && t.AssignedAgentID == ""
}

type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	IsActive bool   `json:"isActive"`
}

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	Status    TicketStatus `json:"status"`
	Priority  Priority     `json:"priority,omitempty"`
	Requester string       `json:"requester,omitempty"`
	TaskID    string       `json:"taskId,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

type Approval struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId,omitempty"`
	AgentID     string    `json:"agentId,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Status      string    `json:"status,omitempty"`
	RequestedAt time.Time `json:"requestedAt,omitempty"`
}

// Interaction is a question an agent raised that needs a human answer.
type Interaction struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId,omitempty"`
	AgentID     string    `json:"agentId,omitempty"`
	Question    string    `json:"question,omitempty"`
	Answer      string    `json:"answer,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	RespondedAt time.Time `json:"respondedAt,omitempty"`
}

type ChatMessage struct {
	ID      string    `json:"id,omitempty"`
	TaskID  string    `json:"taskId,omitempty"`
	AgentID string    `json:"agentId,omitempty"`
	Role    string    `json:"role,omitempty"`
	Text    string    `json:"text"`
	At      time.Time `json:"at,omitempty"`
}

type AgentLogEntry struct {
	AgentID string    `json:"agentId,omitempty"`
	TaskID  string    `json:"taskId,omitempty"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at,omitempty"`
}

// PlannedAgent is one candidate in an ordered multi-agent execution plan.
type PlannedAgent struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Order     int    `json:"order"`
}

// OrchestrationPlan is the Planning Oracle's proposal for a single task.
// It is transient: produced per invocation, never persisted.
type OrchestrationPlan struct {
	Agents         []PlannedAgent `json:"agents"`
	NeedsUserInput bool           `json:"needsUserInput,omitempty"`
	InputPrompt    string         `json:"inputPrompt,omitempty"`
}

func (p OrchestrationPlan) Empty() bool {
	return len(p.Agents) == 0
}
