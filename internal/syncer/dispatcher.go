package syncer

import (
	"encoding/json"
	"log"

	"missionboard/internal/observability"
	"missionboard/internal/protocol"
	"missionboard/internal/state"
)

// Stores bundles the in-memory mirrors the dispatcher writes into.
type Stores struct {
	Tasks        *state.TaskStore
	Agents       *state.AgentStore
	Tickets      *state.TicketStore
	Approvals    *state.ApprovalStore
	Interactions *state.InteractionStore
	Chat         *state.ChatLog
	AgentLogs    *state.AgentLogBuffer
}

// Dispatcher routes inbound frames to the matching store. Live frames and
// replayed frames run through the exact same per-type handlers, so delivery
// is idempotent either way.
type Dispatcher struct {
	cursor  *Cursor
	stores  Stores
	metrics *observability.Metrics
}

func NewDispatcher(cursor *Cursor, stores Stores, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{cursor: cursor, stores: stores, metrics: metrics}
}

// Dispatch handles one raw frame off the wire. Malformed frames are dropped
// with a log line; they never tear the connection down.
func (d *Dispatcher) Dispatch(raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		log.Printf("sync: dropping malformed frame: %v", err)
		d.metrics.ObserveDroppedFrame()
		return
	}
	d.dispatchEnvelope(env, false)
}

func (d *Dispatcher) dispatchEnvelope(env protocol.Envelope, replayed bool) {
	if env.Type == "" {
		d.metrics.ObserveDroppedFrame()
		return
	}
	d.cursor.Advance(env.Timestamp)
	d.metrics.ObserveFrame(string(env.Type))
	if replayed {
		d.metrics.ObserveReplayedEvent()
	}

	switch env.Type {
	case protocol.TypeTaskCreated, protocol.TypeTaskUpdated:
		var task state.Task
		if !d.decode(env, &task) {
			return
		}
		d.stores.Tasks.Upsert(task)
	case protocol.TypeAgentUpdate:
		var agent state.Agent
		if !d.decode(env, &agent) {
			return
		}
		d.stores.Agents.Upsert(agent)
	case protocol.TypeTicketCreated, protocol.TypeTicketUpdated:
		var ticket state.Ticket
		if !d.decode(env, &ticket) {
			return
		}
		d.stores.Tickets.Upsert(ticket)
	case protocol.TypeApprovalRequest:
		var approval state.Approval
		if !d.decode(env, &approval) {
			return
		}
		d.stores.Approvals.Upsert(approval)
	case protocol.TypeInteractionCreated, protocol.TypeInteractionResponded, protocol.TypeTaskInteraction:
		var interaction state.Interaction
		if !d.decode(env, &interaction) {
			return
		}
		d.stores.Interactions.Upsert(interaction)
	case protocol.TypeChatMessage:
		var msg state.ChatMessage
		if !d.decode(env, &msg) {
			return
		}
		d.stores.Chat.Append(msg)
	case protocol.TypeAgentLog:
		var entry state.AgentLogEntry
		if !d.decode(env, &entry) {
			return
		}
		d.stores.AgentLogs.Append(entry)
	case protocol.TypeTaskEventsResponse:
		var batch protocol.ReplayBatch
		if !d.decode(env, &batch) {
			return
		}
		// The batch drains completely here, inside the single dispatch
		// call, before the loop can pick up the next live frame.
		for _, inner := range batch.Events {
			d.dispatchEnvelope(inner, true)
		}
		log.Printf("sync: replayed %d event(s)", len(batch.Events))
	default:
		// Newer servers may emit types this build does not know about.
		log.Printf("sync: ignoring unknown event type %q", env.Type)
	}
}

func (d *Dispatcher) decode(env protocol.Envelope, dst any) bool {
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		log.Printf("sync: dropping %s frame with bad payload: %v", env.Type, err)
		d.metrics.ObserveDroppedFrame()
		return false
	}
	return true
}
