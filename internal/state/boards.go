package state

import (
	"sort"
	"strings"
	"sync"
)

// TicketStore mirrors ticket records delivered by the sync stream.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]Ticket)}
}

func (s *TicketStore) Upsert(t Ticket) {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return
	}
	s.mu.Lock()
	s.tickets[t.ID] = t
	s.mu.Unlock()
}

func (s *TicketStore) List() []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApprovalStore mirrors the approval queue.
type ApprovalStore struct {
	mu        sync.RWMutex
	approvals map[string]Approval
}

func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{approvals: make(map[string]Approval)}
}

func (s *ApprovalStore) Upsert(a Approval) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return
	}
	s.mu.Lock()
	s.approvals[a.ID] = a
	s.mu.Unlock()
}

func (s *ApprovalStore) List() []Approval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Approval, 0, len(s.approvals))
	for _, a := range s.approvals {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InteractionStore mirrors agent question/answer exchanges. A responded
// interaction arrives as a full record, so upsert covers both directions.
type InteractionStore struct {
	mu           sync.RWMutex
	interactions map[string]Interaction
}

func NewInteractionStore() *InteractionStore {
	return &InteractionStore{interactions: make(map[string]Interaction)}
}

func (s *InteractionStore) Upsert(i Interaction) {
	i.ID = strings.TrimSpace(i.ID)
	if i.ID == "" {
		return
	}
	s.mu.Lock()
	s.interactions[i.ID] = i
	s.mu.Unlock()
}

func (s *InteractionStore) Get(id string) (Interaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.interactions[id]
	return i, ok
}

func (s *InteractionStore) List() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Interaction, 0, len(s.interactions))
	for _, i := range s.interactions {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InteractionStore) Open() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Interaction, 0, 4)
	for _, i := range s.interactions {
		if i.Status != "responded" {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
