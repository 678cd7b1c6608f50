package state

import (
	"sort"
	"strings"
	"sync"
)

// AgentStore mirrors the agent roster. Read-only input to planning; the
// roster handed out is a point-in-time snapshot, not a subscription.
type AgentStore struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewAgentStore() *AgentStore {
	return &AgentStore{agents: make(map[string]Agent)}
}

func (s *AgentStore) Upsert(a Agent) {
	a.ID = strings.TrimSpace(a.ID)
	if a.ID == "" {
		return
	}
	s.mu.Lock()
	s.agents[a.ID] = a
	s.mu.Unlock()
}

func (s *AgentStore) Get(agentID string) (Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	return a, ok
}

// ActiveRoster snapshots the currently active agents, ordered by id for
// deterministic planning input.
func (s *AgentStore) ActiveRoster() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		if a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *AgentStore) All() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
