package state

import "sync"

const defaultLogHistoryLimit = 512

// ChatLog is a bounded append-only transcript of chat messages. Messages
// carrying an ID are deduplicated, so replayed deliveries do not repeat.
type ChatLog struct {
	mu       sync.RWMutex
	messages []ChatMessage
	seen     map[string]struct{}
	limit    int
}

func NewChatLog() *ChatLog {
	return &ChatLog{seen: make(map[string]struct{}), limit: defaultLogHistoryLimit}
}

func (l *ChatLog) Append(msg ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.ID != "" {
		if _, ok := l.seen[msg.ID]; ok {
			return
		}
		l.seen[msg.ID] = struct{}{}
	}
	l.messages = append(l.messages, msg)
	if len(l.messages) > l.limit {
		trimFrom := len(l.messages) - l.limit
		for _, old := range l.messages[:trimFrom] {
			if old.ID != "" {
				delete(l.seen, old.ID)
			}
		}
		l.messages = append([]ChatMessage(nil), l.messages[trimFrom:]...)
	}
}

func (l *ChatLog) Messages() []ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// AgentLogBuffer keeps the most recent execution log lines per delivery order.
type AgentLogBuffer struct {
	mu      sync.RWMutex
	entries []AgentLogEntry
	limit   int
}

func NewAgentLogBuffer() *AgentLogBuffer {
	return &AgentLogBuffer{limit: defaultLogHistoryLimit}
}

func (b *AgentLogBuffer) Append(entry AgentLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.entries); n > 0 && b.entries[n-1] == entry {
		// Replay overlap redelivers the tail of the stream.
		return
	}
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.limit {
		trimFrom := len(b.entries) - b.limit
		b.entries = append([]AgentLogEntry(nil), b.entries[trimFrom:]...)
	}
}

func (b *AgentLogBuffer) Recent(limit int) []AgentLogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(b.entries) {
		start = len(b.entries) - limit
	}
	out := make([]AgentLogEntry, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}
