package state

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// TaskStore is the explicit state container for the task mirror. Every
// mutation goes through a named operation; readers get clones.
type TaskStore struct {
	mu sync.RWMutex

	tasks map[string]*Task
	seq   map[string]int
	next  int

	snapshots SnapshotStore

	subscribers map[int]chan string
	nextSubID   int
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:       make(map[string]*Task),
		seq:         make(map[string]int),
		subscribers: make(map[int]chan string),
	}
}

func (s *TaskStore) SetSnapshots(store SnapshotStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = store
}

// Subscribe returns a channel of task ids whose state changed. Notifications
// are dropped (not blocked on) when the subscriber lags.
func (s *TaskStore) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 256)
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

// Upsert replaces the mirrored record with the server's version. Applying
// the same record twice converges to the same state.
func (s *TaskStore) Upsert(t Task) {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	cloned := t.Clone()
	s.tasks[t.ID] = &cloned
	if _, ok := s.seq[t.ID]; !ok {
		s.next++
		s.seq[t.ID] = s.next
	}
	s.publishLocked(t.ID)
	s.mu.Unlock()

	s.persist(t)
}

// Hydrate preloads the mirror from snapshot rows taken before a restart, so
// the dashboard has something to show before the first replay completes.
// Tasks that are still assignable are skipped: snapshot state is stale and
// must not feed the automatic assignment sweep. Hydration neither notifies
// subscribers nor writes back to the snapshot store, and it never overwrites
// a task the live stream has already delivered. Returns the number of tasks
// loaded.
func (s *TaskStore) Hydrate(tasks []Task) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := 0
	for _, t := range tasks {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" || t.Assignable() {
			continue
		}
		if _, exists := s.tasks[t.ID]; exists {
			continue
		}
		cloned := t.Clone()
		s.tasks[t.ID] = &cloned
		s.next++
		s.seq[t.ID] = s.next
		loaded++
	}
	return loaded
}

// AssignIfPending commits an automatic assignment. It re-checks the
// precondition under the lock: the task must still be pending and
// unassigned, otherwise the commit is a no-op and false is returned.
func (s *TaskStore) AssignIfPending(taskID, agentID string) bool {
	taskID = strings.TrimSpace(taskID)
	agentID = strings.TrimSpace(agentID)
	if taskID == "" || agentID == "" {
		return false
	}

	s.mu.Lock()
	task, ok := s.tasks[taskID]
	if !ok || !task.Assignable() {
		s.mu.Unlock()
		return false
	}
	task.AssignedAgentID = agentID
	task.Status = TaskStatusInProgress
	task.UpdatedAt = time.Now().UTC()
	snapshot := task.Clone()
	s.publishLocked(taskID)
	s.mu.Unlock()

	s.persist(snapshot)
	return true
}

func (s *TaskStore) Get(taskID string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return task.Clone(), true
}

// List returns all mirrored tasks in arrival order.
func (s *TaskStore) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out
}

// Pending returns tasks that are still valid assignment targets.
func (s *TaskStore) Pending() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, 8)
	for _, t := range s.tasks {
		if t.Assignable() {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out
}

func (s *TaskStore) publishLocked(taskID string) {
	for _, ch := range s.subscribers {
		select {
		case ch <- taskID:
		default:
		}
	}
}

func (s *TaskStore) persist(task Task) {
	s.mu.RLock()
	store := s.snapshots
	s.mu.RUnlock()
	if store == nil {
		return
	}

	go func(snapshot Task) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = store.SaveTask(ctx, snapshot)
	}(task.Clone())
}
