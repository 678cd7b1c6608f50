package assign

import "sync"

// Registry is the in-process mutual-exclusion set of task ids under active
// assignment evaluation. It is not a distributed lock: a single engine
// instance is assumed. Membership is reserve-to-release only.
type Registry struct {
	mu         sync.Mutex
	processing map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{processing: make(map[string]struct{})}
}

// Reserve claims a task id for one evaluation cycle. It fails fast when the
// id is already claimed.
func (r *Registry) Reserve(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.processing[taskID]; held {
		return false
	}
	r.processing[taskID] = struct{}{}
	return true
}

// Release frees a task id. Safe to call for ids that are not held.
func (r *Registry) Release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.processing, taskID)
}

func (r *Registry) Held(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.processing[taskID]
	return held
}

func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processing)
}
