package winewizard

import "sync"

// Registry is a concurrency-safe ordered set of prefix hashes. An id added
// more than once stays present until every holder has released it, so two
// programs running in the same prefix do not unmark each other.
type Registry struct {
	mu     sync.Mutex
	order  []string
	counts map[string]int
}

func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// Add marks id present.
func (r *Registry) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[id] == 0 {
		r.order = append(r.order, id)
	}
	r.counts[id]++
}

// Remove releases one hold on id. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counts[id]
	switch {
	case n == 0:
		return
	case n > 1:
		r.counts[id] = n - 1
		return
	}
	delete(r.counts, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Hold adds id and returns a release func that is safe to call repeatedly.
func (r *Registry) Hold(id string) func() {
	r.Add(id)
	var once sync.Once
	return func() { once.Do(func() { r.Remove(id) }) }
}

func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id] > 0
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Snapshot returns the ids in insertion order.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}
