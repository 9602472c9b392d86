package pipeline

import (
	"sync"

	"github.com/verdantlabs/canopy/core"
)

// inflightSet tracks which objects are currently being processed by this
// process. It is an optimization to avoid redundant work within one process,
// not a correctness mechanism; cross-process exclusivity comes from the
// claim transition in the durable store.
type inflightSet struct {
	mu  sync.Mutex
	ids map[core.ID]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{ids: make(map[core.ID]struct{})}
}

// Add inserts an id, reporting whether it was absent.
func (s *inflightSet) Add(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes an id.
func (s *inflightSet) Remove(id core.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Contains reports whether an id is present.
func (s *inflightSet) Contains(id core.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of in-flight objects.
func (s *inflightSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// orphanTracker counts consecutive failed job lookups per object so the
// pipeline can escalate persistent orphans to an error status.
type orphanTracker struct {
	mu     sync.Mutex
	misses map[core.ID]int
}

func newOrphanTracker() *orphanTracker {
	return &orphanTracker{misses: make(map[core.ID]int)}
}

// Miss increments the object's miss counter and returns the new total.
func (t *orphanTracker) Miss(id core.ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.misses[id]++
	return t.misses[id]
}

// Clear drops tracking for an object.
func (t *orphanTracker) Clear(id core.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.misses, id)
}
