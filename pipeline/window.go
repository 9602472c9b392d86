package pipeline

import (
	"sync"
	"time"
)

// requestWindow tracks collaborator request timestamps over a rolling
// interval for rate-limit accounting. Safe for concurrent use.
type requestWindow struct {
	mu       sync.Mutex
	interval time.Duration
	stamps   []time.Time
}

func newRequestWindow(interval time.Duration) *requestWindow {
	return &requestWindow{interval: interval}
}

// Record adds a request timestamp to the window.
func (w *requestWindow) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = append(w.stamps, time.Now())
}

// Prune evicts timestamps older than the interval.
func (w *requestWindow) Prune() {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := time.Now().Add(-w.interval)
	kept := w.stamps[:0]
	for _, stamp := range w.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	w.stamps = kept
}

// Count returns the number of requests currently in the window.
func (w *requestWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stamps)
}
