package resume

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker implements Tracker in process memory.
// Safe for concurrent use.
type MemoryTracker struct {
	mu     sync.RWMutex
	starts map[string]time.Time
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		starts: make(map[string]time.Time),
	}
}

// StartedAt returns the recorded start time for id.
func (t *MemoryTracker) StartedAt(ctx context.Context, id string) (time.Time, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.starts[id]
	return at, ok, nil
}

// Mark records a fresh start for id.
func (t *MemoryTracker) Mark(ctx context.Context, id string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[id] = at
	return nil
}

// Stale returns ids started strictly before cutoff.
func (t *MemoryTracker) Stale(ctx context.Context, cutoff time.Time) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for id, at := range t.starts {
		if at.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Forget drops the record for id.
func (t *MemoryTracker) Forget(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.starts, id)
	return nil
}
