package resume

import (
	"context"
	"time"
)

// DefaultWindow is the trailing window within which a prior start is resumed
// rather than recreated.
const DefaultWindow = 24 * time.Hour

// Manager applies the window policy over a Tracker.
type Manager struct {
	tracker Tracker
	window  time.Duration
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithWindow overrides the trailing window.
func WithWindow(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock injects a time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager with the default 24h window.
func NewManager(tracker Tracker, opts ...ManagerOption) *Manager {
	m := &Manager{
		tracker: tracker,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Window returns the configured trailing window.
func (m *Manager) Window() time.Duration {
	return m.window
}

// Claim decides resume-versus-fresh for id. A recorded start within the
// window resumes: the record is left untouched, keeping the window anchored
// at creation. Anything absent or older is a fresh start and is re-marked at
// now. Concurrent claims at the window boundary resolve last-write-wins.
func (m *Manager) Claim(ctx context.Context, id string) (resumed bool, err error) {
	started, ok, err := m.tracker.StartedAt(ctx, id)
	if err != nil {
		return false, err
	}
	now := m.now()
	if ok && now.Sub(started) <= m.window {
		return true, nil
	}
	if err := m.tracker.Mark(ctx, id, now); err != nil {
		return false, err
	}
	return false, nil
}

// Cutoff returns the current staleness boundary: starts before it fall
// outside the window.
func (m *Manager) Cutoff() time.Time {
	return m.now().Add(-m.window)
}

// Forget drops the tracker record for id.
func (m *Manager) Forget(ctx context.Context, id string) error {
	return m.tracker.Forget(ctx, id)
}

// Stale lists ids outside the window, for sweeping.
func (m *Manager) Stale(ctx context.Context) ([]string, error) {
	return m.tracker.Stale(ctx, m.Cutoff())
}
