package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sendahq/senda/internal/logging"
	"github.com/sendahq/senda/pkg/state"
)

// lockEntry pairs the per-flow mutex with its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to workflow instances. Within a process it hands
// out one mutex per flow id, reference-counted so idle entries are garbage
// collected. With a distributed locker configured, the same guarantee extends
// across replicas sharing a store.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  state.Locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking on top of the local mutexes.
func WithLocker(l state.Locker) Option {
	return func(m *Manager) {
		m.locker = l
	}
}

// WithLockTTL sets how long the distributed lock may be held before the
// backend expires it. The default is 30 seconds.
func WithLockTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = d
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates the flow's lock entry and increments its reference
// count. The caller must lock entry.mu and call release(flowID) after
// unlocking.
func (m *Manager) acquire(flowID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[flowID]
	if !ok {
		entry = &lockEntry{}
		m.locks[flowID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (m *Manager) release(flowID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[flowID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, flowID)
	}
}

// Do runs fn while holding the flow's lock. Calls for different flow ids
// proceed independently; calls for the same id are serialized. An unlock
// failure on the distributed lock is logged, not returned, since the TTL
// bounds the damage.
func (m *Manager) Do(ctx context.Context, flowID string, fn func(context.Context) error) error {
	entry := m.acquire(flowID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(flowID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, flowID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("distributed lock release failed, relying on TTL",
					"flow", flowID, "error", err)
			}
		}()
	}

	return fn(ctx)
}
