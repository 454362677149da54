package state

import (
	"context"
	"time"
)

// UnlockFunc releases a lock acquired through a Locker.
type UnlockFunc func(ctx context.Context) error

// Locker serializes work on a single workflow id across processes. The
// engine itself does not lock; callers that need strict per-flow ordering
// (an HTTP frontend with several replicas, for example) acquire the lock
// around each advance. The redis adapter provides a distributed
// implementation.
type Locker interface {
	Lock(ctx context.Context, flowID string, ttl time.Duration) (UnlockFunc, error)
}
