package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/sendahq/senda/pkg/state"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire flow lock")

// unlockScript deletes the lock only when the stored token still matches,
// so a lock that expired and was re-acquired elsewhere is never released by
// its previous holder.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Locker implements state.Locker using SET NX PX. It serializes advances on
// one workflow id across replicas.
type Locker struct {
	client  *backend.Client
	prefix  string
	backoff time.Duration
}

var _ state.Locker = (*Locker)(nil)

// NewLocker creates a Redis locker. An empty prefix uses the package
// default.
func NewLocker(client *backend.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Locker{
		client:  client,
		prefix:  prefix,
		backoff: 50 * time.Millisecond,
	}
}

// Lock acquires the lock for flowID, polling until ctx is cancelled. The
// returned UnlockFunc releases only this acquisition.
func (l *Locker) Lock(ctx context.Context, flowID string, ttl time.Duration) (state.UnlockFunc, error) {
	key := l.prefix + "lock:" + flowID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.client.Eval(ctx, unlockScript, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockAcquire, ctx.Err())
		case <-time.After(l.backoff):
		}
	}
}
