package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/sendahq/senda/pkg/resume"
)

// Tracker implements resume.Tracker on a sorted set: member = workflow id,
// score = start time in fractional unix seconds. Stale lookups become one
// ZRANGEBYSCORE.
type Tracker struct {
	client *backend.Client
	key    string
}

var _ resume.Tracker = (*Tracker)(nil)

// NewTracker creates a tracker on the given client. An empty prefix uses the
// package default.
func NewTracker(client *backend.Client, prefix string) *Tracker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Tracker{
		client: client,
		key:    prefix + "resume",
	}
}

func toScore(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromScore(score float64) time.Time {
	return time.Unix(0, int64(score*float64(time.Second)))
}

// StartedAt returns the recorded start time for id.
func (t *Tracker) StartedAt(ctx context.Context, id string) (time.Time, bool, error) {
	score, err := t.client.ZScore(ctx, t.key, id).Result()
	if err == backend.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: started-at of %s: %w", id, err)
	}
	return fromScore(score), true, nil
}

// Mark records a fresh start for id, overwriting any prior record.
func (t *Tracker) Mark(ctx context.Context, id string, at time.Time) error {
	err := t.client.ZAdd(ctx, t.key, backend.Z{Score: toScore(at), Member: id}).Err()
	if err != nil {
		return fmt.Errorf("redis: mark %s: %w", id, err)
	}
	return nil
}

// Stale returns ids whose recorded start is strictly before cutoff.
func (t *Tracker) Stale(ctx context.Context, cutoff time.Time) ([]string, error) {
	ids, err := t.client.ZRangeByScore(ctx, t.key, &backend.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(toScore(cutoff), 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: stale scan: %w", err)
	}
	return ids, nil
}

// Forget drops the record for id.
func (t *Tracker) Forget(ctx context.Context, id string) error {
	if err := t.client.ZRem(ctx, t.key, id).Err(); err != nil {
		return fmt.Errorf("redis: forget %s: %w", id, err)
	}
	return nil
}
