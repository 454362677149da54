package resume

import (
	"context"
	"time"
)

// Tracker records when each workflow id was last started fresh. It backs the
// resume-versus-fresh decision and the stale sweep; implementations exist in
// this package (memory) and in the redis and postgres adapters.
type Tracker interface {
	// StartedAt returns the recorded start time for id, reporting presence.
	StartedAt(ctx context.Context, id string) (time.Time, bool, error)

	// Mark records a fresh start for id at t, overwriting any prior record.
	Mark(ctx context.Context, id string, t time.Time) error

	// Stale returns ids whose recorded start is strictly before cutoff.
	Stale(ctx context.Context, cutoff time.Time) ([]string, error)

	// Forget drops the record for id.
	Forget(ctx context.Context, id string) error
}
