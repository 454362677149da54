package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sendahq/senda/pkg/resume"
)

// Tracker implements resume.Tracker on the senda_resume table.
type Tracker struct {
	db *sqlx.DB
}

var _ resume.Tracker = (*Tracker)(nil)

// NewTracker creates a tracker over an existing connection pool.
func NewTracker(db *sqlx.DB) *Tracker {
	return &Tracker{db: db}
}

// StartedAt returns the recorded start time for id.
func (t *Tracker) StartedAt(ctx context.Context, id string) (time.Time, bool, error) {
	var at time.Time
	err := t.db.GetContext(ctx, &at, `SELECT started_at FROM senda_resume WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("postgres: started-at of %s: %w", id, err)
	}
	return at, true, nil
}

// Mark records a fresh start for id, overwriting any prior record.
func (t *Tracker) Mark(ctx context.Context, id string, at time.Time) error {
	query := `
		INSERT INTO senda_resume (id, started_at) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET started_at = EXCLUDED.started_at
	`
	if _, err := t.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("postgres: mark %s: %w", id, err)
	}
	return nil
}

// Stale returns ids whose recorded start is strictly before cutoff.
func (t *Tracker) Stale(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	query := `SELECT id FROM senda_resume WHERE started_at < $1 ORDER BY started_at`
	if err := t.db.SelectContext(ctx, &ids, query, cutoff); err != nil {
		return nil, fmt.Errorf("postgres: stale scan: %w", err)
	}
	return ids, nil
}

// Forget drops the record for id.
func (t *Tracker) Forget(ctx context.Context, id string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM senda_resume WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: forget %s: %w", id, err)
	}
	return nil
}
