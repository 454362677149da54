package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sendahq/senda/pkg/state"
)

// Store implements state.Store on a single-row-per-instance table. An empty
// node column means "pointer not yet initialized": a variable write may
// create the row before the instance is ever advanced.
type Store struct {
	db *sqlx.DB
}

var _ state.Store = (*Store)(nil)

// New creates a store over an existing connection pool. Run Migrate first.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CurrentNode returns the stored pointer, atomically initializing it to
// fallback on first access. The upsert claims the row or fills an empty
// pointer in one statement, so concurrent first reads all observe one
// committed value.
func (s *Store) CurrentNode(ctx context.Context, flowID, fallback string) (string, error) {
	if err := state.CheckID(flowID); err != nil {
		return "", err
	}

	query := `
		INSERT INTO senda_flows (id, node) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			node = CASE WHEN senda_flows.node = '' THEN EXCLUDED.node ELSE senda_flows.node END,
			updated_at = now()
		RETURNING node
	`
	var node string
	if err := s.db.GetContext(ctx, &node, query, flowID, fallback); err != nil {
		return "", fmt.Errorf("postgres: current node of %s: %w", flowID, err)
	}
	return node, nil
}

// SetCurrentNode overwrites the pointer, last-writer-wins.
func (s *Store) SetCurrentNode(ctx context.Context, flowID, node string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}

	query := `
		INSERT INTO senda_flows (id, node) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET node = EXCLUDED.node, updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, flowID, node); err != nil {
		return fmt.Errorf("postgres: set current node of %s: %w", flowID, err)
	}
	return nil
}

// Variable reads one variable. A missing key or unseen flow reports ok=false
// with no error.
func (s *Store) Variable(ctx context.Context, flowID, key string) (string, bool, error) {
	if err := state.CheckID(flowID); err != nil {
		return "", false, err
	}
	if err := state.CheckKey(key); err != nil {
		return "", false, err
	}

	query := `SELECT variables ->> $2 FROM senda_flows WHERE id = $1`
	var val sql.NullString
	err := s.db.GetContext(ctx, &val, query, flowID, state.Key(key))
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: variable %s of %s: %w", key, flowID, err)
	}
	if !val.Valid {
		return "", false, nil
	}
	return val.String, true, nil
}

// SetVariable writes one variable.
func (s *Store) SetVariable(ctx context.Context, flowID, key, value string) error {
	return s.SetVariables(ctx, flowID, map[string]string{key: value})
}

// SetVariables merges vars into the bag in one upsert. The || operator keeps
// concurrent merges of distinct keys from losing each other's writes.
func (s *Store) SetVariables(ctx context.Context, flowID string, vars map[string]string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if len(vars) == 0 {
		return nil
	}

	lowered := make(map[string]string, len(vars))
	for k, v := range vars {
		if err := state.CheckKey(k); err != nil {
			return err
		}
		lowered[state.Key(k)] = v
	}
	payload, err := json.Marshal(lowered)
	if err != nil {
		return fmt.Errorf("postgres: marshal variables of %s: %w", flowID, err)
	}

	query := `
		INSERT INTO senda_flows (id, variables) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			variables = senda_flows.variables || EXCLUDED.variables,
			updated_at = now()
	`
	if _, err := s.db.ExecContext(ctx, query, flowID, json.RawMessage(payload)); err != nil {
		return fmt.Errorf("postgres: set variables of %s: %w", flowID, err)
	}
	return nil
}

// Variables returns a snapshot of the bag.
func (s *Store) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	if err := state.CheckID(flowID); err != nil {
		return nil, err
	}

	query := `SELECT variables FROM senda_flows WHERE id = $1`
	var raw json.RawMessage
	err := s.db.GetContext(ctx, &raw, query, flowID)
	if err == sql.ErrNoRows {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: variables of %s: %w", flowID, err)
	}

	vars := make(map[string]string)
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal variables of %s: %w", flowID, err)
	}
	return vars, nil
}

// Remove deletes all state for the id.
func (s *Store) Remove(ctx context.Context, flowID string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM senda_flows WHERE id = $1`, flowID); err != nil {
		return fmt.Errorf("postgres: remove %s: %w", flowID, err)
	}
	return nil
}
