// Package redis persists workflow instance state in Redis. Each instance
// maps to one hash; the resumption tracker is a sorted set scored by start
// time, so staleness queries are a single range call.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/sendahq/senda/pkg/state"
)

const (
	defaultPrefix = "senda:"
	fieldNode     = "node"
	varPrefix     = "v:"
)

// Store implements state.Store on a Redis hash per workflow instance. The
// current node lives under one reserved field; variables are prefixed
// fields of the same hash, so a bulk merge is one HSET.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets a sliding expiration for instance hashes, refreshed on every
// write. Zero (the default) keeps instances until removed or swept.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for instance hashes.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(flowID string) string {
	return s.prefix + "flow:" + flowID
}

// CurrentNode returns the stored pointer for flowID, atomically initializing
// it to fallback on first access. HSETNX inside a transaction guarantees the
// first writer wins and every reader observes a committed value.
func (s *Store) CurrentNode(ctx context.Context, flowID, fallback string) (string, error) {
	if err := state.CheckID(flowID); err != nil {
		return "", err
	}

	key := s.key(flowID)
	var get *backend.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldNode, fallback)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		get = pipe.HGet(ctx, key, fieldNode)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis: current node of %s: %w", flowID, err)
	}
	return get.Val(), nil
}

// SetCurrentNode overwrites the pointer, last-writer-wins.
func (s *Store) SetCurrentNode(ctx context.Context, flowID, node string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}

	key := s.key(flowID)
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, key, fieldNode, node)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set current node of %s: %w", flowID, err)
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

	val, err := s.client.HGet(ctx, s.key(flowID), varPrefix+state.Key(key)).Result()
	if err == backend.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis: variable %s of %s: %w", key, flowID, err)
	}
	return val, true, nil
}

// SetVariable writes one variable. Hash fields make concurrent first writes
// on a fresh id safe without any client-side coordination.
func (s *Store) SetVariable(ctx context.Context, flowID, key, value string) error {
	return s.SetVariables(ctx, flowID, map[string]string{key: value})
}

// SetVariables merges vars into the bag in one command.
func (s *Store) SetVariables(ctx context.Context, flowID string, vars map[string]string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if len(vars) == 0 {
		return nil
	}

	fields := make([]any, 0, len(vars)*2)
	for k, v := range vars {
		if err := state.CheckKey(k); err != nil {
			return err
		}
		fields = append(fields, varPrefix+state.Key(k), v)
	}

	key := s.key(flowID)
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, key, fields...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set variables of %s: %w", flowID, err)
	}
	return nil
}

// Variables returns a snapshot of the bag.
func (s *Store) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	if err := state.CheckID(flowID); err != nil {
		return nil, err
	}

	all, err := s.client.HGetAll(ctx, s.key(flowID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: variables of %s: %w", flowID, err)
	}

	vars := make(map[string]string, len(all))
	for field, val := range all {
		if strings.HasPrefix(field, varPrefix) {
			vars[strings.TrimPrefix(field, varPrefix)] = val
		}
	}
	return vars, nil
}

// Remove deletes all state for the id.
func (s *Store) Remove(ctx context.Context, flowID string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(flowID)).Err(); err != nil {
		return fmt.Errorf("redis: remove %s: %w", flowID, err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
