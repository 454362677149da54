// Package memory provides the default in-process state.Store.
package memory

import (
	"context"
	"sync"

	"github.com/sendahq/senda/pkg/state"
)

// entry holds the instance state for one workflow id. The bag map is created
// exactly once, by whichever caller wins the LoadOrStore below, so concurrent
// first writes can never drop each other's variables.
type entry struct {
	mu   sync.RWMutex
	node string
	vars map[string]string
}

// Store implements state.Store in process memory.
// Safe for concurrent use.
type Store struct {
	entries sync.Map // flow id -> *entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// entry returns the state entry for flowID, creating it atomically on first
// access. Load first keeps the fast path allocation-free.
func (s *Store) entry(flowID string) *entry {
	if e, ok := s.entries.Load(flowID); ok {
		return e.(*entry)
	}
	e, _ := s.entries.LoadOrStore(flowID, &entry{vars: make(map[string]string)})
	return e.(*entry)
}

// CurrentNode returns the pointer for flowID, initializing it to fallback on
// first access.
func (s *Store) CurrentNode(ctx context.Context, flowID, fallback string) (string, error) {
	if err := state.CheckID(flowID); err != nil {
		return "", err
	}
	e := s.entry(flowID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.node == "" && fallback != "" {
		e.node = fallback
	}
	return e.node, nil
}

// SetCurrentNode overwrites the pointer, last-writer-wins.
func (s *Store) SetCurrentNode(ctx context.Context, flowID, nodeID string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	e := s.entry(flowID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.node = nodeID
	return nil
}

// Variable returns the value stored under key.
func (s *Store) Variable(ctx context.Context, flowID, key string) (string, bool, error) {
	if err := state.CheckID(flowID); err != nil {
		return "", false, err
	}
	if err := state.CheckKey(key); err != nil {
		return "", false, err
	}
	e := s.entry(flowID)
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[state.Key(key)]
	return v, ok, nil
}

// SetVariable stores one variable.
func (s *Store) SetVariable(ctx context.Context, flowID, key, value string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if err := state.CheckKey(key); err != nil {
		return err
	}
	e := s.entry(flowID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[state.Key(key)] = value
	return nil
}

// SetVariables merges vars into the bag in one locked operation.
func (s *Store) SetVariables(ctx context.Context, flowID string, vars map[string]string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	if len(vars) == 0 {
		return nil
	}
	for k := range vars {
		if err := state.CheckKey(k); err != nil {
			return err
		}
	}
	e := s.entry(flowID)
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range vars {
		e.vars[state.Key(k)] = v
	}
	return nil
}

// Variables returns a snapshot copy so callers can't mutate store state
// through the returned map.
func (s *Store) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	if err := state.CheckID(flowID); err != nil {
		return nil, err
	}
	e := s.entry(flowID)
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out, nil
}

// Remove deletes all state for flowID.
func (s *Store) Remove(ctx context.Context, flowID string) error {
	if err := state.CheckID(flowID); err != nil {
		return err
	}
	s.entries.Delete(flowID)
	return nil
}
