package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendahq/senda/pkg/flow"
)

// Store persists per-workflow instance state: the current node pointer and
// the variable bag. Implementations must be safe for unbounded concurrent
// readers and writers without external locking by the caller.
type Store interface {
	// CurrentNode returns the current node pointer for flowID. If the
	// instance has no pointer yet and fallback is non-empty, the pointer is
	// atomically initialized to fallback and returned; concurrent first
	// reads must agree on one winner. A reader never observes a torn value.
	CurrentNode(ctx context.Context, flowID, fallback string) (string, error)

	// SetCurrentNode overwrites the pointer, last-writer-wins.
	SetCurrentNode(ctx context.Context, flowID, nodeID string) error

	// Variable returns the value stored under key, reporting presence.
	// Absent keys and absent instances default gracefully, never an error.
	Variable(ctx context.Context, flowID, key string) (string, bool, error)

	// SetVariable stores one variable. Creation of a previously-unseen
	// instance's bag is atomic: concurrent SetVariable calls for distinct
	// keys on a fresh id must all survive.
	SetVariable(ctx context.Context, flowID, key, value string) error

	// SetVariables merges vars into the bag in one operation.
	SetVariables(ctx context.Context, flowID string, vars map[string]string) error

	// Variables returns a snapshot copy of the bag.
	Variables(ctx context.Context, flowID string) (map[string]string, error)

	// Remove deletes all state for flowID.
	Remove(ctx context.Context, flowID string) error
}

// Key normalizes a variable key. Lookups are case-insensitive, so every
// implementation stores and queries through this.
func Key(k string) string {
	return strings.ToLower(k)
}

// CheckID rejects empty workflow ids. An empty id is a caller programming
// error, not a runtime condition to retry.
func CheckID(flowID string) error {
	if flowID == "" {
		return fmt.Errorf("%w: empty workflow id", flow.ErrInvalidInput)
	}
	return nil
}

// CheckKey rejects empty variable keys.
func CheckKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty variable key", flow.ErrInvalidInput)
	}
	return nil
}
