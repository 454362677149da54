// Package catalog holds published workflow definitions keyed by workflow id.
//
// A Catalog is an injected dependency, not an ambient singleton; tests and
// embedders construct isolated instances. Registration replaces atomically:
// concurrent readers observe either the previous definition or the new one in
// full, never a mix.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sendahq/senda/pkg/flow"
)

// Catalog stores immutable workflow definitions.
// Safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*flow.Definition
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		defs: make(map[string]*flow.Definition),
	}
}

// Register validates def and publishes it under def.ID, replacing any prior
// definition with that id. The catalog keeps its own deep copy, so later
// mutation of def by the caller cannot leak into published state.
func (c *Catalog) Register(def *flow.Definition) error {
	if err := flow.Validate(def); err != nil {
		return err
	}

	cp := def.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[cp.ID] = cp
	return nil
}

// Get returns the definition registered under id.
// Returns flow.ErrUnknownFlow if no definition is registered. The returned
// definition is shared and must be treated as read-only.
func (c *Catalog) Get(id string) (*flow.Definition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrUnknownFlow, id)
	}
	return def, nil
}

// Exists reports whether a definition is registered under id. A true result
// guarantees a subsequent Get succeeds unless an explicit Remove intervenes.
func (c *Catalog) Exists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.defs[id]
	return ok
}

// IDs returns a sorted snapshot of the registered workflow ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove drops the definition registered under id, if any.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.defs, id)
}
