// Package actions implements the executor for named side-effecting handlers.
//
// Handlers are registered once at startup and invoked by the engine when a
// workflow enters an action node. The executor is an isolation boundary
// around untrusted handler logic: unknown names, returned errors, panics, and
// cancellation all surface as status-bearing outcomes, never as errors out of
// an advance.
package actions

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sendahq/senda/pkg/flow"
)

// Handler implements one named action. It receives a read-only snapshot of
// the instance variables and returns an outcome to merge back, or an error
// which the executor converts into an error outcome. Handlers performing I/O
// must honor ctx.
type Handler func(ctx context.Context, flowID string, vars map[string]string) (flow.Outcome, error)

// Registry manages the available action handlers.
// Safe for concurrent use; registration is not expected to race invocation
// in steady state, but doing so corrupts nothing.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler under name.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names returns the registered action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a handler by name and invokes it. The result is always an
// outcome:
//
//   - unknown name: "error" with a descriptive message under flow.VarError
//   - handler error: "error" carrying the message
//   - handler panic: recovered, "error" carrying the panic value
//   - cancelled context (before or during the call): "cancelled" with no
//     variable payload, so cancelled work commits nothing
//
// An empty status in a handler's outcome defaults to flow.StatusOK.
func (r *Registry) Execute(ctx context.Context, name, flowID string, vars map[string]string) (out flow.Outcome) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return flow.Errorf("action not registered: %s", name)
	}
	if ctx.Err() != nil {
		return flow.Outcome{Status: flow.StatusCancelled}
	}

	defer func() {
		if rec := recover(); rec != nil {
			out = flow.Errorf("action %s panicked: %v", name, rec)
		}
	}()

	snapshot := make(map[string]string, len(vars))
	for k, v := range vars {
		snapshot[k] = v
	}

	res, err := h(ctx, flowID, snapshot)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return flow.Outcome{Status: flow.StatusCancelled}
		}
		return flow.Errorf("action %s: %s", name, err)
	}
	if res.Status == "" {
		res.Status = flow.StatusOK
	}
	return res
}
