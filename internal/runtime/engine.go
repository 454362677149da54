// Package runtime implements the advancement protocol: the state machine
// core that moves workflow instances through their definition graph.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sendahq/senda/pkg/actions"
	"github.com/sendahq/senda/pkg/catalog"
	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/state"
)

// Engine is the core state machine runner. It consults the catalog for
// definitions, mutates instance state through the store, and dispatches
// action nodes to the registry. The engine itself holds no per-flow locks:
// per-id ordering is whatever order store writes commit, and callers needing
// a strict business order serialize per id themselves.
type Engine struct {
	catalog *catalog.Catalog
	store   state.Store
	actions *actions.Registry
	hooks   flow.Hooks
	logger  *slog.Logger
}

// Option configures the engine.
type Option func(*Engine)

// WithHooks registers observability hooks.
func WithHooks(h flow.Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine over the given catalog, store, and action
// registry.
func NewEngine(cat *catalog.Catalog, store state.Store, reg *actions.Registry, opts ...Option) *Engine {
	e := &Engine{
		catalog: cat,
		store:   store,
		actions: reg,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Advance moves the instance identified by flowID along at most one edge.
//
// With a non-empty choice it takes the guarded transition matching that
// choice; with an empty choice it takes the unconditional transition. No
// matching transition returns (false, nil) without mutation: the current
// node is awaiting input, which is normal flow control, not an error.
//
// The transition target is committed before any action on the target node
// runs, so an action failure never rolls back the move; the outcome's
// variables and status are merged into the bag in one operation after the
// handler returns. When a store write fails after the transition committed,
// Advance reports true together with the error.
func (e *Engine) Advance(ctx context.Context, flowID, choice string) (bool, error) {
	if err := state.CheckID(flowID); err != nil {
		return false, err
	}
	def, err := e.catalog.Get(flowID)
	if err != nil {
		return false, err
	}

	currentID, err := e.store.CurrentNode(ctx, flowID, def.Entry())
	if err != nil {
		return false, err
	}
	current, ok := def.Node(currentID)
	if !ok {
		return false, fmt.Errorf("%w: instance %s points at %q", flow.ErrUnknownNode, flowID, currentID)
	}

	nextID, ok := resolveNext(def, currentID, choice)
	if !ok {
		e.logger.Debug("no matching transition", "flow", flowID, "node", currentID, "choice", choice)
		return false, nil
	}
	// Validation guarantees transition targets exist.
	target := def.Nodes[nextID]

	e.emitLeave(ctx, flowID, current)
	if err := e.store.SetCurrentNode(ctx, flowID, nextID); err != nil {
		return false, fmt.Errorf("commit transition %s -> %s: %w", currentID, nextID, err)
	}
	e.emitEnter(ctx, flowID, target)
	e.logger.Debug("advanced", "flow", flowID, "from", currentID, "to", nextID)

	if target.Kind == flow.KindAction {
		if err := e.runAction(ctx, flowID, target); err != nil {
			return true, err
		}
	}
	return true, nil
}

// runAction executes the handler attached to node and commits its outcome.
// Handler failures arrive as error outcomes from the registry and are data,
// not errors; only store failures propagate.
func (e *Engine) runAction(ctx context.Context, flowID string, node flow.Node) error {
	vars, err := e.store.Variables(ctx, flowID)
	if err != nil {
		return fmt.Errorf("snapshot variables for action %s: %w", node.Action, err)
	}

	e.emitAction(ctx, flowID, node)
	started := time.Now()
	out := e.actions.Execute(ctx, node.Action, flowID, vars)
	e.emitOutcome(ctx, flowID, node, out, time.Since(started))

	if out.Status != flow.StatusOK {
		e.logger.Warn("action finished without success",
			"flow", flowID, "action", node.Action, "status", out.Status)
	}

	merged := make(map[string]string, len(out.Variables)+1)
	for k, v := range out.Variables {
		merged[k] = v
	}
	merged[flow.VarStatus] = out.Status
	if err := e.store.SetVariables(ctx, flowID, merged); err != nil {
		return fmt.Errorf("merge outcome of action %s: %w", node.Action, err)
	}
	return nil
}

func (e *Engine) emitEnter(ctx context.Context, flowID string, node flow.Node) {
	if e.hooks.OnEnter != nil {
		e.hooks.OnEnter(ctx, &flow.NodeEvent{FlowID: flowID, Node: node})
	}
}

func (e *Engine) emitLeave(ctx context.Context, flowID string, node flow.Node) {
	if e.hooks.OnLeave != nil {
		e.hooks.OnLeave(ctx, &flow.NodeEvent{FlowID: flowID, Node: node})
	}
}

func (e *Engine) emitAction(ctx context.Context, flowID string, node flow.Node) {
	if e.hooks.OnAction != nil {
		e.hooks.OnAction(ctx, &flow.ActionEvent{FlowID: flowID, Node: node, Action: node.Action})
	}
}

func (e *Engine) emitOutcome(ctx context.Context, flowID string, node flow.Node, out flow.Outcome, d time.Duration) {
	if e.hooks.OnOutcome != nil {
		e.hooks.OnOutcome(ctx, &flow.ActionEvent{
			FlowID:   flowID,
			Node:     node,
			Action:   node.Action,
			Outcome:  out,
			Duration: d,
		})
	}
}
