// Package observe turns engine lifecycle hooks into structured logs and
// Prometheus metrics. The callbacks run synchronously inside Advance, so
// everything here is allocation-light and never blocks on I/O.
package observe

import (
	"context"

	"github.com/sendahq/senda/pkg/flow"
)

// Merge combines several hook sets into one. Every non-nil callback runs in
// argument order. Callbacks that no set provides stay nil, so the engine can
// keep skipping them.
func Merge(sets ...flow.Hooks) flow.Hooks {
	var (
		enters   []func(context.Context, *flow.NodeEvent)
		leaves   []func(context.Context, *flow.NodeEvent)
		actions  []func(context.Context, *flow.ActionEvent)
		outcomes []func(context.Context, *flow.ActionEvent)
	)
	for _, s := range sets {
		if s.OnEnter != nil {
			enters = append(enters, s.OnEnter)
		}
		if s.OnLeave != nil {
			leaves = append(leaves, s.OnLeave)
		}
		if s.OnAction != nil {
			actions = append(actions, s.OnAction)
		}
		if s.OnOutcome != nil {
			outcomes = append(outcomes, s.OnOutcome)
		}
	}

	var merged flow.Hooks
	if len(enters) > 0 {
		merged.OnEnter = func(ctx context.Context, e *flow.NodeEvent) {
			for _, fn := range enters {
				fn(ctx, e)
			}
		}
	}
	if len(leaves) > 0 {
		merged.OnLeave = func(ctx context.Context, e *flow.NodeEvent) {
			for _, fn := range leaves {
				fn(ctx, e)
			}
		}
	}
	if len(actions) > 0 {
		merged.OnAction = func(ctx context.Context, e *flow.ActionEvent) {
			for _, fn := range actions {
				fn(ctx, e)
			}
		}
	}
	if len(outcomes) > 0 {
		merged.OnOutcome = func(ctx context.Context, e *flow.ActionEvent) {
			for _, fn := range outcomes {
				fn(ctx, e)
			}
		}
	}
	return merged
}
