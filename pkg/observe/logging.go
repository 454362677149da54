package observe

import (
	"context"
	"log/slog"

	"github.com/sendahq/senda/pkg/flow"
)

// LogHooks returns hooks that emit one structured log line per lifecycle
// event. Node entry and action completion log at Info, the rest at Debug.
func LogHooks(logger *slog.Logger) flow.Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return flow.Hooks{
		OnEnter: func(ctx context.Context, e *flow.NodeEvent) {
			logger.InfoContext(ctx, "node enter",
				"flow", e.FlowID, "node", e.Node.ID, "kind", e.Node.Kind)
		},
		OnLeave: func(ctx context.Context, e *flow.NodeEvent) {
			logger.DebugContext(ctx, "node leave",
				"flow", e.FlowID, "node", e.Node.ID)
		},
		OnAction: func(ctx context.Context, e *flow.ActionEvent) {
			logger.DebugContext(ctx, "action start",
				"flow", e.FlowID, "node", e.Node.ID, "action", e.Action)
		},
		OnOutcome: func(ctx context.Context, e *flow.ActionEvent) {
			logger.InfoContext(ctx, "action done",
				"flow", e.FlowID,
				"action", e.Action,
				"status", e.Outcome.Status,
				"duration", e.Duration)
		},
	}
}
