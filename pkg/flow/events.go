package flow

import (
	"context"
	"time"
)

// NodeEvent describes entry to or exit from a node.
type NodeEvent struct {
	FlowID string `json:"flow_id"`
	Node   Node   `json:"node"`
}

// ActionEvent describes one action handler invocation. Outcome and Duration
// are zero on OnAction and populated on OnOutcome.
type ActionEvent struct {
	FlowID   string        `json:"flow_id"`
	Node     Node          `json:"node"`
	Action   string        `json:"action"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// Hooks defines optional callbacks for engine observability. All fields may
// be nil; the engine invokes them synchronously, so slow hooks slow down
// Advance.
type Hooks struct {
	OnEnter   func(context.Context, *NodeEvent)
	OnLeave   func(context.Context, *NodeEvent)
	OnAction  func(context.Context, *ActionEvent)
	OnOutcome func(context.Context, *ActionEvent)
}
