package runtime

import (
	"context"
	"fmt"

	"github.com/sendahq/senda/pkg/flow"
	"github.com/sendahq/senda/pkg/state"
)

// View resolves the current node of flowID and returns it with a variable
// snapshot. Reading an unseen id creates its default state at the
// definition's entry point, so a first View is how an instance is born
// implicitly.
func (e *Engine) View(ctx context.Context, flowID string) (*flow.View, error) {
	if err := state.CheckID(flowID); err != nil {
		return nil, err
	}
	def, err := e.catalog.Get(flowID)
	if err != nil {
		return nil, err
	}

	currentID, err := e.store.CurrentNode(ctx, flowID, def.Entry())
	if err != nil {
		return nil, err
	}
	node, ok := def.Node(currentID)
	if !ok {
		return nil, fmt.Errorf("%w: instance %s points at %q", flow.ErrUnknownNode, flowID, currentID)
	}

	vars, err := e.store.Variables(ctx, flowID)
	if err != nil {
		return nil, err
	}

	return &flow.View{
		FlowID:    flowID,
		NodeID:    currentID,
		Kind:      node.Kind,
		Text:      node.Text,
		Choices:   node.Choices,
		Terminal:  node.Kind == flow.KindTerminal,
		Variables: vars,
	}, nil
}
