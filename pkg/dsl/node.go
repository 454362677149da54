package dsl

import "github.com/sendahq/senda/pkg/flow"

// NodeBuilder provides a fluent API for configuring one node and its
// outgoing edges.
type NodeBuilder struct {
	node    flow.Node
	edges   []flow.Transition
	builder *Builder
}

// Option adds a selectable choice to a choice node.
func (n *NodeBuilder) Option(label, value string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, flow.Choice{Label: label, Value: value})
	return n
}

// To adds the unconditional transition to the target node.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	n.edges = append(n.edges, flow.Transition{From: n.node.ID, To: target})
	return n
}

// When adds a guarded transition taken when the supplied choice matches.
func (n *NodeBuilder) When(guard, target string) *NodeBuilder {
	n.edges = append(n.edges, flow.Transition{From: n.node.ID, To: target, Guard: guard})
	return n
}

// Route is Option and When in one call: the choice is offered and routes to
// target under the same value.
func (n *NodeBuilder) Route(label, value, target string) *NodeBuilder {
	return n.Option(label, value).When(value, target)
}

// Text overrides the node text.
func (n *NodeBuilder) Text(text string) *NodeBuilder {
	n.node.Text = text
	return n
}

// Builder returns the parent builder, for continuing a single chain with
// the next node.
func (n *NodeBuilder) Builder() *Builder {
	return n.builder
}

// Node returns the node built so far, without its edges.
func (n *NodeBuilder) Node() flow.Node {
	return n.node
}
