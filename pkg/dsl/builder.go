package dsl

import (
	"github.com/sendahq/senda/pkg/flow"
)

// Builder assembles a workflow definition node by node.
type Builder struct {
	id     string
	name   string
	starts []string
	order  []string
	nodes  map[string]*NodeBuilder
}

// New creates a builder for a definition with the given id.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Start declares an entry node. Without an explicit start, the first node
// added to the builder is the entry.
func (b *Builder) Start(id string) *Builder {
	b.starts = append(b.starts, id)
	return b
}

// Prompt adds a prompt node: text shown, advanced without input.
func (b *Builder) Prompt(id, text string) *NodeBuilder {
	return b.add(id, flow.Node{ID: id, Kind: flow.KindPrompt, Text: text})
}

// Choice adds a choice node. Declare its options with Option and its guarded
// edges with When.
func (b *Builder) Choice(id, text string) *NodeBuilder {
	return b.add(id, flow.Node{ID: id, Kind: flow.KindChoice, Text: text})
}

// Action adds an action node bound to the named handler.
func (b *Builder) Action(id, action string) *NodeBuilder {
	return b.add(id, flow.Node{ID: id, Kind: flow.KindAction, Action: action})
}

// Terminal adds a terminal node.
func (b *Builder) Terminal(id, text string) *NodeBuilder {
	return b.add(id, flow.Node{ID: id, Kind: flow.KindTerminal, Text: text})
}

// add creates or redefines a node. Redefining keeps the original position
// but replaces the node, dropping its previous edges.
func (b *Builder) add(id string, node flow.Node) *NodeBuilder {
	nb, ok := b.nodes[id]
	if !ok {
		nb = &NodeBuilder{builder: b}
		b.nodes[id] = nb
		b.order = append(b.order, id)
	}
	nb.node = node
	nb.edges = nil
	return nb
}

// Build compiles and validates the definition.
func (b *Builder) Build() (*flow.Definition, error) {
	def := &flow.Definition{
		ID:    b.id,
		Name:  b.name,
		Nodes: make(map[string]flow.Node, len(b.nodes)),
	}

	def.Starts = append(def.Starts, b.starts...)
	if len(def.Starts) == 0 && len(b.order) > 0 {
		def.Starts = []string{b.order[0]}
	}

	for _, id := range b.order {
		nb := b.nodes[id]
		def.Nodes[id] = nb.node
		def.Transitions = append(def.Transitions, nb.edges...)
	}

	if err := flow.Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}
