package flow

// Definition is the immutable graph describing one workflow: its nodes, the
// transitions between them, and the entry points. Definitions are registered
// into a catalog and never mutated afterwards; re-registration under the same
// id replaces the prior definition as a whole.
type Definition struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Nodes maps node id to node. Insertion order is irrelevant.
	Nodes map[string]Node `json:"nodes" yaml:"nodes"`

	// Transitions holds every edge of the graph in declaration order.
	Transitions []Transition `json:"transitions" yaml:"transitions"`

	// Starts lists entry node ids. The first one is the default entry used
	// when instance state is created on first access.
	Starts []string `json:"starts" yaml:"starts"`
}

// Entry returns the default entry node id, or "" for an empty definition.
func (d *Definition) Entry() string {
	if len(d.Starts) == 0 {
		return ""
	}
	return d.Starts[0]
}

// Node returns the node with the given id.
func (d *Definition) Node(id string) (Node, bool) {
	n, ok := d.Nodes[id]
	return n, ok
}

// From returns the outgoing transitions of a node in declaration order.
func (d *Definition) From(nodeID string) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.From == nodeID {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy. The catalog clones on registration so later
// caller-side mutation of the source cannot leak into published state, and
// the resumption layer clones templates when minting per-key definitions.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	cp := &Definition{
		ID:   d.ID,
		Name: d.Name,
	}
	if d.Nodes != nil {
		cp.Nodes = make(map[string]Node, len(d.Nodes))
		for id, n := range d.Nodes {
			if n.Choices != nil {
				n.Choices = append([]Choice(nil), n.Choices...)
			}
			cp.Nodes[id] = n
		}
	}
	if d.Transitions != nil {
		cp.Transitions = append([]Transition(nil), d.Transitions...)
	}
	if d.Starts != nil {
		cp.Starts = append([]string(nil), d.Starts...)
	}
	return cp
}
