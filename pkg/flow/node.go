package flow

// Kind classifies the control flow behavior of a node.
type Kind string

const (
	// KindPrompt displays text and moves on through the default edge.
	KindPrompt Kind = "prompt"
	// KindChoice displays text and halts until the caller supplies one of
	// the offered choice values.
	KindChoice Kind = "choice"
	// KindAction triggers a named side-effecting handler on entry.
	KindAction Kind = "action"
	// KindTerminal is a sink state with no outgoing transitions.
	KindTerminal Kind = "terminal"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPrompt, KindChoice, KindAction, KindTerminal:
		return true
	}
	return false
}

// Node represents a logical unit in the workflow graph.
type Node struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Kind Kind   `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Text is what the presentation layer shows when this node is current.
	Text string `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`

	// Action names the handler to invoke when entering this node.
	// Set if and only if Kind == KindAction.
	Action string `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`

	// Choices lists the options offered by a choice node, in display order.
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty" mapstructure:"choices"`
}

// Choice is one selectable option of a choice node. Value is what callers
// pass to Advance; Label is what they see.
type Choice struct {
	Label string `json:"label" yaml:"label" mapstructure:"label"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}
