package flow

// View is the rendering contract exposed after every advance: everything a
// presentation layer needs to draw the current node of an instance. The
// engine makes no assumption about the presentation format.
type View struct {
	FlowID    string            `json:"flow_id"`
	NodeID    string            `json:"node_id"`
	Kind      Kind              `json:"kind"`
	Text      string            `json:"text,omitempty"`
	Choices   []Choice          `json:"choices,omitempty"`
	Terminal  bool              `json:"terminal"`
	Variables map[string]string `json:"variables,omitempty"`
}

// AwaitsChoice reports whether the current node expects one of its choice
// values before it can advance.
func (v *View) AwaitsChoice() bool {
	return v.Kind == KindChoice
}
