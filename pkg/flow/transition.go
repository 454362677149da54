package flow

// Transition defines a rule to move from one node to another.
type Transition struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`

	// Guard is the choice value that must be supplied for this transition
	// to be taken. Empty means unconditional: the default edge followed
	// when no choice is supplied.
	Guard string `json:"when,omitempty" yaml:"when,omitempty" mapstructure:"when"`
}

// Unconditional reports whether the transition carries no guard.
func (t Transition) Unconditional() bool {
	return t.Guard == ""
}
