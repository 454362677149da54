/*
Package dsl provides a fluent builder for constructing workflow definitions
in Go code instead of YAML. This is useful for dynamic graph generation,
unit testing, and IDE-assisted authoring.

Example usage:

	def, err := dsl.New("coffee").
		Choice("ask", "Coffee?").
		Route("Yes", "yes", "brew").
		Route("No", "no", "bye").
		Builder().
		Terminal("brew", "Coming right up.").
		Builder().
		Terminal("bye", "Another time.").
		Builder().
		Build()

Each node method returns a NodeBuilder for chaining options and edges; call
Builder() to hop back when declaring the next node, or keep separate
statements:

	b := dsl.New("coffee")
	b.Prompt("welcome", "Welcome.").To("ask")
	b.Choice("ask", "Coffee?").
		Route("Yes", "yes", "brew").
		Route("No", "no", "bye")
	b.Action("brew", "brew").To("done")
	b.Terminal("done", "Enjoy!")
	b.Terminal("bye", "Another time.")
	def, err := b.Build()

Build validates the graph, so a mistyped target or a duplicate guard fails
fast with every problem listed.
*/
package dsl
