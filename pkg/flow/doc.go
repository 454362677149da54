/*
Package flow contains the core domain model for the senda engine.

It defines the vocabulary of a conversational workflow: the immutable
Definition graph, its Nodes and Transitions, the Outcome returned by action
handlers, and the lifecycle hook points the engine emits. The package is kept
pure and free of I/O or persistence concerns; stores and adapters depend on
it, never the other way around.

# Key Entities

  - Definition: an immutable graph of nodes, transitions, and start points.
  - Node: a point in the graph (Prompt, Choice, Action, or Terminal).
  - Transition: a guarded or unconditional edge between two nodes.
  - Outcome: the status and variable payload produced by an action handler.
  - Hooks: optional callbacks observing node and action lifecycle.
*/
package flow
