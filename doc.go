/*
Package senda is a workflow execution engine for conversational, graph-based
flows: registered definitions, durable per-instance state, named action
handlers, and a single advancement protocol driving instances along their
edges.

It separates the workflow graph (Definition) from the execution state
(current node plus a variable bag) and from side-effects (Actions), so the
same definition can drive many concurrent instances over any persistence
backend.

# Concept

Senda treats an application flow as a graph of nodes joined by transitions.
The engine owns state transitions, variable storage, and resumption, while
the host application owns I/O and the action handlers. This keeps the core
embeddable in any interface: CLI, HTTP server, or an MCP-speaking agent.

# Key Features

  - Deterministic Advancement: a choice selects among guarded transitions,
    no choice takes the unconditional one; the move commits before the
    target's action runs.
  - Pluggable Persistence: in-memory, Redis, and Postgres state stores
    behind one small port, all passing the same contract suite.
  - Isolated Side-Effects: action handlers run against a snapshot; errors,
    panics, and cancellation surface as status-bearing outcomes, never as a
    broken instance.
  - Context Resumption: workflow ids derived from external context resume
    within a trailing window and start fresh outside it.

# Usage

Construct an engine, register a definition, and drive instances with
Advance and View.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/sendahq/senda"
		"github.com/sendahq/senda/pkg/flow"
	)

	func main() {
		eng := senda.New()

		def := &flow.Definition{
			ID:     "greeter",
			Starts: []string{"hello"},
			Nodes: map[string]flow.Node{
				"hello": {ID: "hello", Kind: flow.KindChoice, Text: "Coffee?",
					Choices: []flow.Choice{{Label: "Yes", Value: "yes"}, {Label: "No", Value: "no"}}},
				"brew": {ID: "brew", Kind: flow.KindTerminal, Text: "Coming right up."},
				"bye":  {ID: "bye", Kind: flow.KindTerminal, Text: "Another time."},
			},
			Transitions: []flow.Transition{
				{From: "hello", To: "brew", Guard: "yes"},
				{From: "hello", To: "bye", Guard: "no"},
			},
		}
		if err := eng.Register(def); err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		advanced, err := eng.Advance(ctx, "greeter", "yes")
		if err != nil {
			log.Fatal(err)
		}

		view, err := eng.View(ctx, "greeter")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(advanced, view.Text) // true Coming right up.
	}
*/
package senda
