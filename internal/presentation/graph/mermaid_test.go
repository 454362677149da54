package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sendahq/senda/internal/presentation/graph"
	"github.com/sendahq/senda/pkg/flow"
)

func TestMermaidShapes(t *testing.T) {
	tests := []struct {
		name     string
		def      *flow.Definition
		contains []string
	}{
		{
			name: "entry node is a circle",
			def: &flow.Definition{
				ID:     "f",
				Starts: []string{"welcome"},
				Nodes:  map[string]flow.Node{"welcome": {ID: "welcome", Kind: flow.KindPrompt}},
			},
			contains: []string{`welcome(("welcome"))`},
		},
		{
			name: "action node is a subroutine",
			def: &flow.Definition{
				ID:    "f",
				Nodes: map[string]flow.Node{"brew": {ID: "brew", Kind: flow.KindAction, Action: "brew"}},
			},
			contains: []string{`brew[["brew"]]`},
		},
		{
			name: "choice node is a parallelogram",
			def: &flow.Definition{
				ID:    "f",
				Nodes: map[string]flow.Node{"ask": {ID: "ask", Kind: flow.KindChoice}},
			},
			contains: []string{`ask[/"ask"/]`},
		},
		{
			name: "terminal node is a stadium",
			def: &flow.Definition{
				ID:    "f",
				Nodes: map[string]flow.Node{"done": {ID: "done", Kind: flow.KindTerminal}},
			},
			contains: []string{`done(["done"])`},
		},
		{
			name: "ids are sanitized, labels are not",
			def: &flow.Definition{
				ID: "f",
				Nodes: map[string]flow.Node{
					"path/to.node": {ID: "path/to.node", Kind: flow.KindPrompt},
					"hyphen-ated":  {ID: "hyphen-ated", Kind: flow.KindPrompt},
				},
			},
			contains: []string{
				`path_to_node["path/to.node"]`,
				`hyphen_ated["hyphen-ated"]`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.Mermaid(tt.def, nil)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestMermaidTransitions(t *testing.T) {
	def := &flow.Definition{
		ID: "f",
		Nodes: map[string]flow.Node{
			"ask":  {ID: "ask", Kind: flow.KindChoice},
			"brew": {ID: "brew", Kind: flow.KindAction, Action: "brew"},
			"bye":  {ID: "bye", Kind: flow.KindTerminal},
		},
		Transitions: []flow.Transition{
			{From: "ask", To: "brew", Guard: `say "yes"`},
			{From: "brew", To: "bye"},
		},
	}

	got := graph.Mermaid(def, nil)
	assert.Contains(t, got, `ask -- "say 'yes'" --> brew`)
	assert.Contains(t, got, "brew --> bye")
}

func TestMermaidOverlayMarksCurrentNode(t *testing.T) {
	def := &flow.Definition{
		ID:    "f",
		Nodes: map[string]flow.Node{"ask": {ID: "ask", Kind: flow.KindChoice}},
	}

	got := graph.Mermaid(def, &graph.Overlay{CurrentNode: "ask"})
	assert.Contains(t, got, "classDef current")
	assert.Contains(t, got, "class ask current;")
}

func TestMermaidIsDeterministic(t *testing.T) {
	def := &flow.Definition{
		ID: "f",
		Nodes: map[string]flow.Node{
			"c": {ID: "c", Kind: flow.KindTerminal},
			"a": {ID: "a", Kind: flow.KindPrompt},
			"b": {ID: "b", Kind: flow.KindPrompt},
		},
	}

	assert.Equal(t, graph.Mermaid(def, nil), graph.Mermaid(def, nil))
}
