// Package loader reads workflow definitions from YAML documents.
//
// Documents are decoded in two steps: yaml.v3 into a generic map, then
// mapstructure with weak typing into the document shape, so scalar-ish
// values (numbers, booleans) coerce into the string fields the engine
// expects instead of failing the decode.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/sendahq/senda/pkg/flow"
)

type docDefinition struct {
	ID          string          `mapstructure:"id"`
	Name        string          `mapstructure:"name"`
	Start       string          `mapstructure:"start"`
	Starts      []string        `mapstructure:"starts"`
	Nodes       []docNode       `mapstructure:"nodes"`
	Transitions []docTransition `mapstructure:"transitions"`
}

type docNode struct {
	ID      string      `mapstructure:"id"`
	Kind    string      `mapstructure:"kind"`
	Type    string      `mapstructure:"type"` // accepted alias for kind
	Text    string      `mapstructure:"text"`
	Action  string      `mapstructure:"action"`
	Choices []docChoice `mapstructure:"choices"`

	// Sugar: next declares the unconditional edge, routes the guarded ones.
	Next   string     `mapstructure:"next"`
	Routes []docRoute `mapstructure:"routes"`
}

type docChoice struct {
	Label string `mapstructure:"label"`
	Value string `mapstructure:"value"`
}

type docRoute struct {
	When string `mapstructure:"when"`
	To   string `mapstructure:"to"`
}

type docTransition struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	When string `mapstructure:"when"`
}

// Load parses one YAML document into a validated definition.
func Load(data []byte) (*flow.Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loader: parse yaml: %w", err)
	}

	var doc docDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("loader: build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("loader: decode definition: %w", err)
	}

	return build(doc)
}

// LoadFile parses the YAML file at path.
func LoadFile(path string) (*flow.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	def, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadDir parses every *.yaml and *.yml file in dir, in name order.
func LoadDir(dir string) ([]*flow.Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: read dir %s: %w", dir, err)
	}

	var defs []*flow.Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		def, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func build(doc docDefinition) (*flow.Definition, error) {
	def := &flow.Definition{
		ID:   doc.ID,
		Name: doc.Name,
	}

	if doc.Start != "" {
		def.Starts = append(def.Starts, doc.Start)
	}
	def.Starts = append(def.Starts, doc.Starts...)

	// Transitions first: kind inference below needs to know which nodes have
	// outgoing edges. Node sugar precedes the explicit list.
	for _, n := range doc.Nodes {
		if n.Next != "" {
			def.Transitions = append(def.Transitions, flow.Transition{From: n.ID, To: n.Next})
		}
		for _, r := range n.Routes {
			def.Transitions = append(def.Transitions, flow.Transition{From: n.ID, To: r.To, Guard: r.When})
		}
	}
	for _, t := range doc.Transitions {
		def.Transitions = append(def.Transitions, flow.Transition{From: t.From, To: t.To, Guard: t.When})
	}

	outgoing := make(map[string]bool, len(def.Transitions))
	for _, t := range def.Transitions {
		outgoing[t.From] = true
	}

	def.Nodes = make(map[string]flow.Node, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if _, dup := def.Nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", flow.ErrInvalidDefinition, n.ID)
		}
		node := flow.Node{
			ID:     n.ID,
			Kind:   kindOf(n, outgoing[n.ID]),
			Text:   n.Text,
			Action: n.Action,
		}
		for _, c := range n.Choices {
			node.Choices = append(node.Choices, flow.Choice{Label: c.Label, Value: c.Value})
		}
		def.Nodes[n.ID] = node
	}

	if err := flow.Validate(def); err != nil {
		return nil, err
	}
	return def, nil
}

// kindOf resolves a node's kind: the explicit declaration wins, otherwise
// the shape decides. Choices make a choice node, an action makes an action
// node, an outgoing edge makes a prompt, and a dead end is terminal.
func kindOf(n docNode, hasOutgoing bool) flow.Kind {
	declared := n.Kind
	if declared == "" {
		declared = n.Type
	}
	if declared != "" {
		return flow.Kind(declared)
	}

	switch {
	case len(n.Choices) > 0:
		return flow.KindChoice
	case n.Action != "":
		return flow.KindAction
	case hasOutgoing:
		return flow.KindPrompt
	default:
		return flow.KindTerminal
	}
}
