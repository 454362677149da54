// Package graph renders workflow definitions as Mermaid flowcharts.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sendahq/senda/pkg/flow"
)

// Overlay marks dynamic instance state on the rendered graph.
type Overlay struct {
	CurrentNode string
}

// Mermaid produces a flowchart for the definition. Shapes follow node kind:
// entry nodes render as circles, actions as subroutines, choices as
// parallelograms, terminals as stadiums, prompts as rectangles. Node order is
// sorted so output is stable across runs.
func Mermaid(def *flow.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	starts := make(map[string]bool, len(def.Starts))
	for _, id := range def.Starts {
		starts[id] = true
	}

	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := def.Nodes[id]
		safeID := sanitizeID(id)

		opener, closer := "[", "]"
		switch {
		case starts[id]:
			opener, closer = "((", "))"
		case node.Kind == flow.KindAction:
			opener, closer = "[[", "]]"
		case node.Kind == flow.KindChoice:
			opener, closer = "[/", "/]"
		case node.Kind == flow.KindTerminal:
			opener, closer = "([", "])"
		}

		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, id, closer))
	}

	for _, t := range def.Transitions {
		arrow := "-->"
		if t.Guard != "" {
			// Mermaid labels cannot carry double quotes.
			safeGuard := strings.ReplaceAll(t.Guard, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", safeGuard)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeID(t.From), arrow, sanitizeID(t.To)))
	}

	if overlay != nil && overlay.CurrentNode != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(overlay.CurrentNode)))
	}

	return sb.String()
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
