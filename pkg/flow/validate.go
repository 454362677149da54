package flow

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks the referential invariants of a definition: every
// transition endpoint and start point must name an existing node, every node
// must be reachable from a start point, guarded edges must be unambiguous per
// source node, action names appear exactly on action nodes, and terminal
// nodes must be sinks. All problems are collected so a malformed graph is
// reported in one pass.
func Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	var problems []string
	if def.ID == "" {
		problems = append(problems, "definition id is empty")
	}
	if len(def.Nodes) == 0 {
		problems = append(problems, "definition has no nodes")
	}
	if len(def.Starts) == 0 {
		problems = append(problems, "definition has no start points")
	}

	// Stable iteration keeps error output deterministic.
	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := def.Nodes[id]
		if n.ID != "" && n.ID != id {
			problems = append(problems, fmt.Sprintf("node %q declares mismatching id %q", id, n.ID))
		}
		if !n.Kind.Valid() {
			problems = append(problems, fmt.Sprintf("node %q has unknown kind %q", id, n.Kind))
		}
		if n.Kind == KindAction && n.Action == "" {
			problems = append(problems, fmt.Sprintf("action node %q names no handler", id))
		}
		if n.Kind != KindAction && n.Action != "" {
			problems = append(problems, fmt.Sprintf("node %q is not an action node but names handler %q", id, n.Action))
		}
	}

	for _, start := range def.Starts {
		if _, ok := def.Nodes[start]; !ok {
			problems = append(problems, fmt.Sprintf("start point %q is not a node", start))
		}
	}

	defaults := make(map[string]int)
	guards := make(map[string]map[string]bool)
	for i, t := range def.Transitions {
		if _, ok := def.Nodes[t.From]; !ok {
			problems = append(problems, fmt.Sprintf("transition %d leaves unknown node %q", i, t.From))
		} else if def.Nodes[t.From].Kind == KindTerminal {
			problems = append(problems, fmt.Sprintf("terminal node %q has an outgoing transition", t.From))
		}
		if _, ok := def.Nodes[t.To]; !ok {
			problems = append(problems, fmt.Sprintf("transition %d targets unknown node %q", i, t.To))
		}
		if t.Unconditional() {
			defaults[t.From]++
			if defaults[t.From] == 2 {
				problems = append(problems, fmt.Sprintf("node %q has more than one unconditional transition", t.From))
			}
			continue
		}
		if guards[t.From] == nil {
			guards[t.From] = make(map[string]bool)
		}
		if guards[t.From][t.Guard] {
			problems = append(problems, fmt.Sprintf("node %q has duplicate guard %q", t.From, t.Guard))
		}
		guards[t.From][t.Guard] = true
	}

	// Crawl from every start point. An unreachable node is almost always a
	// typo in a transition endpoint.
	if len(def.Starts) > 0 {
		reached := make(map[string]bool)
		queue := append([]string(nil), def.Starts...)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if reached[id] {
				continue
			}
			reached[id] = true
			for _, t := range def.Transitions {
				if t.From == id && !reached[t.To] {
					queue = append(queue, t.To)
				}
			}
		}
		for _, id := range ids {
			if !reached[id] {
				problems = append(problems, fmt.Sprintf("node %q is unreachable from any start point", id))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}
	return nil
}
