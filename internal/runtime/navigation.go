package runtime

import "github.com/sendahq/senda/pkg/flow"

// resolveNext evaluates the outgoing transitions of nodeID against choice,
// in declaration order.
//
// A supplied choice matches guarded transitions only; the unconditional edge
// never consumes a choice the graph does not name, so an unexpected choice
// reports no match and the caller re-prompts. Without a choice only the
// unconditional edge qualifies. Terminal nodes have no outgoing transitions
// and therefore never match.
func resolveNext(def *flow.Definition, nodeID, choice string) (string, bool) {
	if choice != "" {
		for _, t := range def.Transitions {
			if t.From == nodeID && t.Guard == choice {
				return t.To, true
			}
		}
		return "", false
	}

	for _, t := range def.Transitions {
		if t.From == nodeID && t.Unconditional() {
			return t.To, true
		}
	}
	return "", false
}
