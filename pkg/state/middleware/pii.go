package middleware

import (
	"context"
	"regexp"

	"github.com/sendahq/senda/pkg/state"
)

// Mask is what a matched value is replaced with before persistence.
const Mask = "***"

type piiStore struct {
	next     state.Store
	patterns []*regexp.Regexp
}

// NewPIIMask creates a middleware that replaces the values of variables
// whose key matches any of the patterns. Patterns are matched against the
// normalized (lower-cased) key. Masking happens on write, so the sensitive
// value never reaches the underlying store.
func NewPIIMask(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next state.Store) state.Store {
		return &piiStore{next: next, patterns: patterns}
	}
}

func (s *piiStore) CurrentNode(ctx context.Context, flowID, fallback string) (string, error) {
	return s.next.CurrentNode(ctx, flowID, fallback)
}

func (s *piiStore) SetCurrentNode(ctx context.Context, flowID, nodeID string) error {
	return s.next.SetCurrentNode(ctx, flowID, nodeID)
}

func (s *piiStore) Variable(ctx context.Context, flowID, key string) (string, bool, error) {
	return s.next.Variable(ctx, flowID, key)
}

func (s *piiStore) SetVariable(ctx context.Context, flowID, key, value string) error {
	if s.matches(key) {
		value = Mask
	}
	return s.next.SetVariable(ctx, flowID, key, value)
}

func (s *piiStore) SetVariables(ctx context.Context, flowID string, vars map[string]string) error {
	if len(vars) == 0 {
		return s.next.SetVariables(ctx, flowID, vars)
	}
	// Copy before masking so the caller's map is never mutated.
	masked := make(map[string]string, len(vars))
	for k, v := range vars {
		if s.matches(k) {
			v = Mask
		}
		masked[k] = v
	}
	return s.next.SetVariables(ctx, flowID, masked)
}

func (s *piiStore) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	return s.next.Variables(ctx, flowID)
}

func (s *piiStore) Remove(ctx context.Context, flowID string) error {
	return s.next.Remove(ctx, flowID)
}

func (s *piiStore) matches(key string) bool {
	normalized := state.Key(key)
	for _, p := range s.patterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}
