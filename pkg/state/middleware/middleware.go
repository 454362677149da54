// Package middleware provides state.Store decorators: encryption of variable
// values at rest and masking of PII before it is persisted. Decorators are
// transparent to the engine; they compose with any store adapter.
package middleware

import "github.com/sendahq/senda/pkg/state"

// Middleware wraps a state.Store to add behavior.
type Middleware func(state.Store) state.Store

// Chain applies mws to store in order, so the last middleware is the
// outermost: Chain(s, a, b) returns b(a(s)) and a call passes through b
// first. Masking must therefore come after encryption in the argument list
// to act on plaintext.
func Chain(store state.Store, mws ...Middleware) state.Store {
	for _, mw := range mws {
		store = mw(store)
	}
	return store
}
