/*
Package state defines the driven port for per-workflow instance state.

Instance state is the mutable half of a running workflow: the current node
pointer plus a string-keyed variable bag. The Store interface decouples the
engine from the storage backend; adapters exist for process memory, redis,
and postgres. Every implementation must satisfy the atomicity contract
exercised by the statetest suite, in particular atomic get-or-initialize on
first access (never check-then-insert).

Variable keys are case-insensitive: implementations normalize through Key.
*/
package state
