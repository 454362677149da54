package flow

import "errors"

// ErrUnknownFlow is returned when a workflow id has no registered definition.
var ErrUnknownFlow = errors.New("workflow not registered")

// ErrUnknownNode is returned when stored instance state points at a node that
// does not exist in the current definition.
var ErrUnknownNode = errors.New("node not found in definition")

// ErrInvalidDefinition is returned when a definition violates the graph
// invariants (dangling references, duplicate guards, misplaced actions).
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// ErrInvalidInput is returned for caller programming errors such as an empty
// workflow id or variable key.
var ErrInvalidInput = errors.New("invalid input")
