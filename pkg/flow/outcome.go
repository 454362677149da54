package flow

import "fmt"

// Well-known outcome statuses. Status is free-form by contract; handlers may
// report anything (e.g. "permission_denied"), but the engine and executor
// emit these.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Reserved variable keys written by the engine after an action runs.
const (
	// VarStatus holds the last action outcome status, so downstream nodes
	// and renderers can branch on it.
	VarStatus = "status"
	// VarError holds the failure detail when the executor converts an
	// error, panic, or unknown handler name into an outcome.
	VarError = "error"
)

// Outcome is the transient result of one action handler invocation: a status
// plus variables to merge into the instance bag. It is consumed by the
// advancement protocol and never persisted on its own.
type Outcome struct {
	Status    string            `json:"status"`
	Variables map[string]string `json:"variables,omitempty"`
}

// OK is a convenience constructor for the common success case.
func OK(vars map[string]string) Outcome {
	return Outcome{Status: StatusOK, Variables: vars}
}

// Errorf builds an error outcome carrying the formatted message under
// VarError.
func Errorf(format string, args ...any) Outcome {
	return Outcome{
		Status:    StatusError,
		Variables: map[string]string{VarError: fmt.Sprintf(format, args...)},
	}
}
