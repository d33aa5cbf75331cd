package schedule

import "fmt"

// NotSolvableError is returned when the solver proves the roster/session
// combination has no feasible seating at all (spec.md §7, kind 1). It is
// distinct from a Go error wrapping solver internals: callers can type-
// assert on it to distinguish "no schedule exists" from a bug.
type NotSolvableError struct {
	Reason string
}

func (e *NotSolvableError) Error() string {
	return fmt.Sprintf("schedule: problem not solvable: %s", e.Reason)
}
