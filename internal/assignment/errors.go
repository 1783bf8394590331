package assignment

import "fmt"

// TransitionError reports a move the state machine does not allow.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal assignment transition %s -> %s", e.From, e.To)
}
