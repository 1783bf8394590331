package pipeline

import (
	"errors"
	"fmt"

	"github.com/jonathan/taskmatch/internal/types"
)

// ErrConcurrentTransition is returned when a conditional status update finds
// the document already moved on by another invocation.
var ErrConcurrentTransition = errors.New("document changed state concurrently")

// InputError reports an intake request that cannot be processed.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// TransitionError reports a requisition status change that is not allowed.
type TransitionError struct {
	RequisitionID string
	From          types.RequisitionStatus
	To            types.RequisitionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("requisition %s cannot move from %s to %s", e.RequisitionID, e.From, e.To)
}
