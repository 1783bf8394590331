package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FindOne when no document matches.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateID is returned by InsertOne when the id is already taken.
var ErrDuplicateID = errors.New("duplicate document id")

// UnavailableError wraps a backend failure. It is fatal to the current pipeline
// invocation and is never retried by the store.
type UnavailableError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable during %s: %v", e.Backend, e.Op, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
