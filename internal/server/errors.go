package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/store"
)

// BadRequestError rejects a request before it reaches a pipeline.
type BadRequestError struct {
	Field  string
	Reason string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %s %s", e.Field, e.Reason)
}

// HTTPStatus maps pipeline and store failures onto response codes.
func HTTPStatus(err error) int {
	var (
		validation *BadRequestError
		input      *pipeline.InputError
		transition *pipeline.TransitionError
		storeDown  *store.UnavailableError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &input):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transition), errors.Is(err, pipeline.ErrConcurrentTransition):
		return http.StatusConflict
	case errors.As(err, &storeDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
