package llm

import "fmt"

// UnavailableError means the oracle could not be reached or failed to answer:
// network failure, timeout, provider error, empty response.
type UnavailableError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle unavailable (%s): %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("oracle unavailable (%s): %s", e.Provider, e.Message)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// MalformedError means the oracle answered but no usable payload of the
// expected shape could be recovered from the text.
type MalformedError struct {
	Payload string
	Message string
	Cause   error
}

func (e *MalformedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Payload, e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed %s payload: %s", e.Payload, e.Message)
}

func (e *MalformedError) Unwrap() error {
	return e.Cause
}

// APIError carries a non-2xx HTTP answer from an OpenAI-compatible endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}
