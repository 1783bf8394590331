package llm

import (
	"context"
	"errors"
	"time"
)

type timeoutClient struct {
	Client
	timeout time.Duration
}

// WithTimeout bounds every GenerateContent call on client by d. A deadline hit is
// reported as UnavailableError. d <= 0 uses DefaultTimeout.
func WithTimeout(client Client, d time.Duration) Client {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutClient{Client: client, timeout: d}
}

func (c *timeoutClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.Client.GenerateContent(ctx, prompt, opts)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			return "", &UnavailableError{Message: "timed out after " + c.timeout.String(), Cause: err}
		}
	}
	return text, err
}
