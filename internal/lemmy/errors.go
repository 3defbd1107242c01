package lemmy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrTransport classifies every failure surfaced by a remote call: network
// errors, non-2xx responses and undecodable bodies.
var ErrTransport = errors.New("transport failure")

// APIError is a non-2xx response from the instance
type APIError struct {
	Status int
	// Code is the instance's error identifier, e.g. "couldnt_create_comment"
	Code string
	Body string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return ErrTransport }

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// IsRetryable reports whether a failed idempotent request may succeed if
// repeated: rate limiting, gateway and availability errors, and network
// timeouts. Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
