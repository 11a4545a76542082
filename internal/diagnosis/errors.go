package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies diagnosis API failures.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"
	KindRateLimit    ErrorKind = "rate_limit"
	KindInvalidInput ErrorKind = "invalid_input"
	KindTimeout      ErrorKind = "timeout"
	KindUnknown      ErrorKind = "unknown"
)

// APIError is a classified diagnosis API failure.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("diagnosis: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("diagnosis: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether repeating the call might succeed.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindRateLimit, KindTimeout:
		return true
	}
	return false
}

// classifyTransport maps client-side errors onto the taxonomy.
func classifyTransport(err error) *APIError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &APIError{Kind: KindTimeout, Message: err.Error()}
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &APIError{Kind: KindTimeout, Message: err.Error()}
		}
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}
}

// classifyStatus maps HTTP status codes onto the taxonomy.
func classifyStatus(status int, body string) *APIError {
	kind := KindUnknown
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = KindTimeout
	case status >= 400 && status < 500:
		kind = KindInvalidInput
	case status >= 500:
		kind = KindNetwork
	}
	return &APIError{Kind: kind, Status: status, Message: body}
}
