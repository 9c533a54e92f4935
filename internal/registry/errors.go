package registry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"worldip/internal/services"
)

// APIError is a request the backend answered with a non-2xx status or a
// success:false body.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("registry %s %s: %s", e.Method, e.Path, msg)
	}
	return fmt.Sprintf("registry %s %s: http %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Unwrap lets errors.Is match the services marker for this failure.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return services.ErrNotFound
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusGatewayTimeout:
		return services.ErrTimeout
	default:
		return services.ErrRemote
	}
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsNotFound reports whether err is a registry 404.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
