package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned for 403 responses that survive the pipeline,
	// i.e. the retry was already spent or no refresh token existed.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the backend, carrying the status code
// and the message from the {success, message} envelope when one was present.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Message is the backend's envelope message, or the raw body when the
	// response was not a decodable envelope.
	Message string
	// RequestID is the correlation ID the request carried, for log matching.
	RequestID string
}

// Error returns a human-readable description of the API failure.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: server returned %d", e.Status)
}

// Is supports errors.Is against the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// IsConnectionError reports whether err is a transport-level failure (DNS,
// connection refused, TLS, timeout) rather than an HTTP-level response.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}
