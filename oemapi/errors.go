package oemapi

import (
	"fmt"
	"net/http"
)

// RetriableError is a 429 or 5xx answer from the vendor.
type RetriableError struct {
	Status int
	Body   string
}

func (e *RetriableError) Error() string {
	return fmt.Sprintf("OEM API call failed: %d %s", e.Status, http.StatusText(e.Status))
}

// StatusCode returns the HTTP status of the failed call.
func (e *RetriableError) StatusCode() int { return e.Status }

// APIError is a terminal non-2xx answer from the vendor.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OEM API call failed: %d %s", e.Status, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Status }

// TransportError wraps connection failures and timeouts. It is always retriable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("OEM API unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary marks transport failures as retriable.
func (e *TransportError) Temporary() bool { return true }

// DecodeError reports a 2xx answer whose body is not JSON.
type DecodeError struct {
	Path string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("OEM API returned invalid JSON for %s", e.Path)
}
