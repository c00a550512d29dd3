// Package errors provides structured error types for the wirehttp engine.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Kind represents the category of failure that occurred.
type Kind string

const (
	// KindConnection represents failures opening or writing to the socket.
	KindConnection Kind = "connection"
	// KindResponse represents malformed, truncated, oversized or timed-out responses.
	KindResponse Kind = "response"
	// KindAuthentication represents HTTP 401 responses.
	KindAuthentication Kind = "authentication"
	// KindAccessDenied represents HTTP 403 responses.
	KindAccessDenied Kind = "access_denied"
	// KindNotFound represents HTTP 404 responses.
	KindNotFound Kind = "not_found"
	// KindServerError represents HTTP 500 responses.
	KindServerError Kind = "server_error"
	// KindHTTP represents any other non-success HTTP status.
	KindHTTP Kind = "http"
	// KindValidation represents invalid request parameters caught before I/O.
	KindValidation Kind = "validation"
)

// Error is the structured error carried by every failure path of the engine.
type Error struct {
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	Cause      error     `json:"cause,omitempty"`
	Host       string    `json:"host,omitempty"`
	Port       int       `json:"port,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Timeout    bool      `json:"timeout,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// NewConnectionError creates a connection failure error.
func NewConnectionError(host string, port int, cause error) *Error {
	return &Error{
		Kind:      KindConnection,
		Message:   fmt.Sprintf("failed to connect to %s:%d", host, port),
		Cause:     cause,
		Host:      host,
		Port:      port,
		Timestamp: time.Now(),
	}
}

// NewWriteError creates a connection failure error for a failed request write.
func NewWriteError(host string, port int, cause error) *Error {
	return &Error{
		Kind:      KindConnection,
		Message:   fmt.Sprintf("failed to write request to %s:%d", host, port),
		Cause:     cause,
		Host:      host,
		Port:      port,
		Timestamp: time.Now(),
	}
}

// NewResponseError creates a response error.
func NewResponseError(message string, cause error) *Error {
	return &Error{
		Kind:      KindResponse,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewTimeoutError creates a response error flagged as a timeout.
func NewTimeoutError(message string, timeout time.Duration) *Error {
	return &Error{
		Kind:      KindResponse,
		Message:   fmt.Sprintf("%s after %v", message, timeout),
		Timeout:   true,
		Timestamp: time.Now(),
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Kind:      KindValidation,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewStatusError creates the status-driven error for an HTTP status code.
// Codes in the 2xx and 3xx ranges produce nil.
func NewStatusError(code int, statusLine string) *Error {
	if code >= 200 && code < 400 {
		return nil
	}

	e := &Error{
		StatusCode: code,
		Timestamp:  time.Now(),
	}

	switch code {
	case 401:
		e.Kind = KindAuthentication
		e.Message = "authentication failed"
	case 403:
		e.Kind = KindAccessDenied
		e.Message = "access denied"
	case 404:
		e.Kind = KindNotFound
		e.Message = "not found"
	case 500:
		e.Kind = KindServerError
		e.Message = "server error"
	default:
		e.Kind = KindHTTP
		e.Message = statusLine
	}
	return e
}

// IsTimeout reports whether the error is a timeout.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Timeout {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsConnectionFailure reports whether the error is a connection failure.
func IsConnectionFailure(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnection
}

// KindOf returns the kind of a structured error, or the empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCodeOf returns the HTTP status carried by a status-driven error, or 0.
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
