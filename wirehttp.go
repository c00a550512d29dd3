// Package wirehttp is an outbound HTTP/1.x transport engine for carrying
// JSON-RPC payloads over raw sockets. It frames requests, parses responses
// and decodes bodies at the byte level, giving callers the exact wire bytes,
// one wall-clock timeout per send, and size-bounded reads that opaque HTTP
// clients hide. Every request opens and closes its own connection.
package wirehttp

import (
	"context"
	"time"

	"github.com/wirehttp/go-wirehttp/pkg/body"
	"github.com/wirehttp/go-wirehttp/pkg/client"
	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/trace"
)

// Version is the current version of the wirehttp library.
const Version = "1.0.0"

// GetVersion returns the current version of the library.
func GetVersion() string {
	return Version
}

// Re-export key types for easier usage.
type (
	// Options controls client-instance defaults.
	Options = client.Options

	// Request describes one send.
	Request = client.Request

	// Response represents a parsed HTTP response.
	Response = client.Response

	// Credentials carries a basic-auth user/password pair.
	Credentials = client.Credentials

	// Form is a structured POST payload.
	Form = body.Form

	// Error is the structured error returned on every failure path.
	Error = errors.Error

	// TraceRecord is one observational trace event.
	TraceRecord = trace.Record

	// TraceSink receives trace events.
	TraceSink = trace.Sink
)

// Re-export error kinds for convenience.
const (
	ErrKindConnection     = errors.KindConnection
	ErrKindResponse       = errors.KindResponse
	ErrKindAuthentication = errors.KindAuthentication
	ErrKindAccessDenied   = errors.KindAccessDenied
	ErrKindNotFound       = errors.KindNotFound
	ErrKindServerError    = errors.KindServerError
	ErrKindHTTP           = errors.KindHTTP
	ErrKindValidation     = errors.KindValidation
)

// Client performs raw HTTP/1.x sends with an instance-scoped cookie jar.
type Client = client.Client

// New returns a Client with the given options.
func New(opts Options) *Client {
	return client.New(opts)
}

// Perform is a one-shot convenience: it creates a throwaway client and
// executes a single request. The cookie jar dies with the call, which also
// makes Perform safe for concurrent use.
func Perform(ctx context.Context, req Request, opts Options) (*Response, error) {
	return client.New(opts).Do(ctx, req)
}

// ParseProxyURL parses a forward-proxy URL for Options.Proxy.
var ParseProxyURL = client.ParseProxyURL

// IsTimeout checks whether an error is a timeout.
func IsTimeout(err error) bool {
	return errors.IsTimeout(err)
}

// IsConnectionFailure checks whether an error is a connection failure.
func IsConnectionFailure(err error) bool {
	return errors.IsConnectionFailure(err)
}

// ErrorKind returns the kind of a structured error, or "".
func ErrorKind(err error) string {
	return string(errors.KindOf(err))
}

// StatusCode returns the HTTP status carried by a status-driven error, or 0.
func StatusCode(err error) int {
	return errors.StatusCodeOf(err)
}

// DefaultOptions returns options suitable for common use cases.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		ConnTimeout:  10 * time.Second,
		MaxRedirects: 10,
	}
}
