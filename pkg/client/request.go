// Package client implements the HTTP/1.x request/response protocol engine.
package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wirehttp/go-wirehttp/pkg/body"
	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/header"
	"github.com/wirehttp/go-wirehttp/pkg/timing"
	"github.com/wirehttp/go-wirehttp/pkg/transport"
)

// Credentials carries a basic-auth user/password pair.
type Credentials struct {
	Username string
	Password string
}

// Request describes one send. Zero-valued knobs fall back to the client
// Options. The value is not mutated by the engine; redirect hops derive new
// internal state instead.
type Request struct {
	// Method is GET or POST.
	Method string

	// URL is the absolute target URL.
	URL string

	// Headers are caller-supplied headers, emitted in insertion order.
	Headers *header.Header

	// Body is the raw POST payload (for example a serialized JSON-RPC
	// envelope). Ignored for GET. Mutually exclusive with Form.
	Body []byte

	// ContentType labels Body. Empty means application/json.
	ContentType string

	// Form is a structured POST payload, URL-encoded by default.
	Form *body.Form

	// Multipart selects multipart/form-data encoding for Form.
	Multipart bool

	// Credentials, when set, override the client-level basic-auth pair.
	Credentials *Credentials

	// Timeout is the wall-clock budget for the whole send, redirect chain
	// included. Zero means the client default.
	Timeout time.Duration

	// MaxRedirects bounds the redirect chain. Zero means the client
	// default; negative disables redirect following.
	MaxRedirects int

	// MaxBodySize caps the decoded response body. Zero means the client
	// default; negative means unlimited.
	MaxBodySize int64
}

// Response is the outcome of one send. It is populated incrementally while
// data arrives and is only complete once the body strategy finished; on
// error the caller receives whatever had been read.
type Response struct {
	StatusCode int
	StatusLine string

	// RawHeaders is the received header section verbatim, status line
	// included.
	RawHeaders string

	// Headers is the parsed header mapping: lower-cased names, duplicates
	// merged into ordered sequences.
	Headers *header.Header

	// Body is the decoded body. Truncated reports whether the size policy
	// dropped trailing bytes.
	Body      []byte
	Truncated bool

	// FinalURL is the URL that produced this response after redirects.
	FinalURL string

	// Redirects is the number of hops followed.
	Redirects int

	Elapsed time.Duration
	Timings timing.Metrics
}

// Header returns the first value of a response header, case-insensitively.
func (r *Response) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// IsRedirect reports a 3xx status.
func (r *Response) IsRedirect() bool { return r.StatusCode >= 300 && r.StatusCode < 400 }

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// target is a parsed request URL.
type target struct {
	scheme string
	host   string
	port   int // 0 = scheme default
	path   string
	query  string
}

func parseTarget(rawURL string) (target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return target{}, errors.NewValidationError("invalid URL: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return target{}, errors.NewValidationError("unsupported URL scheme " + strconv.Quote(u.Scheme))
	}
	if u.Hostname() == "" {
		return target{}, errors.NewValidationError("URL has no host")
	}

	t := target{
		scheme: u.Scheme,
		host:   u.Hostname(),
		path:   u.EscapedPath(),
		query:  u.RawQuery,
	}
	if t.path == "" {
		t.path = "/"
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return target{}, errors.NewValidationError("invalid URL port " + strconv.Quote(p))
		}
		t.port = port
	}
	return t, nil
}

// effectivePort is the port a direct connection would use.
func (t target) effectivePort() int {
	if t.port != 0 {
		return t.port
	}
	return transport.DefaultPort(t.scheme)
}

// hostHeader renders the Host header value, omitting scheme-default ports.
func (t target) hostHeader() string {
	if t.port == 0 || t.port == transport.DefaultPort(t.scheme) {
		return t.host
	}
	return t.host + ":" + strconv.Itoa(t.port)
}

// requestURI renders the origin-form request target (path plus query).
func (t target) requestURI() string {
	if t.query == "" {
		return t.path
	}
	return t.path + "?" + t.query
}

// String renders the absolute URL.
func (t target) String() string {
	var sb strings.Builder
	sb.WriteString(t.scheme)
	sb.WriteString("://")
	sb.WriteString(t.host)
	if t.port != 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(t.port))
	}
	sb.WriteString(t.requestURI())
	return sb.String()
}

// resolveLocation resolves a redirect Location against the request that
// produced it: absolute URLs are used unchanged, absolute paths replace the
// path, and relative paths resolve against the original path's directory.
func resolveLocation(t target, location string) (target, error) {
	if location == "" {
		return target{}, errors.NewResponseError("redirect without location header", nil)
	}

	ref, err := url.Parse(location)
	if err != nil {
		return target{}, errors.NewResponseError("invalid redirect location", err)
	}
	if ref.IsAbs() {
		return parseTarget(location)
	}

	base, err := url.Parse(t.String())
	if err != nil {
		return target{}, errors.NewResponseError("invalid redirect base", err)
	}
	return parseTarget(base.ResolveReference(ref).String())
}
