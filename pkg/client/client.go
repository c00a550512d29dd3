package client

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/header"
	"github.com/wirehttp/go-wirehttp/pkg/timing"
	"github.com/wirehttp/go-wirehttp/pkg/tlsconfig"
	"github.com/wirehttp/go-wirehttp/pkg/trace"
	"github.com/wirehttp/go-wirehttp/pkg/transport"
)

// Options holds client-instance defaults. Per-request values on Request
// override the zero-valued fields.
type Options struct {
	UserAgent string

	// Timeout is the default wall-clock budget per send.
	Timeout time.Duration

	// ConnTimeout bounds connection establishment within the send budget.
	ConnTimeout time.Duration

	MaxRedirects    int
	MaxBodySize     int64
	AbortOnOversize bool

	// Proxy relays every request through a forward HTTP proxy.
	Proxy *transport.Proxy

	// Credentials is the default basic-auth pair.
	Credentials *Credentials

	TLS tlsconfig.Options

	// Trace receives observational records; nil means none.
	Trace trace.Sink

	// DumpSent and DumpReceived mirror the exact bytes written to and read
	// from the connection. Best effort, never required for correctness.
	DumpSent     io.Writer
	DumpReceived io.Writer
}

// Client is the protocol engine. The cookie jar is instance-scoped and
// mutated by every response; everything else about a send is call-scoped.
// Concurrent sends on one Client share the jar but nothing else.
type Client struct {
	opts      Options
	jar       *header.Jar
	transport *transport.Transport
}

// New returns a Client with the given options.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConnTimeout <= 0 {
		opts.ConnTimeout = DefaultConnTimeout
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.MaxBodySize == 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	return &Client{
		opts:      opts,
		jar:       header.NewJar(),
		transport: transport.New(),
	}
}

// Jar exposes the instance cookie jar.
func (c *Client) Jar() *header.Jar {
	return c.jar
}

// Do performs one send: connect, write, read, follow 301/302 redirects up
// to the configured bound, then map the final status. The returned Response
// carries whatever was read even when err is non-nil.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}
	tgt, err := parseTarget(req.URL)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	maxRedirects := req.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = c.opts.MaxRedirects
	}
	if maxRedirects < 0 {
		maxRedirects = 0
	}
	maxBody := req.MaxBodySize
	if maxBody == 0 {
		maxBody = c.opts.MaxBodySize
	}
	if maxBody < 0 {
		maxBody = 0
	}
	creds := req.Credentials
	if creds == nil {
		creds = c.opts.Credentials
	}

	payload, contentType, err := encodePayload(&req, method)
	if err != nil {
		return nil, err
	}

	timer := timing.NewTimer()
	deadline := timer.Start().Add(timeout)

	// Redirect chain as an explicit bounded loop. The hop counter is local
	// to this call, so it can never leak into a later send regardless of
	// how this one ends.
	referer := ""
	redirects := 0
	var resp *Response
	for {
		resp, err = c.roundTrip(ctx, hop{
			method:      method,
			tgt:         tgt,
			headers:     req.Headers,
			payload:     payload,
			contentType: contentType,
			creds:       creds,
			referer:     referer,
			deadline:    deadline,
			timeout:     timeout,
			maxBody:     maxBody,
		}, timer)
		if resp != nil {
			resp.Redirects = redirects
			resp.FinalURL = tgt.String()
			resp.Elapsed = timer.Elapsed()
			resp.Timings = timer.GetMetrics()
		}
		if err != nil {
			return resp, err
		}

		if resp.StatusCode != 301 && resp.StatusCode != 302 {
			break
		}
		if redirects >= maxRedirects {
			return resp, errors.NewResponseError("maximum redirect count exceeded", nil)
		}

		next, err := resolveLocation(tgt, resp.Headers.Get("location"))
		if err != nil {
			return resp, err
		}
		redirects++
		referer = tgt.String()
		tgt = next

		// Redirects are re-issued as GET regardless of the original method.
		method = "GET"
		payload, contentType = nil, ""

		trace.Emit(c.opts.Trace, trace.LevelInfo, "redirect %d/%d to %s", redirects, maxRedirects, tgt.String())
	}

	if statusErr := errors.NewStatusError(resp.StatusCode, resp.StatusLine); statusErr != nil {
		return resp, statusErr
	}
	return resp, nil
}

// hop is the state of one request/response exchange within a send.
type hop struct {
	method      string
	tgt         target
	headers     *header.Header
	payload     []byte
	contentType string
	creds       *Credentials
	referer     string
	deadline    time.Time
	timeout     time.Duration
	maxBody     int64
}

// roundTrip opens a connection, writes the request and reads the response.
// The connection is closed on every exit path.
func (c *Client) roundTrip(ctx context.Context, h hop, timer *timing.Timer) (*Response, error) {
	connTimeout := c.opts.ConnTimeout
	if remaining := time.Until(h.deadline); remaining < connTimeout {
		connTimeout = remaining
	}
	if connTimeout <= 0 {
		return nil, errors.NewTimeoutError("timeout waiting for response headers", h.timeout)
	}

	conn, ep, err := c.transport.Connect(ctx, transport.Config{
		Scheme:      h.tgt.scheme,
		Host:        h.tgt.host,
		Port:        h.tgt.port,
		Proxy:       c.opts.Proxy,
		ConnTimeout: connTimeout,
		TLS:         c.opts.TLS,
	}, timer)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	trace.Emit(c.opts.Trace, trace.LevelDebug, "connected to %s:%d (secure=%t)", ep.Host, ep.Port, ep.Secure)

	wire := &wireRequest{
		method:      h.method,
		tgt:         h.tgt,
		headers:     h.headers,
		payload:     h.payload,
		contentType: h.contentType,
		cookieLine:  c.jar.CookieLine(),
		referer:     h.referer,
		userAgent:   c.opts.UserAgent,
		creds:       h.creds,
		proxy:       c.opts.Proxy,
	}
	data, err := wire.build()
	if err != nil {
		return nil, err
	}
	if err := write(conn, data, ep, c.opts.DumpSent); err != nil {
		return nil, err
	}
	trace.Emit(c.opts.Trace, trace.LevelDebug, "%s %s: wrote %d bytes", h.method, h.tgt.String(), len(data))

	r := newReader(conn, h.deadline, h.timeout, c.opts.DumpReceived, c.opts.Trace)
	resp := &Response{Headers: header.New()}

	timer.StartTTFB()
	err = r.readHeaders(resp, h.maxBody, c.opts.AbortOnOversize)
	timer.EndTTFB()
	if err != nil {
		return resp, err
	}
	trace.Emit(c.opts.Trace, trace.LevelInfo, "status %d from %s", resp.StatusCode, h.tgt.String())

	if err := r.readBody(resp, h.maxBody, c.opts.AbortOnOversize); err != nil {
		return resp, err
	}

	c.jar.UpdateFrom(resp.Headers)
	return resp, nil
}

func normalizeMethod(method string) (string, error) {
	switch method {
	case "", "GET", "get":
		return "GET", nil
	case "POST", "post":
		return "POST", nil
	default:
		return "", errors.NewValidationError("unsupported method " + strconv.Quote(method))
	}
}
