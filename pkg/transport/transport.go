// Package transport opens the byte stream a request is sent over: direct to
// the target, or to a forward proxy, upgraded to TLS when the resolved
// endpoint requires it.
package transport

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/timing"
	"github.com/wirehttp/go-wirehttp/pkg/tlsconfig"
)

// Proxy describes a forward HTTP proxy.
type Proxy struct {
	Host     string
	Port     int
	SSL      bool // speak TLS to the proxy itself
	Username string
	Password string
}

// Config holds everything the connector needs to open one connection.
type Config struct {
	Scheme      string
	Host        string
	Port        int // 0 means scheme default (443 for https, 80 otherwise)
	Proxy       *Proxy
	ConnTimeout time.Duration
	TLS         tlsconfig.Options
}

// Endpoint is the resolved (server, port) pair a connection is opened to.
type Endpoint struct {
	Host   string
	Port   int
	Secure bool
}

// DefaultPort returns the default port for a URL scheme.
func DefaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// Resolve determines the effective endpoint: the proxy when one is
// configured, otherwise the target derived from the URL. The stream is
// secure when the resolved port is 443 or the proxy requires SSL.
func Resolve(cfg Config) Endpoint {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort(cfg.Scheme)
	}

	ep := Endpoint{Host: cfg.Host, Port: port}
	if cfg.Proxy != nil {
		ep.Host = cfg.Proxy.Host
		ep.Port = cfg.Proxy.Port
		ep.Secure = cfg.Proxy.Port == 443 || cfg.Proxy.SSL
		return ep
	}
	ep.Secure = port == 443
	return ep
}

// Transport opens connections. One connection serves exactly one request and
// is closed by the caller when the request completes or fails.
type Transport struct {
	dialer *net.Dialer
}

// New creates a Transport.
func New() *Transport {
	return &Transport{dialer: &net.Dialer{}}
}

// Connect resolves the endpoint for cfg and opens the byte stream, upgrading
// to TLS when the endpoint is secure. All failures, TLS handshake included,
// are connection failures.
func (t *Transport) Connect(ctx context.Context, cfg Config, timer *timing.Timer) (net.Conn, Endpoint, error) {
	ep := Resolve(cfg)
	if err := validate(cfg, ep); err != nil {
		return nil, ep, err
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	conn, err := t.dial(ctx, ep, timeout, timer)
	if err != nil {
		return nil, ep, errors.NewConnectionError(ep.Host, ep.Port, err)
	}

	if ep.Secure {
		conn, err = t.upgradeTLS(ctx, conn, cfg, ep, timeout, timer)
		if err != nil {
			return nil, ep, errors.NewConnectionError(ep.Host, ep.Port, err)
		}
	}

	return conn, ep, nil
}

func validate(cfg Config, ep Endpoint) error {
	if ep.Host == "" {
		return errors.NewValidationError("host cannot be empty")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535")
	}
	if cfg.Scheme != "http" && cfg.Scheme != "https" {
		return errors.NewValidationError("scheme must be http or https")
	}
	return nil
}

func (t *Transport) dial(ctx context.Context, ep Endpoint, timeout time.Duration, timer *timing.Timer) (net.Conn, error) {
	timer.StartTCP()
	defer timer.EndTCP()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
	return t.dialer.DialContext(dialCtx, "tcp", addr)
}

func (t *Transport) upgradeTLS(ctx context.Context, conn net.Conn, cfg Config, ep Endpoint, timeout time.Duration, timer *timing.Timer) (net.Conn, error) {
	timer.StartTLS()
	defer timer.EndTLS()

	tlsCfg, err := tlsconfig.Build(cfg.TLS, ep.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	tlsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.HandshakeContext(tlsCtx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
