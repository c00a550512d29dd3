// Package timing provides performance measurement for engine requests.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures phase timing for one request, redirects included.
type Metrics struct {
	// TCPConnect is the time spent establishing the TCP connection.
	TCPConnect time.Duration `json:"tcp_connect"`

	// TLSHandshake is the time spent in the TLS handshake (0 for plain HTTP).
	TLSHandshake time.Duration `json:"tls_handshake"`

	// TTFB is the time between the request write completing and the first
	// status-line byte arriving.
	TTFB time.Duration `json:"ttfb"`

	// Total is the end-to-end time of the send, redirect hops included.
	Total time.Duration `json:"total"`
}

// Timer marks phase boundaries during a send.
type Timer struct {
	start     time.Time
	tcpStart  time.Time
	tcpEnd    time.Time
	tlsStart  time.Time
	tlsEnd    time.Time
	ttfbStart time.Time
	ttfbEnd   time.Time
}

// NewTimer starts a new measurement session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Start returns the instant the session began.
func (t *Timer) Start() time.Time {
	return t.start
}

// Elapsed returns the wall-clock time since the session began.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// StartTCP marks the beginning of the TCP connect.
func (t *Timer) StartTCP() { t.tcpStart = time.Now() }

// EndTCP marks the end of the TCP connect.
func (t *Timer) EndTCP() { t.tcpEnd = time.Now() }

// StartTLS marks the beginning of the TLS handshake.
func (t *Timer) StartTLS() { t.tlsStart = time.Now() }

// EndTLS marks the end of the TLS handshake.
func (t *Timer) EndTLS() { t.tlsEnd = time.Now() }

// StartTTFB marks when the engine starts waiting for the status line.
func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }

// EndTTFB marks when the first status-line byte arrived.
func (t *Timer) EndTTFB() { t.ttfbEnd = time.Now() }

// GetMetrics returns the metrics collected so far.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{Total: time.Since(t.start)}

	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}
	return m
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("TCPConnect: %v, TLSHandshake: %v, TTFB: %v, Total: %v",
		m.TCPConnect, m.TLSHandshake, m.TTFB, m.Total)
}
