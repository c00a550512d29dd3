// Package buffer provides size-bounded storage for response bodies.
package buffer

import (
	"bytes"
	"errors"
)

// ErrLimitExceeded is returned by Write when the buffer is in abort mode and
// accepting the data would grow it past its limit.
var ErrLimitExceeded = errors.New("body size limit exceeded")

// Buffer accumulates body bytes up to a configurable limit. In abort mode a
// write that would exceed the limit fails; otherwise the write is truncated
// to fit and the buffer is marked truncated.
type Buffer struct {
	buf       bytes.Buffer
	limit     int64
	abort     bool
	truncated bool
}

// New creates a Buffer with the given limit and overflow policy.
// A limit <= 0 means unlimited.
func New(limit int64, abortOnExceed bool) *Buffer {
	return &Buffer{limit: limit, abort: abortOnExceed}
}

// Write stores p, applying the size policy. In truncate mode it reports the
// full length of p as written even when only a prefix was kept, so callers
// can treat a capped body as a successful read.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.truncated {
		return len(p), nil
	}
	if b.limit <= 0 {
		return b.buf.Write(p)
	}

	room := b.limit - int64(b.buf.Len())
	if int64(len(p)) <= room {
		return b.buf.Write(p)
	}
	if b.abort {
		return 0, ErrLimitExceeded
	}

	b.truncated = true
	if room > 0 {
		b.buf.Write(p[:room])
	}
	return len(p), nil
}

// WouldExceed reports whether storing n more bytes would pass the limit.
func (b *Buffer) WouldExceed(n int64) bool {
	if b.limit <= 0 {
		return false
	}
	return int64(b.buf.Len())+n > b.limit
}

// Full reports whether the buffer reached its limit, by truncation or by
// exact fill.
func (b *Buffer) Full() bool {
	if b.limit <= 0 {
		return false
	}
	return b.truncated || int64(b.buf.Len()) >= b.limit
}

// Truncated reports whether any bytes were dropped by the size policy.
func (b *Buffer) Truncated() bool {
	return b.truncated
}

// Len returns the number of stored bytes.
func (b *Buffer) Len() int64 {
	return int64(b.buf.Len())
}

// Bytes returns the stored bytes.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Replace swaps the stored bytes, keeping the limit configuration. Used when
// a decoded (inflated) body supersedes the wire bytes.
func (b *Buffer) Replace(p []byte) {
	b.buf.Reset()
	b.buf.Write(p)
}
