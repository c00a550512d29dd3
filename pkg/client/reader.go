package client

import (
	"bytes"
	"compress/gzip"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wirehttp/go-wirehttp/pkg/buffer"
	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/header"
	"github.com/wirehttp/go-wirehttp/pkg/trace"
)

var statusLinePattern = regexp.MustCompile(`^HTTP/(\d+(?:\.\d+)?)\s+(\d{3})(?:\s+(.*))?$`)

var gzipMagic = []byte{0x1f, 0x8b}

// reader consumes one HTTP response from a connection. Every read is bounded
// by the absolute deadline of the send; incoming bytes are mirrored to the
// dump sink before any interpretation.
type reader struct {
	conn     net.Conn
	deadline time.Time
	timeout  time.Duration // original budget, for error messages
	dump     io.Writer
	sink     trace.Sink

	pending []byte // received but not yet consumed
	eof     bool
}

func newReader(conn net.Conn, deadline time.Time, timeout time.Duration, dump io.Writer, sink trace.Sink) *reader {
	return &reader{
		conn:     conn,
		deadline: deadline,
		timeout:  timeout,
		dump:     dump,
		sink:     sink,
	}
}

// fill performs one bounded read from the connection into pending.
func (r *reader) fill(phase string) error {
	if r.eof {
		return io.EOF
	}
	if !time.Now().Before(r.deadline) {
		return errors.NewTimeoutError("timeout "+phase, r.timeout)
	}

	if err := r.conn.SetReadDeadline(r.deadline); err != nil {
		return errors.NewResponseError("setting read deadline", err)
	}

	buf := make([]byte, readBlockSize)
	n, err := r.conn.Read(buf)
	if n > 0 {
		if r.dump != nil {
			r.dump.Write(buf[:n])
		}
		r.pending = append(r.pending, buf[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			r.eof = true
			if n > 0 {
				return nil
			}
			return io.EOF
		}
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return errors.NewTimeoutError("timeout "+phase, r.timeout)
		}
		return errors.NewResponseError("reading from connection", err)
	}
	return nil
}

// readHeaderSection reads until the blank-line terminator (CRLFCRLF or
// LFLF), leaving any body bytes in pending.
func (r *reader) readHeaderSection() (string, error) {
	const phase = "waiting for response headers"
	for {
		if i := headerEnd(r.pending); i >= 0 {
			section := string(r.pending[:i])
			r.pending = r.pending[i:]
			return section, nil
		}
		if len(r.pending) > maxHeaderBytes {
			return "", errors.NewResponseError("response headers exceed maximum size", nil)
		}
		if err := r.fill(phase); err != nil {
			if err == io.EOF {
				return "", errors.NewResponseError("premature end of file", nil)
			}
			return "", err
		}
	}
}

// headerEnd returns the index just past the header terminator, or -1.
// Both CRLFCRLF and bare LFLF terminate; the earlier one wins so that body
// bytes can never be mistaken for headers.
func headerEnd(b []byte) int {
	i := bytes.Index(b, []byte("\r\n\r\n"))
	j := bytes.Index(b, []byte("\n\n"))
	switch {
	case i < 0 && j < 0:
		return -1
	case j < 0 || (i >= 0 && i <= j):
		return i + 4
	default:
		return j + 2
	}
}

// next consumes up to max pending bytes, filling from the connection as
// needed. Returns io.EOF once the stream is drained.
func (r *reader) next(max int, phase string) ([]byte, error) {
	for len(r.pending) == 0 {
		if err := r.fill(phase); err != nil {
			return nil, err
		}
	}
	n := min(max, len(r.pending))
	out := r.pending[:n]
	r.pending = r.pending[n:]
	return out, nil
}

// readLine consumes one LF-terminated line, trimming the line ending.
func (r *reader) readLine(phase string) (string, error) {
	for {
		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := string(r.pending[:i])
			r.pending = r.pending[i+1:]
			return strings.TrimRight(line, "\r"), nil
		}
		if err := r.fill(phase); err != nil {
			return "", err
		}
	}
}

// parseStatusLine validates and splits the first response line.
func parseStatusLine(line string) (code int, err error) {
	m := statusLinePattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, errors.NewResponseError("server returned bad answer", nil)
	}
	code, convErr := strconv.Atoi(m[2])
	if convErr != nil {
		return 0, errors.NewResponseError("server returned bad answer", convErr)
	}
	return code, nil
}

// readHeaders runs the header phase: raw section, status line, parsed
// header mapping, and the oversize precheck against a declared
// Content-Length.
func (r *reader) readHeaders(resp *Response, maxBody int64, abort bool) error {
	section, err := r.readHeaderSection()
	if err != nil {
		return err
	}
	resp.RawHeaders = section

	statusLine, rest, _ := strings.Cut(section, "\n")
	resp.StatusLine = strings.TrimRight(statusLine, "\r")

	code, err := parseStatusLine(resp.StatusLine)
	if err != nil {
		return err
	}
	resp.StatusCode = code
	resp.Headers = header.ParseBlock(rest)

	if abort && maxBody > 0 {
		if cl := resp.Headers.Get("content-length"); cl != "" {
			if length, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && length > maxBody {
				return errors.NewResponseError("response body exceeds maximum size", nil)
			}
		}
	}
	return nil
}

// readBody dispatches to the body strategy selected by the response headers.
// Chunked transfer encoding always takes precedence over content-length.
func (r *reader) readBody(resp *Response, maxBody int64, abort bool) error {
	dst := buffer.New(maxBody, abort)

	var err error
	switch {
	case strings.Contains(strings.ToLower(resp.Headers.Get("transfer-encoding")), "chunked"):
		trace.Emit(r.sink, trace.LevelDebug, "reading chunked body")
		err = r.readChunked(dst)
	case resp.Headers.Has("content-length"):
		length, convErr := strconv.ParseInt(strings.TrimSpace(resp.Headers.Get("content-length")), 10, 64)
		if convErr != nil || length < 0 {
			err = errors.NewResponseError("invalid content-length", convErr)
			break
		}
		trace.Emit(r.sink, trace.LevelDebug, "reading %d content-length bytes", length)
		err = r.readFixed(dst, length)
	default:
		trace.Emit(r.sink, trace.LevelDebug, "reading body until connection close")
		err = r.readUntilClose(dst)
	}

	if err != nil {
		if err == buffer.ErrLimitExceeded {
			err = errors.NewResponseError("response body exceeds maximum size", nil)
		}
		resp.Body = dst.Bytes()
		resp.Truncated = dst.Truncated()
		return err
	}

	if dst.Truncated() {
		trace.Emit(r.sink, trace.LevelWarn, "body truncated at %d bytes by size limit", dst.Len())
	}
	if decoded, ok := r.inflate(resp.Headers, dst.Bytes()); ok {
		dst.Replace(decoded)
	}
	resp.Body = dst.Bytes()
	resp.Truncated = dst.Truncated()
	return nil
}

// readChunked decodes chunked transfer encoding: hex size line, payload,
// trailing CRLF, terminated by a zero-size chunk. Trailer lines after the
// final chunk are consumed and discarded.
func (r *reader) readChunked(dst *buffer.Buffer) error {
	const phase = "reading chunked body"
	for {
		line, err := r.readLine(phase)
		if err != nil {
			if err == io.EOF {
				return errors.NewResponseError("premature end of file", nil)
			}
			return err
		}
		if line == "" {
			// Tolerate a stray blank line before the chunk size.
			continue
		}

		sizeToken, _, _ := strings.Cut(line, ";")
		size, err := strconv.ParseInt(strings.TrimSpace(sizeToken), 16, 64)
		if err != nil {
			return errors.NewResponseError("invalid chunk size", err)
		}
		if size == 0 {
			return r.discardTrailers()
		}

		remaining := size
		for remaining > 0 {
			block, err := r.next(int(min64(remaining, readBlockSize)), phase)
			if err != nil {
				if err == io.EOF {
					return errors.NewResponseError("premature end of file", nil)
				}
				return err
			}
			if _, err := dst.Write(block); err != nil {
				return err
			}
			if dst.Truncated() {
				return nil
			}
			remaining -= int64(len(block))
		}

		// Discard the CRLF that closes the chunk payload.
		if err := r.discardChunkEnd(phase); err != nil {
			return err
		}
	}
}

func (r *reader) discardChunkEnd(phase string) error {
	for discard := 2; discard > 0; {
		block, err := r.next(discard, phase)
		if err != nil {
			if err == io.EOF {
				return errors.NewResponseError("premature end of file", nil)
			}
			return err
		}
		discard -= len(block)
	}
	return nil
}

// discardTrailers consumes trailer lines after the terminal chunk up to the
// blank line. A connection close here is tolerated: the body is complete.
func (r *reader) discardTrailers() error {
	for {
		line, err := r.readLine("reading chunk trailers")
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if line == "" {
			return nil
		}
	}
}

// readFixed reads exactly length bytes, in blocks, re-checking the timeout
// and size policy per block.
func (r *reader) readFixed(dst *buffer.Buffer, length int64) error {
	const phase = "reading response body"
	remaining := length
	for remaining > 0 {
		block, err := r.next(int(min64(remaining, readBlockSize)), phase)
		if err != nil {
			if err == io.EOF {
				return errors.NewResponseError("premature end of file", nil)
			}
			return err
		}
		if _, err := dst.Write(block); err != nil {
			return err
		}
		remaining -= int64(len(block))
		if dst.Truncated() {
			return nil
		}
	}
	return nil
}

// readUntilClose streams blocks until end of stream or the size policy
// stops the read.
func (r *reader) readUntilClose(dst *buffer.Buffer) error {
	const phase = "reading response body"
	for {
		block, err := r.next(readBlockSize, phase)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if _, err := dst.Write(block); err != nil {
			return err
		}
		if dst.Truncated() {
			return nil
		}
	}
}

// inflate decodes a gzip-encoded body. A body that fails to inflate is kept
// as received; the fallback is deliberate and surfaced through the trace
// sink so the wire bytes stay available for auditing.
func (r *reader) inflate(h *header.Header, body []byte) ([]byte, bool) {
	if !strings.Contains(strings.ToLower(h.Get("content-encoding")), "gzip") {
		return nil, false
	}
	if !bytes.HasPrefix(body, gzipMagic) {
		return nil, false
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		trace.Emit(r.sink, trace.LevelWarn, "gzip inflate failed, returning raw body: %v", err)
		return nil, false
	}
	decoded, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		trace.Emit(r.sink, trace.LevelWarn, "gzip inflate failed, returning raw body: %v", err)
		return nil, false
	}
	return decoded, true
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
