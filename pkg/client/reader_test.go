package client

import (
	"bytes"
	"compress/gzip"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/trace"
)

// respond returns the client end of a pipe whose peer writes raw and closes.
func respond(t *testing.T, raw []byte) net.Conn {
	t.Helper()
	cli, srv := net.Pipe()
	go func() {
		srv.Write(raw)
		srv.Close()
	}()
	t.Cleanup(func() { cli.Close() })
	return cli
}

func readResponse(t *testing.T, raw []byte, maxBody int64, abort bool, sink trace.Sink) (*Response, error) {
	t.Helper()
	conn := respond(t, raw)
	timeout := 5 * time.Second
	r := newReader(conn, time.Now().Add(timeout), timeout, nil, sink)

	resp := &Response{}
	if err := r.readHeaders(resp, maxBody, abort); err != nil {
		return resp, err
	}
	return resp, r.readBody(resp, maxBody, abort)
}

func TestContentLengthBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhellotrailing-garbage")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "HTTP/1.1 200 OK", resp.StatusLine)
	require.Equal(t, "hello", string(resp.Body))
}

func TestContentLengthZero(t *testing.T) {
	raw := []byte("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Empty(t, resp.Body)
}

func TestChunkedBody(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want string
	}{
		{
			name: "two chunks",
			wire: "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n",
			want: "hello world",
		},
		{
			name: "single chunk",
			wire: "b\r\nhello world\r\n0\r\n\r\n",
			want: "hello world",
		},
		{
			name: "byte-sized chunks",
			wire: "1\r\nh\r\n1\r\ni\r\n0\r\n\r\n",
			want: "hi",
		},
		{
			name: "chunk extension stripped",
			wire: "5;ext=1\r\nhello\r\n0\r\n\r\n",
			want: "hello",
		},
		{
			name: "trailer lines discarded",
			wire: "2\r\nok\r\n0\r\nX-Trailer: v\r\n\r\n",
			want: "ok",
		},
		{
			name: "uppercase hex size",
			wire: "A\r\n0123456789\r\n0\r\n\r\n",
			want: "0123456789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" + tt.wire)
			resp, err := readResponse(t, raw, 0, false, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(resp.Body))
		})
	}
}

func TestChunkedTakesPrecedenceOverContentLength(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\n" +
		"Content-Length: 9999\r\n" +
		"Transfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\n\r\n")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", string(resp.Body))
}

func TestChunkedInvalidSize(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n")

	_, err := readResponse(t, raw, 0, false, nil)
	require.Equal(t, errors.KindResponse, errors.KindOf(err))
}

func TestReadUntilClose(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nConnection: close\r\n\r\nstream until the end")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, "stream until the end", string(resp.Body))
}

func TestLFOnlyTerminator(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\nContent-Length: 2\n\nok")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "ok", string(resp.Body))
}

func TestStatusLineVariants(t *testing.T) {
	tests := []struct {
		line string
		code int
	}{
		{"HTTP/1.1 200 OK", 200},
		{"HTTP/1.0 404 Not Found", 404},
		{"HTTP/1.1 301", 301},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			code, err := parseStatusLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.code, code)
		})
	}
}

func TestBadStatusLine(t *testing.T) {
	for _, line := range []string{"", "garbage", "HTTP/1.1", "HTTP/1.1 xyz OK", "200 OK"} {
		_, err := parseStatusLine(line)
		require.Error(t, err, "line %q", line)
		require.Contains(t, err.Error(), "server returned bad answer")
	}
}

func TestPrematureEOFInHeaders(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Le")

	_, err := readResponse(t, raw, 0, false, nil)
	require.Equal(t, errors.KindResponse, errors.KindOf(err))
	require.Contains(t, err.Error(), "premature end of file")
}

func TestPrematureEOFInFixedBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.Contains(t, err.Error(), "premature end of file")
	require.Equal(t, "short", string(resp.Body))
}

func TestOversizeAbortFailsBeforeBody(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n" + strings.Repeat("x", 1000))

	resp, err := readResponse(t, raw, 100, true, nil)
	require.Equal(t, errors.KindResponse, errors.KindOf(err))
	require.Empty(t, resp.Body)
}

func TestOversizeTruncates(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n" + strings.Repeat("x", 1000))

	resp, err := readResponse(t, raw, 100, false, nil)
	require.NoError(t, err)
	require.LessOrEqual(t, len(resp.Body), 100)
	require.True(t, resp.Truncated)
}

func TestChunkedOversizeAbort(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"64\r\n" + strings.Repeat("a", 100) + "\r\n64\r\n" + strings.Repeat("b", 100) + "\r\n0\r\n\r\n")

	_, err := readResponse(t, raw, 150, true, nil)
	require.Equal(t, errors.KindResponse, errors.KindOf(err))
	require.Contains(t, err.Error(), "maximum size")
}

func TestChunkedOversizeTruncates(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"64\r\n" + strings.Repeat("a", 100) + "\r\n64\r\n" + strings.Repeat("b", 100) + "\r\n0\r\n\r\n")

	resp, err := readResponse(t, raw, 150, false, nil)
	require.NoError(t, err)
	require.Len(t, resp.Body, 150)
	require.True(t, resp.Truncated)
}

func gzipped(t *testing.T, plain string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(plain))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestGzipInflate(t *testing.T) {
	payload := gzipped(t, "inflated content")
	var raw bytes.Buffer
	raw.WriteString("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: ")
	raw.WriteString(strconv.Itoa(len(payload)))
	raw.WriteString("\r\n\r\n")
	raw.Write(payload)

	resp, err := readResponse(t, raw.Bytes(), 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, "inflated content", string(resp.Body))
}

func TestGzipFallbackOnCorruptBody(t *testing.T) {
	// Gzip magic followed by garbage: inflation fails, raw bytes returned.
	body := append([]byte{0x1f, 0x8b}, []byte("not really gzip")...)
	var raw bytes.Buffer
	raw.WriteString("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: ")
	raw.WriteString(strconv.Itoa(len(body)))
	raw.WriteString("\r\n\r\n")
	raw.Write(body)

	sink := trace.NewBuffer()
	resp, err := readResponse(t, raw.Bytes(), 0, false, sink)
	require.NoError(t, err)
	require.Equal(t, body, resp.Body)

	warned := false
	for _, rec := range sink.Records() {
		if rec.Level == trace.LevelWarn && strings.Contains(rec.Message, "gzip") {
			warned = true
		}
	}
	require.True(t, warned, "fallback must be surfaced on the trace sink")
}

func TestGzipHeaderWithoutMagicLeftAlone(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: 5\r\n\r\nplain")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, "plain", string(resp.Body))
}

func TestHeaderTimeout(t *testing.T) {
	cli, srv := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	timeout := 200 * time.Millisecond
	r := newReader(cli, time.Now().Add(timeout), timeout, nil, nil)

	start := time.Now()
	_, err := r.readHeaderSection()
	elapsed := time.Since(start)

	require.True(t, errors.IsTimeout(err))
	require.Contains(t, err.Error(), "waiting for response headers")
	require.Less(t, elapsed, 2*time.Second)
}

func TestHeadersExceedMaximumSize(t *testing.T) {
	var raw bytes.Buffer
	raw.WriteString("HTTP/1.1 200 OK\r\n")
	for i := 0; raw.Len() <= maxHeaderBytes; i++ {
		raw.WriteString("X-Padding-")
		raw.WriteString(strconv.Itoa(i))
		raw.WriteString(": ")
		raw.WriteString(strings.Repeat("p", 100))
		raw.WriteString("\r\n")
	}
	// Terminator intentionally absent; the limit must trip first.

	_, err := readResponse(t, raw.Bytes(), 0, false, nil)
	require.Equal(t, errors.KindResponse, errors.KindOf(err))
	require.Contains(t, err.Error(), "maximum size")
}

func TestRawHeadersPreserved(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nX-One: 1\r\nX-Two: 2\r\n\r\n")

	resp, err := readResponse(t, raw, 0, false, nil)
	require.NoError(t, err)
	require.Equal(t, string(raw), resp.RawHeaders)
	require.Equal(t, "1", resp.Headers.Get("x-one"))
	require.Equal(t, []string{"x-one", "x-two"}, resp.Headers.Names())
}

func TestDumpReceivedMirrorsWireBytes(t *testing.T) {
	raw := []byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	conn := respond(t, raw)

	var dump bytes.Buffer
	timeout := 5 * time.Second
	r := newReader(conn, time.Now().Add(timeout), timeout, &dump, nil)

	resp := &Response{}
	require.NoError(t, r.readHeaders(resp, 0, false))
	require.NoError(t, r.readBody(resp, 0, false))
	require.Equal(t, raw, dump.Bytes())
}
