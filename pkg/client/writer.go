package client

import (
	"bytes"
	"encoding/base64"
	"io"
	"net"
	"strconv"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
	"github.com/wirehttp/go-wirehttp/pkg/header"
	"github.com/wirehttp/go-wirehttp/pkg/transport"
)

// wireRequest is the fully resolved state one hop is framed from.
type wireRequest struct {
	method      string
	tgt         target
	headers     *header.Header // caller headers, may be nil
	payload     []byte         // encoded body, POST only
	contentType string
	cookieLine  string
	referer     string
	userAgent   string
	creds       *Credentials
	proxy       *transport.Proxy
}

// encodePayload resolves the POST payload and its content type. GET carries
// no body under this engine's contract; any caller-supplied body is
// discarded.
func encodePayload(req *Request, method string) ([]byte, string, error) {
	if method != "POST" {
		return nil, "", nil
	}

	if !req.Form.Empty() {
		if req.Multipart {
			return req.Form.EncodeMultipart("")
		}
		payload, err := req.Form.EncodeURL()
		if err != nil {
			return nil, "", err
		}
		return payload, "application/x-www-form-urlencoded", nil
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return req.Body, contentType, nil
}

// build assembles request line, headers, cookie header, separator and body
// into the exact byte sequence written to the wire.
func (w *wireRequest) build() ([]byte, error) {
	h := header.New()
	if w.headers != nil {
		h = w.headers.Clone()
	}

	// Computed headers fill gaps; caller-supplied spellings win.
	setIfAbsent(h, "Host", w.tgt.hostHeader())
	setIfAbsent(h, "User-Agent", w.userAgent)
	if w.referer != "" {
		setIfAbsent(h, "Referer", w.referer)
	}
	if err := h.Set("Connection", "Close"); err != nil {
		return nil, err
	}

	if w.method == "POST" {
		setIfAbsent(h, "Content-Type", w.contentType)
		if err := h.Set("Content-Length", strconv.Itoa(len(w.payload))); err != nil {
			return nil, err
		}
	}

	if w.creds != nil {
		if err := h.Set("Authorization", basicAuth(w.creds)); err != nil {
			return nil, err
		}
	}
	if w.proxy != nil && w.proxy.Username != "" {
		auth := basicAuth(&Credentials{Username: w.proxy.Username, Password: w.proxy.Password})
		if err := h.Set("Proxy-Authorization", auth); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(w.method)
	buf.WriteByte(' ')
	buf.WriteString(w.requestTarget())
	buf.WriteByte(' ')
	buf.WriteString(httpVersion)
	buf.WriteString("\r\n")

	h.Encode(&buf)

	if w.cookieLine != "" {
		buf.WriteString("Cookie: ")
		buf.WriteString(w.cookieLine)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	if w.method == "POST" {
		buf.Write(w.payload)
	}
	return buf.Bytes(), nil
}

// requestTarget is origin-form for direct connections and absolute-form when
// the request is relayed through a forward proxy.
func (w *wireRequest) requestTarget() string {
	if w.proxy != nil {
		return w.tgt.String()
	}
	return w.tgt.requestURI()
}

func setIfAbsent(h *header.Header, name, value string) {
	if h.Has(name) || value == "" {
		return
	}
	// Computed values are engine-controlled and always valid.
	_ = h.Set(name, value)
}

func basicAuth(c *Credentials) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// write sends data fully, retrying the unwritten tail on short writes.
// dump mirrors the exact bytes sent; it never affects protocol behavior.
func write(conn net.Conn, data []byte, ep transport.Endpoint, dump io.Writer) error {
	if dump != nil {
		dump.Write(data)
	}

	written := 0
	for written < len(data) {
		n, err := conn.Write(data[written:])
		if err != nil {
			return errors.NewWriteError(ep.Host, ep.Port, err)
		}
		written += n
	}
	return nil
}
