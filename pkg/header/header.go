// Package header implements the wire codec for HTTP header blocks and the
// client cookie jar.
package header

import (
	"bytes"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
)

// Header is an ordered header mapping. Lookups are case-insensitive; names
// are remembered as first given and emitted in insertion order. Duplicate
// names keep an ordered sequence of values.
type Header struct {
	names  []string            // insertion order, as-given spelling
	values map[string][]string // keyed by lower-cased name
}

// New returns an empty Header.
func New() *Header {
	return &Header{values: make(map[string][]string)}
}

// Set replaces all values of name. Invalid field names or values are
// rejected so they can never corrupt the wire format.
func (h *Header) Set(name, value string) error {
	if err := validate(name, value); err != nil {
		return err
	}
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, name)
	}
	h.values[key] = []string{value}
	return nil
}

// Add appends a value to name, keeping any existing values.
func (h *Header) Add(name, value string) error {
	if err := validate(name, value); err != nil {
		return err
	}
	h.add(name, value)
	return nil
}

// add appends without validation. Parse paths use it directly so a lenient
// read never fails on a server's sloppy header.
func (h *Header) add(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, name)
	}
	h.values[key] = append(h.values[key], value)
}

func validate(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return errors.NewValidationError("invalid header field name " + quote(name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errors.NewValidationError("invalid value for header field " + quote(name))
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}

// Get returns the first value of name, or "".
func (h *Header) Get(name string) string {
	vs := h.values[strings.ToLower(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values of name in receive order.
func (h *Header) Values(name string) []string {
	return h.values[strings.ToLower(name)]
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Del removes name entirely.
func (h *Header) Del(name string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, n := range h.names {
		if strings.ToLower(n) == key {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
}

// Names returns the header names in insertion order, spelled as first given.
func (h *Header) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return len(h.names)
}

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	c := New()
	for _, name := range h.names {
		for _, v := range h.values[strings.ToLower(name)] {
			c.add(name, v)
		}
	}
	return c
}

// Encode writes the header block in wire format: one "Name: value\r\n" line
// per value, in insertion order. Empty-valued entries are omitted.
func (h *Header) Encode(buf *bytes.Buffer) {
	for _, name := range h.names {
		for _, v := range h.values[strings.ToLower(name)] {
			if v == "" {
				continue
			}
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}
}

// ParseBlock parses a received header block (the lines between the status
// line and the blank separator) into a Header. Names are lower-cased,
// duplicates are merged into an ordered sequence, and continuation lines
// are folded into the previous value.
func ParseBlock(block string) *Header {
	h := New()
	lastKey := ""
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		// Obs-fold continuation (RFC 7230 section 3.2.4).
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				continue
			}
			vs := h.values[lastKey]
			vs[len(vs)-1] = vs[len(vs)-1] + " " + strings.TrimSpace(line)
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		h.add(key, strings.TrimSpace(value))
		lastKey = key
	}
	return h
}
