package header

import (
	"strings"
	"sync"
)

// deletedValue is the tombstone servers send to expire a cookie.
const deletedValue = "deleted"

// Jar holds the cookies accumulated from Set-Cookie headers over the life of
// one client instance. A cookie whose value is the "deleted" tombstone is
// removed from the jar instead of stored.
type Jar struct {
	mu     sync.Mutex
	names  []string
	values map[string]string
}

// NewJar returns an empty cookie jar.
func NewJar() *Jar {
	return &Jar{values: make(map[string]string)}
}

// Set stores or replaces a cookie. The "deleted" tombstone removes it.
func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if value == deletedValue {
		j.remove(name)
		return
	}
	if _, ok := j.values[name]; !ok {
		j.names = append(j.names, name)
	}
	j.values[name] = value
}

func (j *Jar) remove(name string) {
	if _, ok := j.values[name]; !ok {
		return
	}
	delete(j.values, name)
	for i, n := range j.names {
		if n == name {
			j.names = append(j.names[:i], j.names[i+1:]...)
			break
		}
	}
}

// Get returns a cookie value and whether it is present.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.values[name]
	return v, ok
}

// Len returns the number of stored cookies.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.names)
}

// CookieLine renders the jar as a Cookie header value ("a=1; b=2") in
// insertion order, or "" for an empty jar.
func (j *Jar) CookieLine() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.names) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, name := range j.names {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(j.values[name])
	}
	return sb.String()
}

// UpdateFrom merges every Set-Cookie value of a parsed response header block
// into the jar. Attributes after the first ';' are ignored; this jar keeps
// name/value pairs only.
func (j *Jar) UpdateFrom(h *Header) {
	for _, line := range h.Values("set-cookie") {
		pair, _, _ := strings.Cut(line, ";")
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		j.Set(name, strings.TrimSpace(value))
	}
}
