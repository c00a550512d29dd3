package client

import "time"

// Engine defaults and protocol limits.
const (
	DefaultUserAgent   = "wirehttp/" + EngineVersion
	DefaultTimeout     = 30 * time.Second
	DefaultConnTimeout = 10 * time.Second

	DefaultMaxRedirects = 10
	DefaultMaxBodySize  = 10 * 1024 * 1024 // 10MB

	// EngineVersion is the engine release carried in the default User-Agent.
	EngineVersion = "1.0"

	// httpVersion is the protocol version emitted on every request line.
	httpVersion = "HTTP/1.1"

	// maxHeaderBytes bounds the received header section.
	maxHeaderBytes = 64 * 1024

	// readBlockSize is the unit of body reads between timeout re-checks.
	readBlockSize = 4096
)
