// Package tlsconfig builds the secure-stream configuration used when the
// connector upgrades a connection to TLS. Certificate validation policy is
// whatever crypto/tls does with the resulting config; the engine adds no
// policy of its own.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/wirehttp/go-wirehttp/pkg/errors"
)

// Options selects how the secure stream is configured.
type Options struct {
	// ServerName overrides the SNI value; empty means the target host.
	ServerName string

	// DisableSNI suppresses the SNI extension entirely.
	DisableSNI bool

	// Insecure skips certificate chain and host name verification.
	Insecure bool

	// MinVersion is the minimum TLS version; zero means TLS 1.2.
	MinVersion uint16

	// RootCAs holds additional PEM-encoded root certificates. When set they
	// replace the system pool.
	RootCAs [][]byte

	// Config, when non-nil, is used verbatim and all other fields are
	// ignored. Full-control escape hatch.
	Config *tls.Config
}

// Build produces the tls.Config for a connection to host.
func Build(opts Options, host string) (*tls.Config, error) {
	if opts.Config != nil {
		return opts.Config, nil
	}

	minVersion := opts.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	cfg := &tls.Config{
		MinVersion:         minVersion,
		InsecureSkipVerify: opts.Insecure,
		NextProtos:         []string{"http/1.1"},
	}

	if !opts.DisableSNI {
		serverName := opts.ServerName
		if serverName == "" {
			serverName = host
		}
		cfg.ServerName = serverName
	}

	if len(opts.RootCAs) > 0 {
		pool := x509.NewCertPool()
		for _, pem := range opts.RootCAs {
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.NewValidationError("invalid PEM root certificate")
			}
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// VersionName returns the human-readable name of a TLS version.
func VersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "Unknown"
	}
}
