package tlsconfig

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	cfg, err := Build(Options{}, "example.com")
	require.NoError(t, err)
	require.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Equal(t, "example.com", cfg.ServerName)
	require.False(t, cfg.InsecureSkipVerify)
	require.Equal(t, []string{"http/1.1"}, cfg.NextProtos)
}

func TestBuildSNIOverride(t *testing.T) {
	cfg, err := Build(Options{ServerName: "front.example.org"}, "example.com")
	require.NoError(t, err)
	require.Equal(t, "front.example.org", cfg.ServerName)
}

func TestBuildDisableSNI(t *testing.T) {
	cfg, err := Build(Options{DisableSNI: true}, "example.com")
	require.NoError(t, err)
	require.Empty(t, cfg.ServerName)
}

func TestBuildInsecure(t *testing.T) {
	cfg, err := Build(Options{Insecure: true}, "example.com")
	require.NoError(t, err)
	require.True(t, cfg.InsecureSkipVerify)
}

func TestBuildRejectsBadPEM(t *testing.T) {
	_, err := Build(Options{RootCAs: [][]byte{[]byte("not a certificate")}}, "example.com")
	require.Error(t, err)
}

func TestBuildPassthroughConfig(t *testing.T) {
	custom := &tls.Config{ServerName: "custom"}
	cfg, err := Build(Options{Config: custom, ServerName: "ignored"}, "example.com")
	require.NoError(t, err)
	require.Same(t, custom, cfg)
}

func TestVersionName(t *testing.T) {
	require.Equal(t, "TLS 1.3", VersionName(tls.VersionTLS13))
	require.Equal(t, "Unknown", VersionName(0x9999))
}
