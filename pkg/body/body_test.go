package body

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeURLPreservesOrder(t *testing.T) {
	var f Form
	f.AddField("b", "2")
	f.AddField("a", "1")
	f.AddField("q", "x y&z")

	payload, err := f.EncodeURL()
	require.NoError(t, err)
	require.Equal(t, "b=2&a=1&q=x+y%26z", string(payload))
}

func TestEncodeURLRejectsFiles(t *testing.T) {
	var f Form
	f.AddFile("doc", "doc.txt", "text/plain", []byte("hi"))

	_, err := f.EncodeURL()
	require.Error(t, err)
}

func TestEncodeMultipartFixedBoundary(t *testing.T) {
	var f Form
	f.AddField("name", "value")

	payload, contentType, err := f.EncodeMultipart("")
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data; boundary="+DefaultBoundary, contentType)

	s := string(payload)
	require.True(t, strings.HasPrefix(s, "--"+DefaultBoundary+"\r\n"))
	require.Contains(t, s, `Content-Disposition: form-data; name="name"`)
	require.Contains(t, s, "\r\n\r\nvalue\r\n")
	require.True(t, strings.HasSuffix(s, "--"+DefaultBoundary+"--\r\n"))
}

func TestEncodeMultipartFilePart(t *testing.T) {
	var f Form
	f.AddField("field", "v")
	f.AddFile("upload", "data.bin", "application/octet-stream", []byte{0x00, 0x01, 0x02})

	payload, contentType, err := f.EncodeMultipart("xyz-boundary")
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data; boundary=xyz-boundary", contentType)

	s := string(payload)
	require.Contains(t, s, `form-data; name="upload"; filename="data.bin"`)
	require.Contains(t, s, "Content-Type: application/octet-stream")
	require.Contains(t, s, string([]byte{0x00, 0x01, 0x02}))
}

func TestEncodeMultipartDefaultsFileContentType(t *testing.T) {
	var f Form
	f.AddFile("upload", "x", "", []byte("data"))

	payload, _, err := f.EncodeMultipart("")
	require.NoError(t, err)
	require.Contains(t, string(payload), "Content-Type: application/octet-stream")
}

func TestEmpty(t *testing.T) {
	var f Form
	require.True(t, f.Empty())
	require.True(t, (*Form)(nil).Empty())

	f.AddField("a", "1")
	require.False(t, f.Empty())
}
