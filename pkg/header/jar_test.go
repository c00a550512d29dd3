package header

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJarSetGet(t *testing.T) {
	j := NewJar()
	j.Set("session", "abc123")

	v, ok := j.Get("session")
	require.True(t, ok)
	require.Equal(t, "abc123", v)
	require.Equal(t, 1, j.Len())
}

func TestJarDeletedTombstone(t *testing.T) {
	j := NewJar()
	j.Set("a", "1")
	j.Set("a", "deleted")

	_, ok := j.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, j.Len())
	require.Equal(t, "", j.CookieLine())
}

func TestJarCookieLineOrder(t *testing.T) {
	j := NewJar()
	j.Set("a", "1")
	j.Set("b", "2")
	j.Set("a", "3") // replace keeps original position

	require.Equal(t, "a=3; b=2", j.CookieLine())
}

func TestJarUpdateFrom(t *testing.T) {
	h := ParseBlock("Set-Cookie: sid=xyz; Path=/; HttpOnly\r\n" +
		"Set-Cookie: lang=en\r\n" +
		"Set-Cookie: malformed\r\n")

	j := NewJar()
	j.UpdateFrom(h)

	sid, ok := j.Get("sid")
	require.True(t, ok)
	require.Equal(t, "xyz", sid)

	lang, ok := j.Get("lang")
	require.True(t, ok)
	require.Equal(t, "en", lang)

	require.Equal(t, 2, j.Len())
}

func TestJarDeleteViaSetCookie(t *testing.T) {
	j := NewJar()
	j.UpdateFrom(ParseBlock("Set-Cookie: a=1\r\n"))
	require.Equal(t, 1, j.Len())

	j.UpdateFrom(ParseBlock("Set-Cookie: a=deleted; Expires=Thu, 01 Jan 1970 00:00:00 GMT\r\n"))
	_, ok := j.Get("a")
	require.False(t, ok)
}
