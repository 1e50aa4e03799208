package transport

import (
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJar(t *testing.T) {
	location := filepath.Join(t.TempDir(), "cookies.json")
	backend, _ := neturl.Parse("http://127.0.0.1:8000/token")

	jar, err := NewFileJar(location)
	require.NoError(t, err)
	jar.SetCookies(backend, []*http.Cookie{
		{Name: "refresh_token", Value: "r1", Path: "/", HttpOnly: true, Expires: time.Now().Add(time.Hour)},
		{Name: "gone", Value: "x", Path: "/", MaxAge: -1},
	})
	_, err = os.Stat(location)
	require.NoError(t, err)

	restored, err := NewFileJar(location)
	require.NoError(t, err)
	refreshURL, _ := neturl.Parse("http://127.0.0.1:8000/refresh")
	cookies := restored.Cookies(refreshURL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Equal(t, "r1", cookies[0].Value)

	require.NoError(t, restored.Clear())
	assert.Empty(t, restored.Cookies(refreshURL))
	_, err = os.Stat(location)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, restored.Clear())
}

func TestFileJar_SkipsExpired(t *testing.T) {
	location := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(location, []byte(`{"cookies":[{"name":"refresh_token","value":"old","host":"127.0.0.1","path":"/","expires":"2001-01-01T00:00:00Z"}]}`), 0o600))

	jar, err := NewFileJar(location)
	require.NoError(t, err)
	u, _ := neturl.Parse("http://127.0.0.1/refresh")
	assert.Empty(t, jar.Cookies(u))
}

func newTestJar(t *testing.T) *FileJar {
	t.Helper()
	jar, err := NewFileJar(filepath.Join(t.TempDir(), "cookies.json"))
	require.NoError(t, err)
	return jar
}

func mustParse(t *testing.T, URL string) *neturl.URL {
	t.Helper()
	u, err := neturl.Parse(URL)
	require.NoError(t, err)
	return u
}

func TestMemoryJar(t *testing.T) {
	jar, err := NewMemoryJar()
	require.NoError(t, err)
	u := mustParse(t, "http://127.0.0.1:8000/token")
	jar.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "r1", Path: "/"}})
	assert.Len(t, jar.Cookies(u), 1)
	require.NoError(t, jar.Clear())
	assert.Empty(t, jar.Cookies(u))
}
