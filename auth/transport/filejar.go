package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
)

// FileJar is a cookie jar that mirrors every cookie it accepts to a JSON
// file and rehydrates them on startup, so the refresh cookie outlives the
// process. cookiejar.Jar cannot be enumerated, hence the own index. With an
// empty URL nothing is persisted.
type FileJar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
	URL   string
	fs    afs.Service
	index map[string]persistedCookie
}

type persistedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Host     string    `json:"host"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

func (p *persistedCookie) key() string {
	host := p.Domain
	if host == "" {
		host = p.Host
	}
	return host + "|" + p.Path + "|" + p.Name
}

func (p *persistedCookie) expired(now time.Time) bool {
	return !p.Expires.IsZero() && now.After(p.Expires)
}

type cookieSnapshot struct {
	Cookies []persistedCookie `json:"cookies"`
}

// NewMemoryJar creates a clearable jar that is not persisted.
func NewMemoryJar() (*FileJar, error) {
	return NewFileJar("")
}

// NewFileJar creates a cookie jar persisted at URL.
func NewFileJar(URL string) (*FileJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	j := &FileJar{inner: inner, URL: URL, fs: afs.New(), index: map[string]persistedCookie{}}
	_ = j.load(context.Background())
	return j, nil
}

func (j *FileJar) Cookies(u *neturl.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

func (j *FileJar) SetCookies(u *neturl.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	now := time.Now()
	for _, c := range cookies {
		pc := persistedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Host:     u.Hostname(),
			Domain:   strings.TrimPrefix(strings.TrimSpace(c.Domain), "."),
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if pc.Path == "" {
			pc.Path = "/"
		}
		if c.MaxAge > 0 {
			pc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || pc.expired(now) {
			delete(j.index, pc.key())
			continue
		}
		j.index[pc.key()] = pc
	}
	_ = j.save(context.Background())
}

// Clear drops every cookie, in memory and on disk.
func (j *FileJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.inner = inner
	j.index = map[string]persistedCookie{}
	ctx := context.Background()
	if j.URL == "" {
		return nil
	}
	if ok, _ := j.fs.Exists(ctx, j.URL); !ok {
		return nil
	}
	return j.fs.Delete(ctx, j.URL)
}

func (j *FileJar) save(ctx context.Context) error {
	if j.URL == "" {
		return nil
	}
	snap := cookieSnapshot{}
	for _, pc := range j.index {
		snap.Cookies = append(snap.Cookies, pc)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return j.fs.Upload(ctx, j.URL, 0o600, bytes.NewReader(data))
}

func (j *FileJar) load(ctx context.Context) error {
	if j.URL == "" {
		return nil
	}
	if ok, err := j.fs.Exists(ctx, j.URL); err != nil || !ok {
		return err
	}
	data, err := j.fs.DownloadWithURL(ctx, j.URL)
	if err != nil {
		return err
	}
	var snap cookieSnapshot
	if err = json.Unmarshal(data, &snap); err != nil {
		return err
	}
	now := time.Now()
	for _, pc := range snap.Cookies {
		if pc.expired(now) {
			continue
		}
		scheme := "http"
		if pc.Secure {
			scheme = "https"
		}
		host := pc.Host
		if pc.Domain != "" {
			host = pc.Domain
		}
		u := &neturl.URL{Scheme: scheme, Host: host, Path: pc.Path}
		j.inner.SetCookies(u, []*http.Cookie{{
			Name:     pc.Name,
			Value:    pc.Value,
			Domain:   pc.Domain,
			Path:     pc.Path,
			Expires:  pc.Expires,
			Secure:   pc.Secure,
			HttpOnly: pc.HttpOnly,
		}})
		j.index[pc.key()] = pc
	}
	return nil
}
