package transport

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/statsadmin/client/auth/store"
)

type Option func(*RoundTripper)

// WithStore sets the credential store
func WithStore(store store.Store) Option {
	return func(t *RoundTripper) {
		t.store = store
	}
}

// WithTransport sets the underlying transport
func WithTransport(transport http.RoundTripper) Option {
	return func(t *RoundTripper) {
		t.transport = transport
	}
}

// WithCookieJar sets the jar carrying the refresh cookie
func WithCookieJar(jar http.CookieJar) Option {
	return func(t *RoundTripper) {
		t.jar = jar
	}
}

// WithRefreshURL sets the refresh endpoint used by the default cookie refresher
func WithRefreshURL(URL string) Option {
	return func(t *RoundTripper) {
		t.refreshURL = URL
	}
}

// WithRefresher sets a custom refresher
func WithRefresher(refresher Refresher) Option {
	return func(t *RoundTripper) {
		t.refresher = refresher
	}
}

// WithRefreshTimeout bounds the refresh call
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(t *RoundTripper) {
		t.refreshTimeout = timeout
	}
}

// WithCredentialPaths sets the credential endpoints (login, registration,
// refresh, password reset) whose 401 never triggers a refresh. Each entry is
// either a path or an absolute URL; matching is exact.
func WithCredentialPaths(paths ...string) Option {
	return func(t *RoundTripper) {
		t.credentialPaths = paths
	}
}

// WithLogger sets logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(t *RoundTripper) {
		t.logger = logger
	}
}

// WithSessionExpiredHandler sets a callback fired after a failed refresh,
// typically to send the user back to login
func WithSessionExpiredHandler(fn func(err error)) Option {
	return func(t *RoundTripper) {
		t.onExpired = fn
	}
}
