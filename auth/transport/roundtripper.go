package transport

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/statsadmin/client/auth/store"
)

// DefaultCredentialPaths are the credential issuing endpoints of the backend.
var DefaultCredentialPaths = []string{"/token", "/login", "/register", "/refresh", "/request-password-reset", "/reset-password"}

// RoundTripper is the request dispatcher: it attaches the stored credential
// and routes 401 answers through the Coordinator.
type RoundTripper struct {
	store           store.Store
	transport       http.RoundTripper
	jar             http.CookieJar
	refresher       Refresher
	refreshURL      string
	refreshTimeout  time.Duration
	credentialPaths []string
	logger          logrus.FieldLogger
	onExpired       func(error)
	coordinator     *Coordinator
}

func New(options ...Option) (*RoundTripper, error) {
	ret := &RoundTripper{
		transport:       http.DefaultTransport,
		store:           store.NewMemoryStore(),
		refreshTimeout:  30 * time.Second,
		credentialPaths: DefaultCredentialPaths,
		logger:          logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.transport = WrapWithCookieJar(ret.transport, ret.jar)
	if ret.refresher == nil {
		if ret.refreshURL == "" {
			return nil, errors.New("refresher was not configured: use WithRefreshURL or WithRefresher")
		}
		ret.refresher = NewCookieRefresher(ret.refreshURL, ret.transport)
	}
	ret.coordinator = NewCoordinator(ret.store, ret.refresher, ret.dispatch, ret.refreshTimeout, ret.logger)
	ret.coordinator.onExpired = ret.onExpired
	return ret, nil
}

func (r *RoundTripper) Store() store.Store {
	return r.store
}

func (r *RoundTripper) Coordinator() *Coordinator {
	return r.coordinator
}

// Jar returns the cookie jar carrying the refresh artifact, if any.
func (r *RoundTripper) Jar() http.CookieJar {
	return r.jar
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrAuthorizationPreset
	}
	call, err := replayable(req)
	if err != nil {
		return nil, err
	}
	return r.dispatch(call)
}

// dispatch sends req with the current credential and classifies the answer.
func (r *RoundTripper) dispatch(req *http.Request) (*http.Response, error) {
	var accessToken string
	if token, ok := r.store.Get(); ok {
		accessToken = token.AccessToken
	}
	resp, err := r.send(req, accessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if r.isCredentialPath(req) {
		r.logger.WithField("path", req.URL.Path).Debug("credential endpoint rejected request")
		return nil, &CredentialsError{StatusCode: resp.StatusCode, Detail: ErrorDetail(resp)}
	}
	discard(resp)
	if isRetried(req.Context()) {
		return nil, ErrUnauthorized
	}
	pending := r.coordinator.Submit(markRetried(req), accessToken)
	return pending.Wait(req.Context())
}

func (r *RoundTripper) send(req *http.Request, accessToken string) (*http.Response, error) {
	out, err := outgoing(req, accessToken)
	if err != nil {
		return nil, err
	}
	resp, err := r.transport.RoundTrip(out)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

// isCredentialPath matches req against the credential endpoints. An
// absolute endpoint URL must match host and path; a bare path must match the
// request path exactly. Trailing slashes are ignored.
func (r *RoundTripper) isCredentialPath(req *http.Request) bool {
	path := strings.TrimSuffix(req.URL.Path, "/")
	for _, candidate := range r.credentialPaths {
		if endpoint, err := url.Parse(candidate); err == nil && endpoint.IsAbs() {
			if !strings.EqualFold(endpoint.Host, req.URL.Host) {
				continue
			}
			candidate = endpoint.Path
		}
		candidate = strings.TrimSuffix(candidate, "/")
		if candidate != "" && path == candidate {
			return true
		}
	}
	return false
}
