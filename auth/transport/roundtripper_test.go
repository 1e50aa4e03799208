package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/statsadmin/client/auth/mock"
	"github.com/statsadmin/client/auth/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fixture struct {
	backend *mock.HTTPTestBackend
	store   store.Store
	rt      *RoundTripper
	client  *http.Client
	expired atomic.Int64
}

func newFixture(t *testing.T, backendOptions []mock.Option, options ...Option) *fixture {
	t.Helper()
	backend, err := mock.NewHTTPTestBackend(backendOptions...)
	require.NoError(t, err)
	t.Cleanup(backend.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	ret := &fixture{backend: backend, store: store.NewMemoryStore()}
	options = append([]Option{
		WithStore(ret.store),
		WithCookieJar(jar),
		WithRefreshURL(backend.URL + "/refresh"),
		WithLogger(quietLogger()),
		WithSessionExpiredHandler(func(error) { ret.expired.Add(1) }),
	}, options...)
	ret.rt, err = New(options...)
	require.NoError(t, err)
	ret.client = &http.Client{Transport: ret.rt}
	return ret
}

// login performs the password login through the dispatcher and stores the credential.
func (f *fixture) login(t *testing.T, username, password string) (string, error) {
	t.Helper()
	resp, err := f.client.PostForm(f.backend.URL+"/token", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NoError(t, f.store.Set(&oauth2.Token{AccessToken: payload.AccessToken, TokenType: payload.TokenType}))
	return payload.AccessToken, nil
}

func (f *fixture) accessToken() string {
	if token, ok := f.store.Get(); ok {
		return token.AccessToken
	}
	return ""
}

func echo(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	payload := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestRoundTripper_AttachesCredential(t *testing.T) {
	f := newFixture(t, nil)
	tokenA, err := f.login(t, "admin", "admin")
	require.NoError(t, err)

	resp, err := f.client.Get(f.backend.URL + "/teams/stats/total")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/teams/stats/total", echo(t, resp)["path"])

	requests := f.backend.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, tokenA, requests[0].AccessToken)
	assert.EqualValues(t, 0, f.backend.RefreshCalls())
}

func TestRoundTripper_NonUnauthorizedReturnedUnmodified(t *testing.T) {
	f := newFixture(t, []mock.Option{mock.WithResourceHandler(func(w http.ResponseWriter, r *http.Request, user *mock.User) {
		http.Error(w, "nope", http.StatusForbidden)
	})})
	_, err := f.login(t, "user", "user")
	require.NoError(t, err)

	resp, err := f.client.Get(f.backend.URL + "/users")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.EqualValues(t, 0, f.backend.RefreshCalls())
}

func TestRoundTripper_RefreshAndReplay(t *testing.T) {
	f := newFixture(t, nil)
	tokenA, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	resp, err := f.client.Post(f.backend.URL+"/teams", "application/json", strings.NewReader(`{"nombre":"Colo-Colo"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	payload := echo(t, resp)
	assert.Equal(t, `{"nombre":"Colo-Colo"}`, payload["body"], "body must be replayed")

	tokenB := f.accessToken()
	assert.NotEqual(t, tokenA, tokenB)
	assert.EqualValues(t, 1, f.backend.RefreshCalls())
	assert.EqualValues(t, 1, f.rt.Coordinator().RefreshCount())
	requests := f.backend.Requests()
	require.Len(t, requests, 1, "only the replay passes authentication")
	assert.Equal(t, tokenB, requests[0].AccessToken)
}

func TestRoundTripper_ConcurrentSingleRefresh(t *testing.T) {
	f := newFixture(t, []mock.Option{mock.WithRefreshDelay(200 * time.Millisecond)})
	tokenA, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	const callers = 5
	var wg sync.WaitGroup
	paths := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.client.Get(fmt.Sprintf("%s/matches/%d", f.backend.URL, i))
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			payload := map[string]interface{}{}
			errs[i] = json.NewDecoder(resp.Body).Decode(&payload)
			paths[i], _ = payload["path"].(string)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("/matches/%d", i), paths[i])
	}
	assert.EqualValues(t, 1, f.backend.RefreshCalls())
	tokenB := f.accessToken()
	assert.NotEqual(t, tokenA, tokenB)
	requests := f.backend.Requests()
	assert.Len(t, requests, callers)
	for _, request := range requests {
		assert.Equal(t, tokenB, request.AccessToken)
	}
	assert.EqualValues(t, 0, f.expired.Load())
}

func TestRoundTripper_RefreshFailureFanOut(t *testing.T) {
	f := newFixture(t, []mock.Option{mock.WithRefreshDelay(200 * time.Millisecond)})
	_, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()
	f.backend.FailRefresh.Store(true)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.client.Get(fmt.Sprintf("%s/leagues/%d", f.backend.URL, i))
			if resp != nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.ErrorIs(t, err, ErrSessionExpired)
	}
	_, ok := f.store.Get()
	assert.False(t, ok, "credential store must end cleared")
	assert.EqualValues(t, 1, f.backend.RefreshCalls())
	assert.EqualValues(t, 1, f.expired.Load())
	assert.False(t, f.rt.Coordinator().Refreshing())
}

func TestRoundTripper_LoginRejectedWithoutRefresh(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.Set(&oauth2.Token{AccessToken: "stale"}))

	_, err := f.client.PostForm(f.backend.URL+"/token", url.Values{"username": {"admin"}, "password": {"bad"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Credenciales de usuario incorrectas")
	assert.EqualValues(t, 0, f.backend.RefreshCalls())
	assert.EqualValues(t, 0, f.rt.Coordinator().RefreshCount())
}

func TestRoundTripper_RegistrationRejectedWithoutRefresh(t *testing.T) {
	f := newFixture(t, nil, WithCredentialPaths("/token", "/users/register"))
	resp, err := f.client.Post(f.backend.URL+"/users/register/", "application/json", strings.NewReader(`{}`))
	if resp != nil {
		resp.Body.Close()
	}
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.EqualValues(t, 0, f.rt.Coordinator().RefreshCount())
}

func TestRoundTripper_DoubleFailure(t *testing.T) {
	var calls atomic.Int64
	f := newFixture(t, []mock.Option{mock.WithResourceHandler(func(w http.ResponseWriter, r *http.Request, user *mock.User) {
		calls.Add(1)
		http.Error(w, `{"detail":"still no"}`, http.StatusUnauthorized)
	})})
	_, err := f.login(t, "admin", "admin")
	require.NoError(t, err)

	_, err = f.client.Get(f.backend.URL + "/summaries")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 1, f.backend.RefreshCalls(), "no second refresh")
	assert.EqualValues(t, 2, calls.Load(), "original call plus one replay")
	_, ok := f.store.Get()
	assert.True(t, ok, "a double failure does not log out")
}

func TestRoundTripper_AuthorizationPreset(t *testing.T) {
	f := newFixture(t, nil)
	req, err := http.NewRequest(http.MethodGet, f.backend.URL+"/roles", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer mine")
	_, err = f.client.Do(req)
	assert.ErrorIs(t, err, ErrAuthorizationPreset)
	assert.Empty(t, f.backend.Requests())
}

func TestRoundTripper_NetworkError(t *testing.T) {
	f := newFixture(t, nil)
	URL := f.backend.URL
	f.backend.Close()
	_, err := f.client.Get(URL + "/states")
	assert.ErrorIs(t, err, ErrConnectivity)
}

func TestRoundTripper_RefreshTimeout(t *testing.T) {
	f := newFixture(t, []mock.Option{mock.WithRefreshDelay(2 * time.Second)}, WithRefreshTimeout(50*time.Millisecond))
	_, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	started := time.Now()
	_, err = f.client.Get(f.backend.URL + "/seasons")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Less(t, time.Since(started), time.Second)
	_, ok := f.store.Get()
	assert.False(t, ok)
}

func TestRoundTripper_CallerCancellation(t *testing.T) {
	f := newFixture(t, []mock.Option{mock.WithRefreshDelay(300 * time.Millisecond)})
	_, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.backend.URL+"/statistics", nil)
	require.NoError(t, err)
	_, err = f.client.Do(req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		return !f.rt.Coordinator().Refreshing()
	}, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, f.backend.RefreshCalls())
	_, ok := f.store.Get()
	assert.True(t, ok, "refresh completes for the remaining session")
}

func TestRoundTripper_RequiresRefresher(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}

func TestRoundTripper_ResourceEndingLikeCredentialPathRefreshes(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.login(t, "admin", "admin")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	resp, err := f.client.Get(f.backend.URL + "/users/5/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/users/5/register", echo(t, resp)["path"])
	assert.EqualValues(t, 1, f.backend.RefreshCalls())
}

func TestRoundTripper_IsCredentialPath(t *testing.T) {
	testCases := []struct {
		description string
		paths       []string
		URL         string
		expect      bool
	}{
		{description: "exact path", paths: DefaultCredentialPaths, URL: "http://stats.local/token", expect: true},
		{description: "trailing slash", paths: DefaultCredentialPaths, URL: "http://stats.local/refresh/", expect: true},
		{description: "password reset", paths: DefaultCredentialPaths, URL: "http://stats.local/reset-password", expect: true},
		{description: "nested resource", paths: DefaultCredentialPaths, URL: "http://stats.local/users/5/register"},
		{description: "absolute endpoint", paths: []string{"http://stats.local/api/token"}, URL: "http://stats.local/api/token", expect: true},
		{description: "absolute endpoint other host", paths: []string{"http://stats.local/api/token"}, URL: "http://other.local/api/token"},
		{description: "absolute endpoint other base", paths: []string{"http://stats.local/api/token"}, URL: "http://stats.local/token"},
	}
	for _, testCase := range testCases {
		rt := &RoundTripper{credentialPaths: testCase.paths}
		req, err := http.NewRequest(http.MethodPost, testCase.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, testCase.expect, rt.isCredentialPath(req), testCase.description)
	}
}
