package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Refresher exchanges the durable refresh artifact for a new access credential.
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// CookieRefresher posts an empty body to URL and relies on the refresh cookie
// carried by transport (see WrapWithCookieJar).
type CookieRefresher struct {
	URL       string
	transport http.RoundTripper
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

func (c *CookieRefresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.transport.RoundTrip(req)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: c.URL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := ErrorDetail(resp)
		return nil, fmt.Errorf("%w: status %d %s", ErrRefreshRejected, resp.StatusCode, detail)
	}
	defer discard(resp)
	payload := &tokenResponse{}
	if err = json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token: %v", ErrRefreshRejected, err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrRefreshRejected)
	}
	token := &oauth2.Token{AccessToken: payload.AccessToken, TokenType: payload.TokenType}
	if payload.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return token, nil
}

// NewCookieRefresher creates a refresher posting to URL through transport.
func NewCookieRefresher(URL string, transport http.RoundTripper) *CookieRefresher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CookieRefresher{URL: URL, transport: transport}
}
