package flow

import "net/http"

// Options holds login flow settings.
type Options struct {
	scopes     []string
	httpClient *http.Client
}

// Option configures a flow.
type Option func(*Options)

// WithScopes adds requested scopes to the login.
func WithScopes(scopes ...string) Option {
	return func(o *Options) {
		o.scopes = append(o.scopes, scopes...)
	}
}

// WithHTTPClient sets the client the login request goes through. The client
// should share the cookie jar with the refresher so the refresh cookie set
// by the login response is kept.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.httpClient = client
	}
}

func NewOptions(options []Option) *Options {
	ret := &Options{}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
