package flow

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// PasswordFlow logs in with a form encoded username and password
// (grant_type=password) and returns the issued access credential.
type PasswordFlow struct{}

func (s *PasswordFlow) Token(ctx context.Context, config *oauth2.Config, username, password string, options ...Option) (*oauth2.Token, error) {
	opts := NewOptions(options)
	if opts.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.httpClient)
	}
	cfg := *config
	cfg.Scopes = append(append([]string{}, config.Scopes...), opts.scopes...)
	tkn, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if tkn == nil || tkn.AccessToken == "" {
		return nil, fmt.Errorf("failed to get token")
	}
	return tkn, nil
}

// NewConfig returns an oauth2 config for a login endpoint that expects the
// credentials in the form body.
func NewConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func NewPasswordFlow() *PasswordFlow {
	return &PasswordFlow{}
}
