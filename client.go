package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/statsadmin/client/auth/flow"
	"github.com/statsadmin/client/auth/store"
	"github.com/statsadmin/client/auth/transport"
	"golang.org/x/oauth2"
)

// Role mirrors the backend role resource.
type Role struct {
	ID   int    `json:"id_rol"`
	Name string `json:"nombre_rol"`
}

// User mirrors the backend user resource.
type User struct {
	ID       int    `json:"id_usuario"`
	Username string `json:"usuario"`
	Email    string `json:"correo"`
	Role     Role   `json:"rol"`
}

// AdminRoleID is the backend administrator role.
const AdminRoleID = 2

// Client performs authenticated calls against the stats backend.
type Client struct {
	options    *ClientOptions
	store      store.Store
	jar        http.CookieJar
	inner      http.RoundTripper
	logger     logrus.FieldLogger
	onExpired  func(error)
	rt         *transport.RoundTripper
	httpClient *http.Client
	login      *flow.PasswordFlow
}

// Option represents a client option
type Option func(c *Client)

// WithStore overrides the credential store derived from ClientOptions.Auth.
func WithStore(aStore store.Store) Option {
	return func(c *Client) {
		c.store = aStore
	}
}

// WithCookieJar overrides the cookie jar derived from ClientOptions.Auth.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithTransport sets the transport the authenticated calls go through.
func WithTransport(inner http.RoundTripper) Option {
	return func(c *Client) {
		c.inner = inner
	}
}

// WithLogger sets logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// OnSessionExpired registers the callback of a forced logout: the refresh
// failed, the credential was cleared and the user has to log in again.
func OnSessionExpired(fn func(err error)) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// NewClient creates a client configured via ClientOptions.
func NewClient(options *ClientOptions, opts ...Option) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}
	options.Init()
	ret := &Client{options: options, inner: http.DefaultTransport, login: flow.NewPasswordFlow()}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.logger == nil {
		logger := logrus.New()
		logger.SetLevel(options.logLevel())
		ret.logger = logger
	}
	if err := ret.initSession(); err != nil {
		return nil, err
	}
	transportOpts := []transport.Option{
		transport.WithStore(ret.store),
		transport.WithTransport(ret.inner),
		transport.WithRefreshURL(options.URL(options.RefreshPath)),
		transport.WithRefreshTimeout(options.Timeout),
		transport.WithCredentialPaths(options.credentialPaths()...),
		transport.WithLogger(ret.logger),
		transport.WithSessionExpiredHandler(ret.sessionExpired),
	}
	if ret.jar != nil {
		transportOpts = append(transportOpts, transport.WithCookieJar(ret.jar))
	}
	rt, err := transport.New(transportOpts...)
	if err != nil {
		return nil, err
	}
	ret.rt = rt
	ret.httpClient = &http.Client{Transport: rt}
	return ret, nil
}

// initSession picks the credential store and the cookie jar.
func (c *Client) initSession() error {
	auth := c.options.Auth
	if c.store == nil {
		switch {
		case auth.SessionDir != "" && auth.EncryptionKey != "":
			c.store = store.NewSecretStore(c.options.sessionURL(secretFile), auth.EncryptionKey)
		case auth.SessionDir != "":
			c.store = store.NewFileStore(c.options.sessionURL(tokenFile))
		default:
			c.store = store.NewMemoryStore()
		}
	}
	if c.jar != nil || !*auth.WithCredentials {
		return nil
	}
	var err error
	if auth.SessionDir != "" {
		c.jar, err = transport.NewFileJar(c.options.sessionURL(cookieFile))
	} else {
		c.jar, err = transport.NewMemoryJar()
	}
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return nil
}

func (c *Client) sessionExpired(err error) {
	c.logger.WithError(err).Warn("session expired, login required")
	if c.onExpired != nil {
		c.onExpired(err)
	}
}

// Store returns the credential store.
func (c *Client) Store() store.Store {
	return c.store
}

// RoundTripper returns the authenticating transport.
func (c *Client) RoundTripper() *transport.RoundTripper {
	return c.rt
}

// HTTPClient returns an http.Client whose calls are authenticated.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// LoggedIn reports whether a credential is held.
func (c *Client) LoggedIn() bool {
	_, ok := c.store.Get()
	return ok
}

// Do performs an authenticated call; resource is a path relative to the
// base URL or an absolute URL.
func (c *Client) Do(ctx context.Context, method, resource string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.options.URL(resource), body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.httpClient.Do(req)
}

func (c *Client) Get(ctx context.Context, resource string, out interface{}) error {
	return c.send(ctx, http.MethodGet, resource, nil, out)
}

func (c *Client) Post(ctx context.Context, resource string, in, out interface{}) error {
	return c.send(ctx, http.MethodPost, resource, in, out)
}

func (c *Client) Put(ctx context.Context, resource string, in, out interface{}) error {
	return c.send(ctx, http.MethodPut, resource, in, out)
}

func (c *Client) Patch(ctx context.Context, resource string, in, out interface{}) error {
	return c.send(ctx, http.MethodPatch, resource, in, out)
}

func (c *Client) Delete(ctx context.Context, resource string, out interface{}) error {
	return c.send(ctx, http.MethodDelete, resource, nil, out)
}

// send performs a JSON call; a non 2xx answer becomes *StatusError.
func (c *Client) send(ctx context.Context, method, resource string, in, out interface{}) error {
	header := http.Header{"Accept": {"application/json"}}
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %v %v payload: %w", method, resource, err)
		}
		body = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(ctx, method, resource, body, header)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Detail: transport.ErrorDetail(resp)}
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %v %v response: %w", method, resource, err)
	}
	return nil
}

// Login exchanges username and password for a credential and stores it.
// The refresh cookie set by the backend is kept by the cookie jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	config := flow.NewConfig(c.options.URL(c.options.LoginPath))
	token, err := c.login.Token(ctx, config, username, password, flow.WithHTTPClient(c.httpClient))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return &CredentialsError{StatusCode: retrieveErr.Response.StatusCode, Detail: transport.ParseDetail(retrieveErr.Body)}
			}
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return err
		}
		return fmt.Errorf("login failed: %w", err)
	}
	if err = c.store.Set(token); err != nil {
		c.logger.WithError(err).Warn("failed to persist credential")
	}
	c.logger.WithField("user", username).Info("logged in")
	return nil
}

// Register creates a user account; the call is never refreshed.
func (c *Client) Register(ctx context.Context, payload, out interface{}) error {
	return c.Post(ctx, c.options.RegisterPath, payload, out)
}

// RequestPasswordReset asks the backend to send a reset token, e.g.
// {"correo": "..."}. No session is needed.
func (c *Client) RequestPasswordReset(ctx context.Context, payload, out interface{}) error {
	return c.Post(ctx, c.options.RequestResetPath, payload, out)
}

// ResetPassword sets a new password with a reset token, e.g.
// {"token": "...", "nueva_contrasena": "..."}. A rejected token is
// ErrInvalidCredentials.
func (c *Client) ResetPassword(ctx context.Context, payload, out interface{}) error {
	return c.Post(ctx, c.options.ResetPasswordPath, payload, out)
}

// Me returns the logged in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	user := &User{}
	if err := c.Get(ctx, c.options.MePath, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequireRole checks that the logged in user has roleID. Otherwise the
// session (credential and refresh cookie) is dropped and ErrForbiddenRole
// returned.
func (c *Client) RequireRole(ctx context.Context, roleID int) (*User, error) {
	user, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	if user.Role.ID == roleID {
		return user, nil
	}
	if err = c.Logout(); err != nil {
		c.logger.WithError(err).Warn("failed to clear session")
	}
	return nil, fmt.Errorf("%w: user %v has role %v", ErrForbiddenRole, user.Username, user.Role.Name)
}

// Logout forgets the credential and the refresh cookie.
func (c *Client) Logout() error {
	var errs []error
	if err := c.store.Clear(); err != nil {
		errs = append(errs, err)
	}
	if clearer, ok := c.jar.(interface{ Clear() error }); ok {
		if err := clearer.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
