package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs/url"
)

const (
	defaultBaseURL      = "http://127.0.0.1:8000"
	defaultLoginPath    = "/token"
	defaultRefreshPath  = "/refresh"
	defaultRegisterPath = "/register"
	defaultMePath       = "/users/me/"
	defaultRequestReset = "/request-password-reset"
	defaultResetPath    = "/reset-password"
	defaultTimeout      = 30 * time.Second
	tokenFile           = "token.json"
	secretFile          = "token.enc"
	cookieFile          = "cookies.json"
)

// ClientOptions defines options for configuring a stats backend client.
type ClientOptions struct {
	BaseURL           string        `yaml:"baseURL" json:"baseURL,omitempty" short:"u" long:"url" env:"STATS_BASE_URL" description:"backend base URL"`
	LoginPath         string        `yaml:"loginPath,omitempty" json:"loginPath,omitempty" long:"login-path" env:"STATS_LOGIN_PATH" description:"login endpoint"`
	RefreshPath       string        `yaml:"refreshPath,omitempty" json:"refreshPath,omitempty" long:"refresh-path" env:"STATS_REFRESH_PATH" description:"refresh endpoint"`
	RegisterPath      string        `yaml:"registerPath,omitempty" json:"registerPath,omitempty" long:"register-path" env:"STATS_REGISTER_PATH" description:"registration endpoint"`
	RequestResetPath  string        `yaml:"requestResetPath,omitempty" json:"requestResetPath,omitempty" long:"request-reset-path" env:"STATS_REQUEST_RESET_PATH" description:"password reset request endpoint"`
	ResetPasswordPath string        `yaml:"resetPasswordPath,omitempty" json:"resetPasswordPath,omitempty" long:"reset-password-path" env:"STATS_RESET_PASSWORD_PATH" description:"password reset endpoint"`
	MePath            string        `yaml:"mePath,omitempty" json:"mePath,omitempty" long:"me-path" env:"STATS_ME_PATH" description:"current user endpoint"`
	Timeout           time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" long:"timeout" env:"STATS_TIMEOUT" description:"request and refresh timeout"`
	Auth              ClientAuth    `yaml:"auth,omitempty" json:"auth,omitempty"`
	LogLevel          string        `yaml:"logLevel,omitempty" json:"logLevel,omitempty" long:"log-level" env:"STATS_LOG_LEVEL" description:"log level, e.g. debug, info, warn"`
}

// ClientAuth defines credential persistence options.
type ClientAuth struct {
	// SessionDir keeps the credential and the refresh cookie between runs.
	// Empty means in-memory only.
	SessionDir string `yaml:"sessionDir,omitempty" json:"sessionDir,omitempty" short:"s" long:"session-dir" env:"STATS_SESSION_DIR" description:"session directory"`
	// EncryptionKey is a scy key URL, e.g. blowfish://default; when set the
	// credential is stored encrypted.
	EncryptionKey string `yaml:"encryptionKey,omitempty" json:"encryptionKey,omitempty" short:"k" long:"key" env:"STATS_ENCRYPTION_KEY" description:"encryption key"`
	// WithCredentials sends and keeps cookies (the refresh cookie) on every call.
	WithCredentials *bool `yaml:"withCredentials,omitempty" json:"withCredentials,omitempty" env:"STATS_WITH_CREDENTIALS" no-flag:"true"`
}

// LoadEnv overrides options with STATS_* environment variables.
func (c *ClientOptions) LoadEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

func (c *ClientOptions) Init() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.RefreshPath == "" {
		c.RefreshPath = defaultRefreshPath
	}
	if c.RegisterPath == "" {
		c.RegisterPath = defaultRegisterPath
	}
	if c.RequestResetPath == "" {
		c.RequestResetPath = defaultRequestReset
	}
	if c.ResetPasswordPath == "" {
		c.ResetPasswordPath = defaultResetPath
	}
	if c.MePath == "" {
		c.MePath = defaultMePath
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Auth.WithCredentials == nil {
		withCredentials := true
		c.Auth.WithCredentials = &withCredentials
	}
}

// URL resolves a backend path.
func (c *ClientOptions) URL(resource string) string {
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		return resource
	}
	return c.BaseURL + "/" + strings.TrimLeft(resource, "/")
}

// credentialPaths lists the endpoints called without a session; a 401 from
// them is a rejection, never a reason to refresh.
func (c *ClientOptions) credentialPaths() []string {
	var ret []string
	for _, resource := range []string{c.LoginPath, c.RegisterPath, c.RefreshPath, c.RequestResetPath, c.ResetPasswordPath} {
		ret = append(ret, c.URL(resource))
	}
	return ret
}

func (c *ClientOptions) sessionURL(name string) string {
	return url.Join(c.Auth.SessionDir, name)
}

func (c *ClientOptions) logLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
