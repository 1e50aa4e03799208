package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/statsadmin/client/internal/collection"
)

const (
	// RefreshCookie is the name of the HTTP-only refresh cookie.
	RefreshCookie = "refresh_token"
	// AdminRoleID is the role of backend administrators.
	AdminRoleID = 2
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
	Password string `json:"-"`
	Role     Role   `json:"rol"`
}

// Request is a call observed by a protected endpoint.
type Request struct {
	Method      string
	Path        string
	AccessToken string
	Body        string
}

// BackendService simulates the stats backend.
type BackendService struct {
	PrivateKey *rsa.PrivateKey
	AccessTTL  time.Duration
	// RefreshDelay keeps a refresh in flight, so concurrent calls pile up.
	RefreshDelay time.Duration
	// FailRefresh makes /refresh answer 401.
	FailRefresh atomic.Bool
	// ResourceHandler overrides the default protected echo handler.
	ResourceHandler func(w http.ResponseWriter, r *http.Request, user *User)

	users    *collection.SyncMap[string, *User]
	sessions *collection.SyncMap[string, string]
	resets   *collection.SyncMap[string, string]
	nextID   atomic.Int64

	generation   atomic.Int64
	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	mux          sync.Mutex
	requests     []Request
}

type Option func(*BackendService)

// WithUser registers a user.
func WithUser(username, password string, role Role) Option {
	return func(s *BackendService) {
		s.addUser(&User{Username: username, Email: username + "@stats.local", Password: password, Role: role})
	}
}

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *BackendService) {
		s.AccessTTL = ttl
	}
}

// WithRefreshDelay delays every refresh answer.
func WithRefreshDelay(delay time.Duration) Option {
	return func(s *BackendService) {
		s.RefreshDelay = delay
	}
}

// WithResourceHandler overrides the default protected echo handler.
func WithResourceHandler(handler func(w http.ResponseWriter, r *http.Request, user *User)) Option {
	return func(s *BackendService) {
		s.ResourceHandler = handler
	}
}

// NewBackendService creates a backend with an admin/admin and a user/user account.
func NewBackendService(opts ...Option) (*BackendService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %v", err)
	}
	service := &BackendService{
		PrivateKey: privateKey,
		AccessTTL:  15 * time.Minute,
		users:      collection.NewSyncMap[string, *User](),
		sessions:   collection.NewSyncMap[string, string](),
		resets:     collection.NewSyncMap[string, string](),
	}
	service.addUser(&User{Username: "admin", Email: "admin@stats.local", Password: "admin", Role: Role{ID: AdminRoleID, Name: "Administrador"}})
	service.addUser(&User{Username: "user", Email: "user@stats.local", Password: "user", Role: Role{ID: 1, Name: "Usuario"}})
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *BackendService) addUser(user *User) bool {
	user.ID = int(s.nextID.Add(1))
	return s.users.PutIfAbsent(user.Username, user)
}

// Handler returns the backend router.
func (s *BackendService) Handler() http.Handler {
	return &Handler{Server: s}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *BackendService) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RevokeSessions invalidates every refresh cookie issued so far.
func (s *BackendService) RevokeSessions() {
	s.sessions.Range(func(key string, _ string) bool {
		s.sessions.Delete(key)
		return true
	})
}

// ResetToken returns the password reset token issued for email.
func (s *BackendService) ResetToken(email string) (string, bool) {
	var ret string
	s.resets.Range(func(token string, address string) bool {
		if address == email {
			ret = token
			return false
		}
		return true
	})
	return ret, ret != ""
}

// LoginCalls returns the number of /token calls.
func (s *BackendService) LoginCalls() int64 {
	return s.loginCalls.Load()
}

// RefreshCalls returns the number of /refresh calls.
func (s *BackendService) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// Requests returns the calls observed by protected endpoints.
func (s *BackendService) Requests() []Request {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *BackendService) record(request Request) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.requests = append(s.requests, request)
}
