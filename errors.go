package client

import (
	"errors"
	"fmt"

	"github.com/statsadmin/client/auth/transport"
)

var (
	ErrInvalidCredentials  = transport.ErrInvalidCredentials
	ErrUnauthorized        = transport.ErrUnauthorized
	ErrSessionExpired      = transport.ErrSessionExpired
	ErrConnectivity        = transport.ErrConnectivity
	ErrAuthorizationPreset = transport.ErrAuthorizationPreset
	ErrRefreshRejected     = transport.ErrRefreshRejected
	// ErrForbiddenRole is returned when the logged in user lacks the required role.
	ErrForbiddenRole = errors.New("forbidden role")
)

type (
	CredentialsError = transport.CredentialsError
	SessionError     = transport.SessionError
	NetworkError     = transport.NetworkError
)

// StatusError is a non 2xx answer of a JSON call.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v %v: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%v %v: status %d: %v", e.Method, e.URL, e.StatusCode, e.Detail)
}
