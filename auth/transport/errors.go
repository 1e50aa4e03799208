package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when a credential issuing endpoint
	// (login, registration, refresh) answers 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a replayed call is rejected again
	// after a successful refresh.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired is returned to every parked call when the refresh fails.
	ErrSessionExpired = errors.New("session expired")
	// ErrConnectivity classifies connection level failures.
	ErrConnectivity = errors.New("connectivity error")
	// ErrAuthorizationPreset is returned when a caller sets Authorization itself.
	ErrAuthorizationPreset = errors.New("authorization header must not be set by caller")
	// ErrRefreshRejected is returned by a Refresher when the backend does not
	// issue a new credential.
	ErrRefreshRejected = errors.New("refresh rejected")
)

// CredentialsError carries the backend message of a rejected login.
type CredentialsError struct {
	StatusCode int
	Detail     string
}

func (e *CredentialsError) Error() string {
	if e.Detail == "" {
		return ErrInvalidCredentials.Error()
	}
	return fmt.Sprintf("%v: %v", ErrInvalidCredentials, e.Detail)
}

func (e *CredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// SessionError is the rejection delivered to parked calls after a failed
// refresh. It matches both ErrSessionExpired and ErrUnauthorized.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%v: %v", ErrSessionExpired, e.Err)
}

func (e *SessionError) Is(target error) bool {
	return target == ErrSessionExpired || target == ErrUnauthorized
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transport level failure.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v %v %v: %v", ErrConnectivity, e.Method, e.URL, e.Err)
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrConnectivity
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
