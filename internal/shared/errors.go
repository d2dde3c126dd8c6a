package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("token rejected or expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrProtocol           = fmt.Errorf("unexpected response")
	ErrNoConnection       = fmt.Errorf("server has no available connections")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrLibraryNotFound    = fmt.Errorf("music library not found")
	ErrSessionNotFound    = fmt.Errorf("session not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// UpstreamError is returned for any non-success HTTP status from plex.tv or a media server.
type UpstreamError struct {
	Op         string // e.g. "create Plex PIN"
	StatusCode int
	Status     string // reason text, e.g. "Service Unavailable"
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("failed to %s: %d %s", e.Op, e.StatusCode, e.Status)
}

func (e *UpstreamError) Unwrap() error { return ErrAPIRequest }

// AuthenticationError means a credential or token was rejected (HTTP 401).
//
// Err is [ErrInvalidCredentials] for password sign-in and [ErrTokenExpired] for token validation.
type AuthenticationError struct {
	Op  string
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Is reports a match against [ErrAuthFailed] so callers can branch on "re-authenticate".
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthFailed
}

// ProtocolError is a successful response that lacks an expected field.
type ProtocolError struct {
	Op    string
	Field string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("failed to %s: response missing %q", e.Op, e.Field)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// NoConnectionError is returned when a server record carries no network endpoint.
type NoConnectionError struct {
	Server string
}

func (e *NoConnectionError) Error() string {
	return fmt.Sprintf("server %q has no available connections", e.Server)
}

func (e *NoConnectionError) Unwrap() error { return ErrNoConnection }

// IsAuthError reports whether err should send the user back through login.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrNotAuthenticated)
}
