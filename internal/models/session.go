package models

import (
	"fmt"
	"time"
)

// Session is a browser login session held by the HTTP host.
//
// A session starts with a PIN and, once the PIN is authorized, stores the account token and user.
// The token is never serialized.
type Session struct {
	id        string
	sequence  int
	pinID     int64
	pinCode   string
	token     string
	user      User
	state     AuthState
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSession creates a session for pin that expires after ttl.
func NewSession(sequence int, pin Pin, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		sequence:  sequence,
		pinID:     pin.ID,
		pinCode:   pin.Code,
		state:     AuthCreated,
		expiresAt: now.Add(ttl),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Sequence() int         { return s.sequence }
func (s *Session) PinID() int64          { return s.pinID }
func (s *Session) PinCode() string       { return s.pinCode }
func (s *Session) Token() string         { return s.token }
func (s *Session) User() User            { return s.user }
func (s *Session) State() AuthState      { return s.state }
func (s *Session) ExpiresAt() time.Time  { return s.expiresAt }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }

func (s *Session) SetID(id string)           { s.id = id }
func (s *Session) SetSequence(seq int)       { s.sequence = seq }
func (s *Session) SetState(state AuthState)  { s.state = state }
func (s *Session) SetCreatedAt(t time.Time)  { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time) { s.deletedAt = t }
func (s *Session) SetExpiresAt(t time.Time)  { s.expiresAt = t }
func (s *Session) SetPin(pin Pin)            { s.pinID, s.pinCode = pin.ID, pin.Code }
func (s *Session) SetUser(u User)            { s.user = u }
func (s *Session) SetToken(token string)     { s.token = token }

// Authorize stores the validated token and user, clears the PIN, and extends the expiry by ttl.
func (s *Session) Authorize(token string, user User, ttl time.Duration) {
	s.token = token
	s.user = user
	s.state = AuthValidated
	s.pinID, s.pinCode = 0, ""
	s.expiresAt = time.Now().Add(ttl)
}

// Authenticated reports whether the session carries a validated token.
func (s *Session) Authenticated() bool {
	return s.state == AuthValidated && s.token != ""
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// Validate checks the session's invariants.
func (s *Session) Validate() error {
	if !s.state.Valid() {
		return fmt.Errorf("invalid auth state: %q", s.state)
	}
	if s.expiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	if s.state == AuthValidated && s.token == "" {
		return fmt.Errorf("validated session requires a token")
	}
	if s.state != AuthValidated && s.pinID == 0 {
		return fmt.Errorf("pending session requires a pin")
	}
	return nil
}
