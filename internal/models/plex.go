package models

import (
	"strings"
	"time"
)

// MusicLibraryType is the section type Plex reports for artist/album catalogs.
const MusicLibraryType = "artist"

// ServerCapability is the capability tag that marks a resource as a media server.
const ServerCapability = "server"

// Pin is a short-lived authorization PIN. Code is shown to the user; ID is used to poll.
type Pin struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// User is the Plex account a token belongs to.
type User struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Thumb    string `json:"thumb,omitempty"`
}

// Connection is one network endpoint of a media server.
type Connection struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	URI      string `json:"uri"`
	Local    bool   `json:"local"`
}

// Secure reports whether the connection uses https.
func (c Connection) Secure() bool {
	return strings.EqualFold(c.Protocol, "https")
}

// Server is a resource registered to the account.
//
// Connections keep the order plex.tv reported them in.
type Server struct {
	ClientIdentifier string       `json:"clientIdentifier"`
	Name             string       `json:"name"`
	Provides         string       `json:"provides"`
	Owned            bool         `json:"owned"`
	AccessToken      string       `json:"-"`
	Connections      []Connection `json:"connections"`
}

// IsMediaServer reports whether the resource is a plain media server. Mixed entries such as
// "client,server,player" are players that happen to host content and are not listed.
func (s Server) IsMediaServer() bool {
	return s.Provides == ServerCapability
}

// Library is a content section on a media server.
type Library struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Agent    string `json:"agent,omitempty"`
	Scanner  string `json:"scanner,omitempty"`
	Language string `json:"language,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

// IsMusic reports whether the library is an artist/album catalog.
func (l Library) IsMusic() bool {
	return l.Type == MusicLibraryType
}

// PlayRecord is one play-history entry.
type PlayRecord struct {
	Key              string `json:"key"`
	Title            string `json:"title"`
	ParentTitle      string `json:"parentTitle,omitempty"`      // album
	GrandparentTitle string `json:"grandparentTitle,omitempty"` // artist
	ViewedAt         int64  `json:"viewedAt"`                   // epoch seconds
	Duration         int64  `json:"duration,omitempty"`         // milliseconds
	Type             string `json:"type"`
}

// ViewedTime returns ViewedAt as a UTC [time.Time].
func (p PlayRecord) ViewedTime() time.Time {
	return time.Unix(p.ViewedAt, 0).UTC()
}

// MusicLibrary pairs a music library with the server it lives on.
type MusicLibrary struct {
	Server  Server  `json:"server"`
	Library Library `json:"library"`
}

// AuthState tracks a login from PIN creation to a validated token.
type AuthState string

const (
	AuthCreated    AuthState = "created"
	AuthPending    AuthState = "pending"
	AuthAuthorized AuthState = "authorized"
	AuthValidated  AuthState = "validated"
	AuthFailed     AuthState = "failed"
)

// Valid reports whether s is a known state.
func (s AuthState) Valid() bool {
	switch s {
	case AuthCreated, AuthPending, AuthAuthorized, AuthValidated, AuthFailed:
		return true
	}
	return false
}
