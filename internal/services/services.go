package services

import (
	"context"
	"time"

	"github.com/desertthunder/plexwrapped/internal/models"
)

// Authenticator obtains and checks Plex account tokens.
type Authenticator interface {
	// CreatePin asks plex.tv for a new strong PIN.
	CreatePin(ctx context.Context) (models.Pin, error)

	// PollPinStatus checks a PIN once. It returns the token and true once the user has
	// authorized the PIN, or "" and false while it is still pending.
	PollPinStatus(ctx context.Context, pinID int64) (string, bool, error)

	// ExchangeClaimToken trades a short-lived claim token for a durable token.
	ExchangeClaimToken(ctx context.Context, claim string) (string, error)

	// ValidateToken returns the account a token belongs to.
	ValidateToken(ctx context.Context, token string) (models.User, error)

	// SignIn authenticates with a username or email and a password.
	SignIn(ctx context.Context, login, password string) (string, models.User, error)

	// AuthURL returns the page where the user authorizes the PIN code.
	AuthURL(code string) string
}

// Directory discovers servers, music libraries and play history for a token.
type Directory interface {
	ListServers(ctx context.Context, token string) ([]models.Server, error)
	ListLibraries(ctx context.Context, serverURL, token string) ([]models.Library, error)
	ProbeServers(ctx context.Context, servers []models.Server, token string) []ServerOutcome
	FindMusicLibraries(ctx context.Context, servers []models.Server, token string) []models.MusicLibrary
	FetchPlayHistory(ctx context.Context, serverURL, token, sectionID string, limit int) ([]models.PlayRecord, error)
}

// Recorder receives request and probe observations. [metrics.Collector] implements it.
type Recorder interface {
	ObserveRequest(op string, statusCode int, elapsed time.Duration)
	ProbeFailed(server string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, int, time.Duration) {}
func (nopRecorder) ProbeFailed(string)                        {}

var (
	_ Authenticator = (*Client)(nil)
	_ Directory     = (*Client)(nil)
)
