package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"golang.org/x/time/rate"
)

// PinPoller checks a PIN once.
type PinPoller interface {
	PollPinStatus(ctx context.Context, pinID int64) (string, bool, error)
}

// PollOpts tunes [WaitForPin]. Zero MaxAttempts or Timeout means unbounded.
type PollOpts struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// DefaultPollOpts polls every two seconds for the ten minutes a PIN stays valid.
func DefaultPollOpts() PollOpts {
	return PollOpts{Interval: 2 * time.Second, Timeout: 10 * time.Minute}
}

// PollOptsFromConfig reads the polling policy from config.toml.
func PollOptsFromConfig(cfg shared.PlexConfig) PollOpts {
	return PollOpts{Interval: cfg.PollInterval(), Timeout: cfg.PollTimeout()}
}

// WaitForPin polls pinID until it is authorized and returns the token.
//
// The first check happens immediately; later checks are spaced by opts.Interval.
// Returns [shared.ErrTimeout] once attempts or time run out, ctx's error if ctx is
// cancelled, and any upstream error as soon as it happens.
func WaitForPin(ctx context.Context, poller PinPoller, pinID int64, opts PollOpts) (string, error) {
	return waitForPin(ctx, poller, pinID, opts, nil)
}

func waitForPin(ctx context.Context, poller PinPoller, pinID int64, opts PollOpts, prog chan<- ProgressUpdate) (string, error) {
	parent := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			if parent.Err() != nil {
				return "", parent.Err()
			}
			return "", fmt.Errorf("%w: PIN %d not authorized after %d attempt(s)", shared.ErrTimeout, pinID, attempt-1)
		}

		token, ok, err := poller.PollPinStatus(ctx, pinID)
		if err != nil {
			if parent.Err() == nil && ctx.Err() != nil {
				return "", fmt.Errorf("%w: PIN %d not authorized after %d attempt(s)", shared.ErrTimeout, pinID, attempt)
			}
			return "", err
		}
		if ok {
			return token, nil
		}

		sendProgress(prog, pinPendingUpdate(attempt))

		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return "", fmt.Errorf("%w: PIN %d not authorized after %d attempt(s)", shared.ErrTimeout, pinID, attempt)
		}
	}
}

// LoginOpts configures [PinLogin].
type LoginOpts struct {
	Poll PollOpts

	// OnPin is called once the PIN exists so the caller can show the code or open the auth URL.
	OnPin func(pin models.Pin, authURL string)
}

// LoginResult is a validated token and the account it belongs to.
type LoginResult struct {
	Token string
	User  models.User
}

// PinLogin runs the PIN flow: create, announce, wait for authorization, validate.
func PinLogin(ctx context.Context, auth services.Authenticator, prog chan<- ProgressUpdate, opts LoginOpts) (*LoginResult, error) {
	pin, err := auth.CreatePin(ctx)
	if err != nil {
		sendProgress(prog, loginFailedUpdate(CreatePin, err))
		return nil, err
	}

	authURL := auth.AuthURL(pin.Code)
	sendProgress(prog, pinCreatedUpdate(pin, authURL))
	if opts.OnPin != nil {
		opts.OnPin(pin, authURL)
	}

	token, err := waitForPin(ctx, auth, pin.ID, opts.Poll, prog)
	if err != nil {
		sendProgress(prog, loginFailedUpdate(WaitPin, err))
		return nil, err
	}
	sendProgress(prog, pinAuthorizedUpdate())

	return validate(ctx, auth, prog, token)
}

// TokenLogin accepts an account token or a claim token, exchanging the latter first, and validates the result.
func TokenLogin(ctx context.Context, auth services.Authenticator, prog chan<- ProgressUpdate, token string) (*LoginResult, error) {
	if services.IsClaimToken(token) {
		sendProgress(prog, claimUpdate())

		exchanged, err := auth.ExchangeClaimToken(ctx, token)
		if err != nil {
			sendProgress(prog, loginFailedUpdate(ExchangeClaim, err))
			return nil, err
		}
		token = exchanged
	}

	return validate(ctx, auth, prog, token)
}

// PasswordLogin signs in with credentials. The sign-in response already identifies the account.
func PasswordLogin(ctx context.Context, auth services.Authenticator, prog chan<- ProgressUpdate, login, password string) (*LoginResult, error) {
	sendProgress(prog, signInUpdate(login))

	token, user, err := auth.SignIn(ctx, login, password)
	if err != nil {
		sendProgress(prog, loginFailedUpdate(SignIn, err))
		return nil, err
	}

	sendProgress(prog, validatedUpdate(user))
	return &LoginResult{Token: token, User: user}, nil
}

func validate(ctx context.Context, auth services.Authenticator, prog chan<- ProgressUpdate, token string) (*LoginResult, error) {
	user, err := auth.ValidateToken(ctx, token)
	if err != nil {
		sendProgress(prog, loginFailedUpdate(ValidateToken, err))
		return nil, err
	}

	sendProgress(prog, validatedUpdate(user))
	return &LoginResult{Token: token, User: user}, nil
}
