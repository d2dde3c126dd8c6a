package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

type pollStep struct {
	token string
	ok    bool
	err   error
}

// scriptedAuth replays a fixed sequence of poll results; the last one repeats.
type scriptedAuth struct {
	steps    []pollStep
	calls    atomic.Int32
	pinErr   error
	user     models.User
	validErr error
	claimed  string
}

func (s *scriptedAuth) PollPinStatus(ctx context.Context, pinID int64) (string, bool, error) {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.steps) {
		n = len(s.steps) - 1
	}
	st := s.steps[n]
	return st.token, st.ok, st.err
}

func (s *scriptedAuth) CreatePin(ctx context.Context) (models.Pin, error) {
	if s.pinErr != nil {
		return models.Pin{}, s.pinErr
	}
	return models.Pin{ID: 5, Code: "CODE"}, nil
}

func (s *scriptedAuth) ExchangeClaimToken(ctx context.Context, claim string) (string, error) {
	s.claimed = claim
	return "exchanged", nil
}

func (s *scriptedAuth) ValidateToken(ctx context.Context, token string) (models.User, error) {
	if s.validErr != nil {
		return models.User{}, s.validErr
	}
	return s.user, nil
}

func (s *scriptedAuth) SignIn(ctx context.Context, login, password string) (string, models.User, error) {
	if password != "correct" {
		return "", models.User{}, &shared.AuthenticationError{Op: "sign in", Err: shared.ErrInvalidCredentials}
	}
	return "signed-in", s.user, nil
}

func (s *scriptedAuth) AuthURL(code string) string { return "https://app.plex.tv/auth#?code=" + code }

func pending(n int) []pollStep {
	steps := make([]pollStep, n)
	return steps
}

func TestWaitForPin(t *testing.T) {
	t.Run("returns token after pending polls", func(t *testing.T) {
		auth := &scriptedAuth{steps: append(pending(2), pollStep{token: "tok", ok: true})}

		token, err := WaitForPin(context.Background(), auth, 5, PollOpts{Interval: time.Millisecond})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "tok" {
			t.Errorf("expected tok, got %s", token)
		}
		if auth.calls.Load() != 3 {
			t.Errorf("expected 3 polls, got %d", auth.calls.Load())
		}
	})

	t.Run("max attempts", func(t *testing.T) {
		auth := &scriptedAuth{steps: pending(1)}

		_, err := WaitForPin(context.Background(), auth, 5, PollOpts{MaxAttempts: 4})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if auth.calls.Load() != 4 {
			t.Errorf("expected 4 polls, got %d", auth.calls.Load())
		}
	})

	t.Run("timeout", func(t *testing.T) {
		auth := &scriptedAuth{steps: pending(1)}

		start := time.Now()
		_, err := WaitForPin(context.Background(), auth, 5, PollOpts{Interval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("timeout took too long")
		}
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		auth := &scriptedAuth{steps: pending(1)}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := WaitForPin(ctx, auth, 5, PollOpts{Interval: time.Hour})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("upstream error stops polling", func(t *testing.T) {
		boom := &shared.UpstreamError{Op: "check PIN status", StatusCode: 404, Status: "Not Found"}
		auth := &scriptedAuth{steps: append(pending(1), pollStep{err: boom})}

		_, err := WaitForPin(context.Background(), auth, 5, PollOpts{})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if auth.calls.Load() != 2 {
			t.Errorf("expected 2 polls, got %d", auth.calls.Load())
		}
	})
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestPinLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		auth := &scriptedAuth{
			steps: append(pending(1), pollStep{token: "tok", ok: true}),
			user:  models.User{Username: "alice"},
		}
		prog := make(chan ProgressUpdate, 32)

		var announced models.Pin
		var announcedURL string
		result, err := PinLogin(context.Background(), auth, prog, LoginOpts{
			OnPin: func(pin models.Pin, url string) { announced, announcedURL = pin, url },
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Token != "tok" || result.User.Username != "alice" {
			t.Errorf("unexpected result %+v", result)
		}
		if announced.Code != "CODE" || announcedURL == "" {
			t.Errorf("expected pin to be announced, got %+v %q", announced, announcedURL)
		}

		var states []models.AuthState
		for _, u := range drain(prog) {
			states = append(states, u.State)
		}
		want := []models.AuthState{models.AuthCreated, models.AuthPending, models.AuthAuthorized, models.AuthValidated}
		if len(states) != len(want) {
			t.Fatalf("expected states %v, got %v", want, states)
		}
		for i := range want {
			if states[i] != want[i] {
				t.Errorf("state %d = %s, want %s", i, states[i], want[i])
			}
		}
	})

	t.Run("create failure", func(t *testing.T) {
		auth := &scriptedAuth{pinErr: &shared.UpstreamError{Op: "create Plex PIN", StatusCode: 503}}
		prog := make(chan ProgressUpdate, 8)

		if _, err := PinLogin(context.Background(), auth, prog, LoginOpts{}); err == nil {
			t.Fatal("expected error")
		}

		updates := drain(prog)
		if len(updates) != 1 || updates[0].State != models.AuthFailed {
			t.Errorf("expected a single failed update, got %+v", updates)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		auth := &scriptedAuth{
			steps:    []pollStep{{token: "tok", ok: true}},
			validErr: &shared.AuthenticationError{Op: "get Plex user", Err: shared.ErrTokenExpired},
		}

		_, err := PinLogin(context.Background(), auth, nil, LoginOpts{})
		if !shared.IsAuthError(err) {
			t.Errorf("expected auth error, got %v", err)
		}
	})
}

func TestTokenLogin(t *testing.T) {
	t.Run("claim token is exchanged", func(t *testing.T) {
		auth := &scriptedAuth{user: models.User{Username: "alice"}}

		result, err := TokenLogin(context.Background(), auth, nil, "claim-xyz")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.claimed != "claim-xyz" || result.Token != "exchanged" {
			t.Errorf("expected exchanged token, got %+v (claimed %q)", result, auth.claimed)
		}
	})

	t.Run("account token is validated as is", func(t *testing.T) {
		auth := &scriptedAuth{user: models.User{Username: "alice"}}

		result, err := TokenLogin(context.Background(), auth, nil, "plain")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth.claimed != "" || result.Token != "plain" {
			t.Errorf("unexpected result %+v", result)
		}
	})
}

func TestPasswordLogin(t *testing.T) {
	auth := &scriptedAuth{user: models.User{Username: "alice"}}

	result, err := PasswordLogin(context.Background(), auth, nil, "alice", "correct")
	if err != nil || result.Token != "signed-in" {
		t.Errorf("got (%+v, %v)", result, err)
	}

	if _, err := PasswordLogin(context.Background(), auth, nil, "alice", "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSendProgress(t *testing.T) {
	t.Run("nil channel", func(t *testing.T) {
		sendProgress(nil, ProgressUpdate{})
	})

	t.Run("full channel does not block", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		sendProgress(ch, ProgressUpdate{Message: "first"})
		sendProgress(ch, ProgressUpdate{Message: "second"})

		if u := <-ch; u.Message != "first" {
			t.Errorf("expected first update, got %s", u.Message)
		}
	})
}

func TestPhaseString(t *testing.T) {
	if CreatePin.String() != "create_pin" || BuildSummary.String() != "summarize" {
		t.Error("unexpected phase names")
	}
	if Phase(99).String() != "" {
		t.Error("unknown phase should be empty")
	}
}
