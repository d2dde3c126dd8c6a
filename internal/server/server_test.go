package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plexwrapped/internal/metrics"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/repositories"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
	th "github.com/desertthunder/plexwrapped/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
)

// lockedBuffer is written by server goroutines while tests read it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testHost struct {
	plex     *th.FakePlex
	sessions *repositories.SessionRepository
	server   *Server
	http     *httptest.Server
	client   *http.Client
	logs     *lockedBuffer
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()

	plex := th.NewFakePlex(t)

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "wrapped.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	var logs lockedBuffer
	logger := shared.NewLogger(&logs)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	client := services.NewClient(services.Options{
		BaseURL:      plex.URL,
		ClientID:     "test-client",
		Logger:       logger,
		Recorder:     collector,
		ProbeTimeout: 2 * time.Second,
	})

	sessions := repositories.NewSessionRepository(db)
	srv, err := New(Options{
		Auth:      client,
		Directory: client,
		Sessions:  sessions,
		Metrics:   collector,
		Gatherer:  reg,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &testHost{
		plex:     plex,
		sessions: sessions,
		server:   srv,
		http:     ts,
		client:   &http.Client{Jar: jar},
		logs:     &logs,
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad URL %q: %v", raw, err)
	}
	return u
}

func (h *testHost) do(t *testing.T, method, path string, out any) int {
	t.Helper()

	req, err := http.NewRequest(method, h.http.URL+path, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (h *testHost) login(t *testing.T) {
	t.Helper()

	if code := h.do(t, http.MethodPost, "/auth/login", nil); code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	var check checkPinResponse
	if code := h.do(t, http.MethodPost, "/api/auth/check-pin", &check); code != http.StatusOK || !check.Authenticated {
		t.Fatalf("check-pin: expected authenticated 200, got %d %+v", code, check)
	}
}

func TestAuthRoutes(t *testing.T) {
	t.Run("login returns pin and auth URL and sets cookie", func(t *testing.T) {
		h := newTestHost(t)

		var body loginResponse
		if code := h.do(t, http.MethodPost, "/auth/login", &body); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}

		if body.Pin.ID != h.plex.PinID || body.Pin.Code != h.plex.PinCode {
			t.Errorf("unexpected pin: %+v", body.Pin)
		}
		if !strings.Contains(body.AuthURL, "code="+h.plex.PinCode) {
			t.Errorf("auth URL missing code: %s", body.AuthURL)
		}

		cookies := h.client.Jar.Cookies(mustURL(t, h.http.URL))
		if len(cookies) != 1 || cookies[0].Name != SessionCookie {
			t.Fatalf("expected session cookie, got %v", cookies)
		}

		session, err := h.sessions.Get(cookies[0].Value)
		if err != nil {
			t.Fatalf("session not stored: %v", err)
		}
		if session.PinID() != h.plex.PinID || session.Token() != "" {
			t.Errorf("unexpected stored session: pin=%d", session.PinID())
		}
		if ttl := time.Until(session.ExpiresAt()); ttl > PinSessionTTL || ttl < PinSessionTTL-time.Minute {
			t.Errorf("expected pin TTL near %v, got %v", PinSessionTTL, ttl)
		}
	})

	t.Run("check-pin without session is 400", func(t *testing.T) {
		h := newTestHost(t)

		if code := h.do(t, http.MethodPost, "/api/auth/check-pin", nil); code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", code)
		}
	})

	t.Run("check-pin pending then authorized", func(t *testing.T) {
		h := newTestHost(t)
		h.plex.PendingFor = 1

		h.do(t, http.MethodPost, "/auth/login", nil)

		var check checkPinResponse
		h.do(t, http.MethodPost, "/api/auth/check-pin", &check)
		if check.Authenticated {
			t.Fatal("expected pending on first poll")
		}

		check = checkPinResponse{}
		if code := h.do(t, http.MethodPost, "/api/auth/check-pin", &check); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if !check.Authenticated || check.User == nil || check.User.Username != "listener" {
			t.Fatalf("expected authenticated listener, got %+v", check)
		}

		var me models.User
		if code := h.do(t, http.MethodGet, "/api/me", &me); code != http.StatusOK {
			t.Fatalf("expected 200 from /api/me, got %d", code)
		}
		if me.Username != "listener" {
			t.Errorf("expected listener, got %q", me.Username)
		}

		if strings.Contains(h.logs.String(), h.plex.Token) {
			t.Error("token must not appear in logs")
		}
	})

	t.Run("check-pin upstream failure is 500", func(t *testing.T) {
		h := newTestHost(t)
		session := models.NewSession(0, models.Pin{ID: 1, Code: "NOPE"}, PinSessionTTL)
		if err := h.sessions.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		h.client.Jar.SetCookies(mustURL(t, h.http.URL), []*http.Cookie{{Name: SessionCookie, Value: session.ID()}})

		if code := h.do(t, http.MethodPost, "/api/auth/check-pin", nil); code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", code)
		}
	})

	t.Run("me without session is 401", func(t *testing.T) {
		h := newTestHost(t)

		if code := h.do(t, http.MethodGet, "/api/me", nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", code)
		}
	})

	t.Run("logout deletes session", func(t *testing.T) {
		h := newTestHost(t)
		h.login(t)

		id := h.client.Jar.Cookies(mustURL(t, h.http.URL))[0].Value
		if code := h.do(t, http.MethodPost, "/api/auth/logout", nil); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}

		if _, err := h.sessions.Get(id); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected session gone, got %v", err)
		}
		if code := h.do(t, http.MethodGet, "/api/me", nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401 after logout, got %d", code)
		}
	})

	t.Run("wrong method is 405", func(t *testing.T) {
		h := newTestHost(t)

		if code := h.do(t, http.MethodGet, "/auth/login", nil); code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", code)
		}
	})
}

func TestWrappedRoutes(t *testing.T) {
	jan := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC).Unix()
	feb := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC).Unix()
	old := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Unix()

	t.Run("libraries requires auth", func(t *testing.T) {
		h := newTestHost(t)

		if code := h.do(t, http.MethodGet, "/api/libraries", nil); code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", code)
		}
	})

	t.Run("libraries lists music sections", func(t *testing.T) {
		h := newTestHost(t)
		h.login(t)

		var body struct {
			Libraries []models.MusicLibrary `json:"libraries"`
		}
		if code := h.do(t, http.MethodGet, "/api/libraries", &body); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if len(body.Libraries) != 1 || body.Libraries[0].Library.Title != "Music" {
			t.Fatalf("expected the Music library, got %+v", body.Libraries)
		}
	})

	t.Run("wrapped summarizes the year", func(t *testing.T) {
		h := newTestHost(t)
		h.plex.History = []map[string]any{
			th.Track("A", "Album", "Artist", feb, 200000),
			th.Track("A", "Album", "Artist", jan, 200000),
			th.Track("B", "Other", "Someone", old, 100000),
		}
		h.login(t)

		var body struct {
			Summary struct {
				Year       int `json:"year"`
				TotalPlays int `json:"totalPlays"`
			} `json:"summary"`
		}
		if code := h.do(t, http.MethodGet, "/api/wrapped?year=2024&top=5", &body); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		if body.Summary.Year != 2024 || body.Summary.TotalPlays != 2 {
			t.Errorf("unexpected summary: %+v", body.Summary)
		}
	})

	t.Run("wrapped rejects bad year", func(t *testing.T) {
		h := newTestHost(t)
		h.login(t)

		if code := h.do(t, http.MethodGet, "/api/wrapped?year=abc", nil); code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", code)
		}
	})

	t.Run("wrapped unknown library is 404", func(t *testing.T) {
		h := newTestHost(t)
		h.login(t)

		if code := h.do(t, http.MethodGet, "/api/wrapped?library=Podcasts", nil); code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", code)
		}
	})
}

func TestOperationalRoutes(t *testing.T) {
	h := newTestHost(t)

	t.Run("registers every route", func(t *testing.T) {
		want := []string{
			"POST /auth/login", "POST /api/auth/check-pin", "POST /api/auth/logout", "GET /api/me",
			"GET /api/libraries", "GET /api/wrapped", "GET /healthz", "GET /metrics",
		}
		got := strings.Join(h.server.router.Patterns(), ",")
		if got != strings.Join(want, ",") {
			t.Errorf("unexpected routes: %s", got)
		}
	})

	t.Run("healthz", func(t *testing.T) {
		var body map[string]string
		if code := h.do(t, http.MethodGet, "/healthz", &body); code != http.StatusOK || body["status"] != "ok" {
			t.Errorf("unexpected healthz: %d %v", code, body)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		h.do(t, http.MethodPost, "/auth/login", nil)

		resp, err := h.client.Get(h.http.URL + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if !strings.Contains(string(body), "wrapped_upstream_requests_total") {
			t.Errorf("metrics missing upstream counter:\n%s", body)
		}
	})
}

func TestSessionMiddleware(t *testing.T) {
	h := newTestHost(t)

	t.Run("expired session is dropped", func(t *testing.T) {
		session := models.NewSession(0, models.Pin{ID: 7, Code: "OLD"}, time.Minute)
		if err := h.sessions.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		h.server.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { h.server.now = time.Now }()

		var seen bool
		mw := SessionMiddleware(h.sessions, shared.NewLogger(io.Discard), h.server.now)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, seen = SessionFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.ID()})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if seen {
			t.Error("expired session should not reach the handler")
		}
		if _, err := h.sessions.Get(session.ID()); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected expired session deleted, got %v", err)
		}
	})

	t.Run("unknown cookie passes through", func(t *testing.T) {
		mw := SessionMiddleware(h.sessions, shared.NewLogger(io.Discard), time.Now)
		called := false
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "missing"})
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !called {
			t.Error("handler should still run")
		}
	})

	t.Run("sweep purges expired rows", func(t *testing.T) {
		session := models.NewSession(0, models.Pin{ID: 8, Code: "SWEEP"}, time.Minute)
		if err := h.sessions.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		h.server.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { h.server.now = time.Now }()
		h.server.Sweep()

		sessions, err := h.sessions.List(nil)
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		for _, s := range sessions {
			if s.ID() == session.ID() {
				t.Error("expected expired session to be purged")
			}
		}
	})
}

func TestRateLimit(t *testing.T) {
	h := newTestHost(t)

	limited := false
	for i := range 20 {
		if code := h.do(t, http.MethodPost, "/auth/login", nil); code == http.StatusTooManyRequests {
			limited = true
			break
		} else if code != http.StatusOK {
			t.Fatalf("login %d: unexpected status %d", i, code)
		}
	}
	if !limited {
		t.Error("expected login to be rate limited")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", &shared.AuthenticationError{Op: "validate", Err: shared.ErrTokenExpired}, http.StatusUnauthorized},
		{"library", fmt.Errorf("%w: x", shared.ErrLibraryNotFound), http.StatusNotFound},
		{"input", fmt.Errorf("%w: year", shared.ErrInvalidInput), http.StatusBadRequest},
		{"upstream", &shared.UpstreamError{Op: "resources", StatusCode: 503, Status: "Service Unavailable"}, http.StatusBadGateway},
		{"timeout", shared.ErrTimeout, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	handler := RecoveryMiddleware(shared.NewLogger(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Error("expected panic to be logged")
	}
}
