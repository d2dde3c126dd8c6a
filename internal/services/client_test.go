package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plexwrapped/internal/shared"
	tu "github.com/desertthunder/plexwrapped/internal/testing"
)

type observation struct {
	op     string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []observation
	failures []string
}

func (f *fakeRecorder) ObserveRequest(op string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, observation{op, status})
}

func (f *fakeRecorder) ProbeFailed(server string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, server)
}

// newTestClient returns a client pointed at baseURL that logs into buf.
func newTestClient(baseURL string, buf *bytes.Buffer, rec Recorder) *Client {
	return NewClient(Options{
		BaseURL:      baseURL,
		ClientID:     "test-client",
		Logger:       shared.NewLogger(buf),
		Recorder:     rec,
		ProbeTimeout: 2 * time.Second,
	})
}

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewClient(Options{})

		if c.baseURL != DefaultBaseURL {
			t.Errorf("expected base URL %s, got %s", DefaultBaseURL, c.baseURL)
		}
		if c.httpClient != http.DefaultClient {
			t.Error("expected http.DefaultClient")
		}
		if c.probeWorkers != DefaultProbeWorkers {
			t.Errorf("expected %d workers, got %d", DefaultProbeWorkers, c.probeWorkers)
		}
	})

	t.Run("from config", func(t *testing.T) {
		cfg := shared.DefaultConfig().Plex
		cfg.ClientID = "cfg-client"
		cfg.BaseURL = "http://example.com/"

		c := NewClientFromConfig(cfg, nil, nil)
		if c.ClientID() != "cfg-client" {
			t.Errorf("expected cfg-client, got %s", c.ClientID())
		}
		if c.baseURL != "http://example.com" {
			t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
		}
		if c.probeTimeout != 10*time.Second {
			t.Errorf("expected 10s probe timeout, got %v", c.probeTimeout)
		}
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("sends fixed headers and token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := map[string]string{
				"Accept":                   "application/json",
				"X-Plex-Product":           DefaultProduct,
				"X-Plex-Version":           DefaultVersion,
				"X-Plex-Client-Identifier": "test-client",
				"X-Plex-Platform":          DefaultPlatform,
				"X-Plex-Token":             "tok",
			}
			for k, v := range want {
				if got := r.Header.Get(k); got != v {
					t.Errorf("header %s = %q, want %q", k, got, v)
				}
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := newTestClient(server.URL, &bytes.Buffer{}, nil)
		var out map[string]any
		if err := c.doRequest(context.Background(), request{op: "test", method: http.MethodGet, url: server.URL, token: "tok"}, &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("omits token header when empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Header["X-Plex-Token"]; ok {
				t.Error("expected no X-Plex-Token header")
			}
		}))
		defer server.Close()

		c := newTestClient(server.URL, &bytes.Buffer{}, nil)
		if err := c.doRequest(context.Background(), request{op: "test", method: http.MethodGet, url: server.URL}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("maps non-2xx to UpstreamError and records metrics", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		rec := &fakeRecorder{}
		c := newTestClient(server.URL, &bytes.Buffer{}, rec)
		err := c.doRequest(context.Background(), request{op: "get Plex servers", method: http.MethodGet, url: server.URL}, nil)

		var ue *shared.UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if ue.StatusCode != 503 || ue.Status != "Service Unavailable" {
			t.Errorf("unexpected error %+v", ue)
		}
		if len(rec.requests) != 1 || rec.requests[0] != (observation{"get Plex servers", 503}) {
			t.Errorf("unexpected observations %+v", rec.requests)
		}
	})

	t.Run("invalid JSON is a protocol error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}))
		defer server.Close()

		c := newTestClient(server.URL, &bytes.Buffer{}, nil)
		var out map[string]any
		err := c.doRequest(context.Background(), request{op: "test", method: http.MethodGet, url: server.URL}, &out)
		if !errors.Is(err, shared.ErrProtocol) {
			t.Errorf("expected ErrProtocol, got %v", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		rec := &fakeRecorder{}
		c := NewClient(Options{
			HTTPClient: tu.UnreachableClient(errors.New("connection refused")),
			Logger:     shared.NewLogger(&bytes.Buffer{}),
			Recorder:   rec,
		})

		err := c.doRequest(context.Background(), request{op: "create Plex PIN", method: http.MethodPost, url: "http://plex.invalid"}, nil)
		if err == nil || !strings.Contains(err.Error(), "create Plex PIN") {
			t.Errorf("expected wrapped transport error, got %v", err)
		}
		if len(rec.requests) != 1 || rec.requests[0].status != 0 {
			t.Errorf("expected status 0 observation, got %+v", rec.requests)
		}
	})

	t.Run("empty body leaves result untouched", func(t *testing.T) {
		c := NewClient(Options{
			HTTPClient: tu.StaticClient(http.StatusOK, tu.JSONBody("")),
			Logger:     shared.NewLogger(&bytes.Buffer{}),
		})

		out := map[string]any{"kept": true}
		if err := c.doRequest(context.Background(), request{op: "test", method: http.MethodPost, url: "http://plex.invalid"}, &out); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out["kept"] != true {
			t.Errorf("expected result untouched, got %v", out)
		}
	})

	t.Run("body read failure", func(t *testing.T) {
		c := NewClient(Options{
			HTTPClient: tu.StaticClient(http.StatusOK, tu.FailingBody{}),
			Logger:     shared.NewLogger(&bytes.Buffer{}),
		})

		var out map[string]any
		if err := c.doRequest(context.Background(), request{op: "test", method: http.MethodGet, url: "http://plex.invalid"}, &out); err == nil {
			t.Error("expected error when body cannot be read")
		}
	})
}

func TestJoinURL(t *testing.T) {
	if got := joinURL("https://a.plex.direct:32400/", "/library/sections"); got != "https://a.plex.direct:32400/library/sections" {
		t.Errorf("unexpected URL %s", got)
	}
}
