package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// FakePlex serves the plex.tv and media-server endpoints from one [httptest.Server].
//
// Resources are returned with a single local http connection pointing back at the fake, so
// library and history calls land on the same server. Fields may be changed between requests.
type FakePlex struct {
	*httptest.Server

	Token      string // accepted X-Plex-Token; also returned once a PIN is authorized
	PinID      int64
	PinCode    string
	PendingFor int32 // number of pin polls answered as pending before authorizing

	Username string
	Sections []map[string]any
	History  []map[string]any

	// FailSections makes /library/sections answer with this status when non-zero.
	FailSections int

	polls atomic.Int32
	mu    sync.Mutex
}

// NewFakePlex starts a [FakePlex] with one music section and closes it on test cleanup.
func NewFakePlex(t *testing.T) *FakePlex {
	t.Helper()

	f := &FakePlex{
		Token:    "fake-token",
		PinID:    4242,
		PinCode:  "WRAP",
		Username: "listener",
		Sections: []map[string]any{
			{"key": "1", "title": "Movies", "type": "movie"},
			{"key": "3", "title": "Music", "type": "artist"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/pins", f.createPin)
	mux.HandleFunc("GET /api/v2/pins/{id}", f.checkPin)
	mux.HandleFunc("GET /api/v2/user", f.authed(f.user))
	mux.HandleFunc("POST /users/sign_in.json", f.signIn)
	mux.HandleFunc("POST /api/claim/exchange", f.claim)
	mux.HandleFunc("GET /api/v2/resources", f.authed(f.resources))
	mux.HandleFunc("GET /library/sections", f.authed(f.sections))
	mux.HandleFunc("GET /status/sessions/history/all", f.authed(f.history))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Polls returns how many times the PIN has been polled.
func (f *FakePlex) Polls() int { return int(f.polls.Load()) }

func (f *FakePlex) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != f.Token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (f *FakePlex) createPin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"id": f.PinID, "code": f.PinCode, "authToken": nil})
}

func (f *FakePlex) checkPin(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if id != f.PinID {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if n := f.polls.Add(1); n <= f.PendingFor {
		writeJSON(w, map[string]any{"id": f.PinID, "code": f.PinCode, "authToken": nil})
		return
	}
	writeJSON(w, map[string]any{"id": f.PinID, "code": f.PinCode, "authToken": f.Token})
}

func (f *FakePlex) user(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"id": 1, "uuid": "uuid-1", "username": f.Username, "email": f.Username + "@example.com"})
}

func (f *FakePlex) signIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("password") != "correct" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"user": map[string]any{
		"id": 1, "uuid": "uuid-1", "username": f.Username, "authToken": f.Token,
	}})
}

func (f *FakePlex) claim(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Query().Get("token"), "claim-") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"authToken": f.Token})
}

func (f *FakePlex) resources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []map[string]any{
		{
			"clientIdentifier": "srv-1",
			"name":             "Fake Server",
			"provides":         "server",
			"owned":            true,
			"connections": []map[string]any{
				{"protocol": "http", "address": "127.0.0.1", "port": 0, "uri": f.URL, "local": true},
			},
		},
		{"clientIdentifier": "phone", "name": "Phone", "provides": "client,player", "connections": []any{}},
	})
}

func (f *FakePlex) sections(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailSections != 0 {
		w.WriteHeader(f.FailSections)
		return
	}
	writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": len(f.Sections), "Directory": f.Sections}})
}

func (f *FakePlex) history(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": len(f.History), "Metadata": f.History}})
}

// Track builds a history entry for [FakePlex.History].
func Track(title, album, artist string, viewedAt, durationMs int64) map[string]any {
	return map[string]any{
		"key":              "/library/metadata/" + strconv.FormatInt(viewedAt, 10),
		"title":            title,
		"parentTitle":      album,
		"grandparentTitle": artist,
		"viewedAt":         viewedAt,
		"duration":         durationMs,
		"type":             "track",
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
