package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
)

// WrappedHandler serves library discovery and the recap for the session's token.
type WrappedHandler struct {
	engine *tasks.WrappedEngine
	limit  int
	logger *log.Logger
}

// NewWrappedHandler creates a [WrappedHandler]. limit caps the history page size.
func NewWrappedHandler(engine *tasks.WrappedEngine, limit int, logger *log.Logger) *WrappedHandler {
	return &WrappedHandler{engine: engine, limit: limit, logger: logger}
}

// Routes implements [Handler].
func (h *WrappedHandler) Routes() []string {
	return []string{"GET /api/libraries", "GET /api/wrapped"}
}

// ServeHTTP implements [Handler].
func (h *WrappedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/libraries":
		RequireAuth(http.HandlerFunc(h.Libraries)).ServeHTTP(w, r)
	case "/api/wrapped":
		RequireAuth(http.HandlerFunc(h.Wrapped)).ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Libraries lists the music libraries reachable with the session token.
func (h *WrappedHandler) Libraries(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	libs, err := h.engine.Libraries(r.Context(), nil, session.Token())
	if err != nil {
		h.logger.Error("failed to list libraries", "error", err)
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"libraries": libs})
}

// Wrapped builds the recap. Query: server, library, year, top.
func (h *WrappedHandler) Wrapped(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	q := r.URL.Query()

	year, err := intParam(q.Get("year"))
	if err != nil {
		writeErr(w, fmt.Errorf("%w: year: %v", shared.ErrInvalidInput, err))
		return
	}
	top, err := intParam(q.Get("top"))
	if err != nil {
		writeErr(w, fmt.Errorf("%w: top: %v", shared.ErrInvalidInput, err))
		return
	}

	result, err := h.engine.Run(r.Context(), nil, session.Token(), tasks.WrappedOpts{
		ServerID:   q.Get("server"),
		LibraryKey: q.Get("library"),
		Limit:      h.limit,
		Year:       year,
		Top:        top,
	})
	if err != nil {
		h.logger.Error("failed to build recap", "error", err)
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}
