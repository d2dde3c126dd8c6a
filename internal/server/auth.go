package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/metrics"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/services"
)

type loginResponse struct {
	Pin     models.Pin `json:"pin"`
	AuthURL string     `json:"authUrl"`
}

type checkPinResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
}

// AuthHandler runs the PIN login for browsers. The session row holds the PIN and, later, the token;
// the browser only ever sees the session cookie.
type AuthHandler struct {
	auth     services.Authenticator
	sessions SessionStore
	metrics  *metrics.Collector
	logger   *log.Logger
	secure   bool
	now      func() time.Time
}

// NewAuthHandler creates an [AuthHandler]. m may be nil.
func NewAuthHandler(auth services.Authenticator, sessions SessionStore, m *metrics.Collector, logger *log.Logger, secure bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, metrics: m, logger: logger, secure: secure, now: time.Now}
}

// Routes implements [Handler]. POST /auth/login is registered separately behind the rate limiter.
func (h *AuthHandler) Routes() []string {
	return []string{"POST /api/auth/check-pin", "POST /api/auth/logout", "GET /api/me"}
}

// ServeHTTP implements [Handler].
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/check-pin":
		h.CheckPin(w, r)
	case "/api/auth/logout":
		h.Logout(w, r)
	case "/api/me":
		RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Login creates a PIN and a pending session bound to it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	pin, err := h.auth.CreatePin(r.Context())
	if err != nil {
		h.logger.Error("failed to create pin", "error", err)
		h.recordLogin("error")
		writeError(w, http.StatusInternalServerError, "failed to create PIN")
		return
	}

	if old, ok := SessionFromContext(r.Context()); ok {
		if err := h.sessions.Delete(old.ID()); err != nil {
			h.logger.Warn("failed to replace session", "error", err)
		}
	}

	session := models.NewSession(0, pin, PinSessionTTL)
	if err := h.sessions.Create(session); err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookie(w, session, h.secure, h.now())
	writeJSON(w, http.StatusOK, loginResponse{Pin: pin, AuthURL: h.auth.AuthURL(pin.Code)})
}

// CheckPin polls the session's PIN once. On authorization the token is validated and stored on the session.
func (h *AuthHandler) CheckPin(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if ok && session.Authenticated() {
		user := session.User()
		writeJSON(w, http.StatusOK, checkPinResponse{Authenticated: true, User: &user})
		return
	}
	if !ok || session.PinID() == 0 {
		writeError(w, http.StatusBadRequest, "no PIN found in session")
		return
	}

	token, authorized, err := h.auth.PollPinStatus(r.Context(), session.PinID())
	if err != nil {
		h.logger.Error("failed to check pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check PIN status")
		return
	}

	if !authorized {
		if session.State() == models.AuthCreated {
			session.SetState(models.AuthPending)
			if err := h.sessions.Update(session); err != nil {
				h.logger.Warn("failed to mark session pending", "error", err)
			}
		}
		writeJSON(w, http.StatusOK, checkPinResponse{Authenticated: false})
		return
	}

	user, err := h.auth.ValidateToken(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to validate token", "error", err)
		h.recordLogin("error")
		writeError(w, http.StatusInternalServerError, "failed to validate token")
		return
	}

	session.Authorize(token, user, AuthSessionTTL)
	if err := h.sessions.Update(session); err != nil {
		h.logger.Error("failed to store session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	h.recordLogin("ok")
	h.logger.Info("user logged in", "user", user.Username)
	setSessionCookie(w, session, h.secure, h.now())
	writeJSON(w, http.StatusOK, checkPinResponse{Authenticated: true, User: &user})
}

// Logout deletes the session and expires the cookie. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := SessionFromContext(r.Context()); ok {
		if err := h.sessions.Delete(session.ID()); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the session user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, session.User())
}

func (h *AuthHandler) recordLogin(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin("pin", result)
	}
}
