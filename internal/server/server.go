package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/metrics"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const (
	PinSessionTTL  = 10 * time.Minute    // lifetime of a session waiting on its PIN
	AuthSessionTTL = 30 * 24 * time.Hour // lifetime of an authorized session
	SweepInterval  = 15 * time.Minute    // how often expired sessions are purged
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the route patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// SessionStore persists browser sessions. [repositories.SessionRepository] satisfies it.
type SessionStore = models.ExpiringRepository[*models.Session]

// Options configures [New].
type Options struct {
	Auth         services.Authenticator
	Directory    services.Directory
	Sessions     SessionStore
	Metrics      *metrics.Collector  // optional
	Gatherer     prometheus.Gatherer // serves /metrics when set
	Logger       *log.Logger
	HistoryLimit int
	SecureCookie bool
	LoginRate    rate.Limit // PIN creations per second across all clients; zero uses one per second
	LoginBurst   int
}

// Server is the HTTP host. It owns the router and the session sweeper.
type Server struct {
	opts   Options
	router *BasicRouter
	logger *log.Logger
	now    func() time.Time
}

// New builds a [Server] with every route registered.
func New(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Directory == nil {
		return nil, fmt.Errorf("%w: Plex client is required", shared.ErrMissingConfig)
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("%w: session store is required", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.LoginRate == 0 {
		opts.LoginRate = rate.Limit(1)
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	s := &Server{
		opts:   opts,
		router: NewBasicRouter(),
		logger: opts.Logger,
		now:    time.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(
		RecoveryMiddleware(s.logger),
		SessionMiddleware(s.opts.Sessions, s.logger, s.now),
		LoggingMiddleware(s.logger),
	)

	auth := NewAuthHandler(s.opts.Auth, s.opts.Sessions, s.opts.Metrics, shared.WithLogger(s.logger, "handler", "auth"), s.opts.SecureCookie)
	auth.now = s.now
	limiter := rate.NewLimiter(s.opts.LoginRate, s.opts.LoginBurst)
	s.router.Handle(http.MethodPost, "/auth/login", RateLimitMiddleware(limiter)(http.HandlerFunc(auth.Login)))
	s.router.Handler(auth)

	engine := tasks.NewWrappedEngine(s.opts.Directory, s.logger)
	s.router.Handler(NewWrappedHandler(engine, s.opts.HistoryLimit, shared.WithLogger(s.logger, "handler", "wrapped")))

	s.router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	if s.opts.Gatherer != nil {
		s.router.Handle(http.MethodGet, "/metrics", metrics.Handler(s.opts.Gatherer))
	}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sweep permanently removes expired and logged-out sessions.
func (s *Server) Sweep() {
	n, err := s.opts.Sessions.DeleteExpired(s.now())
	if err != nil {
		s.logger.Warn("failed to purge sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("purged sessions", "count", n)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			s.Sweep()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	errCh := make(chan error, 1)
	s.logger.Debug("routes", "patterns", s.router.Patterns())

	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}
