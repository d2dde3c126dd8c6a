package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

const (
	DefaultBaseURL      = "https://plex.tv"
	DefaultAuthAppURL   = "https://app.plex.tv/auth"
	DefaultProduct      = "Plex Wrapped"
	DefaultVersion      = "1.0.0"
	DefaultPlatform     = "Web"
	DefaultProbeTimeout = 10 * time.Second
	DefaultProbeWorkers = 4
)

// Options configures a [Client]. Zero values fall back to the package defaults.
type Options struct {
	BaseURL    string // plex.tv account service
	AuthAppURL string // page where users authorize a PIN
	ClientID   string
	Product    string
	Version    string
	Platform   string

	HTTPClient   *http.Client
	Logger       *log.Logger
	Recorder     Recorder
	ProbeTimeout time.Duration
	ProbeWorkers int
}

// Client talks to plex.tv and to individual media servers.
//
// A Client holds no per-user state: every authenticated call takes the token as an argument,
// so one Client can be shared across goroutines and sessions.
type Client struct {
	baseURL      string
	authAppURL   string
	clientID     string
	product      string
	version      string
	platform     string
	httpClient   *http.Client
	logger       *log.Logger
	recorder     Recorder
	probeTimeout time.Duration
	probeWorkers int
}

// NewClient creates a [Client] from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		authAppURL:   opts.AuthAppURL,
		clientID:     opts.ClientID,
		product:      opts.Product,
		version:      opts.Version,
		platform:     opts.Platform,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
		probeTimeout: opts.ProbeTimeout,
		probeWorkers: opts.ProbeWorkers,
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.authAppURL == "" {
		c.authAppURL = DefaultAuthAppURL
	}
	if c.product == "" {
		c.product = DefaultProduct
	}
	if c.version == "" {
		c.version = DefaultVersion
	}
	if c.platform == "" {
		c.platform = DefaultPlatform
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = DefaultProbeTimeout
	}
	if c.probeWorkers <= 0 {
		c.probeWorkers = DefaultProbeWorkers
	}

	return c
}

// NewClientFromConfig creates a [Client] from the [plex] section of config.toml.
func NewClientFromConfig(cfg shared.PlexConfig, logger *log.Logger, rec Recorder) *Client {
	return NewClient(Options{
		BaseURL:      cfg.BaseURL,
		AuthAppURL:   cfg.AuthAppURL,
		ClientID:     cfg.ClientID,
		Product:      cfg.Product,
		Version:      cfg.Version,
		Platform:     cfg.Platform,
		Logger:       logger,
		Recorder:     rec,
		ProbeTimeout: cfg.ProbeTimeout(),
		ProbeWorkers: cfg.ProbeWorkers,
	})
}

// ClientID returns the X-Plex-Client-Identifier sent with every request.
func (c *Client) ClientID() string { return c.clientID }

// setHeaders applies the fixed identification header set, and the token when one is given.
func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Product", c.product)
	req.Header.Set("X-Plex-Version", c.version)
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Platform", c.platform)
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}
}

// request describes one upstream call.
type request struct {
	op     string // human-readable action used in errors and metrics, e.g. "create Plex PIN"
	method string
	url    string
	token  string
	form   url.Values
}

// doRequest performs req and decodes a JSON body into result.
//
// Any non-2xx status becomes an [shared.UpstreamError]; callers that treat 401 specially
// inspect it with [errors.As].
func (c *Client) doRequest(ctx context.Context, r request, result any) error {
	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req, r.token)
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.ObserveRequest(r.op, 0, time.Since(start))
		return fmt.Errorf("failed to %s: %w", r.op, err)
	}
	defer resp.Body.Close()

	c.recorder.ObserveRequest(r.op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.UpstreamError{Op: r.op, StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrProtocol, r.op, err)
	}

	return nil
}

// statusText returns the reason phrase of resp, e.g. "Service Unavailable".
func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// isStatus reports whether err is an [shared.UpstreamError] with the given status code.
func isStatus(err error, code int) bool {
	var ue *shared.UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == code
}

// joinURL appends path to a server base URL, tolerating a trailing slash.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
