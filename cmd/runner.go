package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plexwrapped/internal/metrics"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

// plexClient is everything the commands need from plex.tv and media servers.
type plexClient interface {
	services.Authenticator
	services.Directory
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	plex       plexClient
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.WrappedEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Leaving Plex nil makes [Runner.Before] build a client from the loaded config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Plex       plexClient
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if opts.Plex != nil {
		r.setPlex(opts.Plex)
	}
	return r
}

func (r *Runner) setPlex(p plexClient) {
	r.plex = p
	r.engine = tasks.NewWrappedEngine(p, r.logger)
}

// Before loads configuration and builds the Plex client ahead of any command.
//
// Config comes from --config when the file exists, else the embedded defaults; environment
// variables and .env override both. A generated client identifier is written back so plex.tv
// sees the same device on every run.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.configPath == "" {
		r.configPath = "config.toml"
	}

	if r.config == nil {
		config, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Logging.Level))
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config.EnsureClientID() {
		r.logger.Debug("generated client identifier")
		if _, err := os.Stat(r.configPath); err == nil {
			if err := shared.SaveConfig(r.configPath, r.config); err != nil {
				r.logger.Warn("failed to persist client identifier", "error", err)
			}
		}
	}

	if r.plex == nil {
		r.registry = prometheus.NewRegistry()
		r.metrics = metrics.NewCollector(r.registry)
		r.setPlex(services.NewClientFromConfig(r.config.Plex, r.logger, r.metrics))
	}

	return ctx, nil
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		loaded, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	config.ApplyEnv()
	return config, nil
}

// SetLogger replaces the logger, rebuilding the Plex client when Before created it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	switch {
	case r.metrics != nil:
		r.setPlex(services.NewClientFromConfig(r.config.Plex, l, r.metrics))
	case r.plex != nil:
		r.setPlex(r.plex)
	}
}

// saveToken stores token in the config file, creating the file when needed.
func (r *Runner) saveToken(token string) error {
	if r.config == nil {
		return fmt.Errorf("%w: no configuration loaded", shared.ErrMissingConfig)
	}

	r.config.Plex.Token = token
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// token returns the stored account token or [shared.ErrNotAuthenticated].
func (r *Runner) token() (string, error) {
	if r.config == nil || r.config.Plex.Token == "" {
		return "", fmt.Errorf("%w: no Plex token configured", shared.ErrNotAuthenticated)
	}
	return r.config.Plex.Token, nil
}

func (r *Runner) requirePlex() error {
	if r.plex == nil || r.engine == nil {
		return fmt.Errorf("%w: Plex client not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// logProgress logs updates until prog is closed. The returned channel closes when it is done.
func (r *Runner) logProgress(prog <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Debug(u.Message, "phase", u.Phase)
		}
	}()
	return done
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serversCommand, librariesCommand, historyCommand, wrappedCommand,
		serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
