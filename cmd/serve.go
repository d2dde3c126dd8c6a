package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/repositories"
	"github.com/desertthunder/plexwrapped/internal/server"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/urfave/cli/v3"
)

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	return db, nil
}

// Serve runs the HTTP host until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}

	addr := r.config.Server
	if host := cmd.String("host"); host != "" {
		addr.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		addr.Port = port
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	opts := server.Options{
		Auth:         r.plex,
		Directory:    r.plex,
		Sessions:     repositories.NewSessionRepository(db),
		Metrics:      r.metrics,
		Logger:       r.logger,
		HistoryLimit: r.config.Plex.HistoryLimit,
		SecureCookie: cmd.Bool("secure-cookie"),
	}
	if r.registry != nil {
		opts.Gatherer = r.registry
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx, addr.Addr())
}
