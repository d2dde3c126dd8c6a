package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/formatter"
	"github.com/desertthunder/plexwrapped/internal/services"
	"github.com/desertthunder/plexwrapped/internal/tasks"
	"github.com/urfave/cli/v3"
)

// serverView is a server with the URL that library and history calls would use.
type serverView struct {
	ClientIdentifier string `json:"clientIdentifier"`
	Name             string `json:"name"`
	Owned            bool   `json:"owned"`
	URL              string `json:"url,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Servers lists media servers on the account.
func (r *Runner) Servers(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	token, err := r.token()
	if err != nil {
		return err
	}

	servers, err := r.plex.ListServers(ctx, token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]serverView, 0, len(servers))
		for _, s := range servers {
			v := serverView{ClientIdentifier: s.ClientIdentifier, Name: s.Name, Owned: s.Owned}
			if u, err := services.SelectBestURL(s); err == nil {
				v.URL = u
			} else {
				v.Error = err.Error()
			}
			views = append(views, v)
		}
		return r.writeJSON(views, true)
	}

	return r.writeBytes(formatter.ServersToText(servers))
}

// Libraries lists music libraries. Servers that fail are logged and skipped.
func (r *Runner) Libraries(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	token, err := r.token()
	if err != nil {
		return err
	}

	libs, err := r.engine.Libraries(ctx, nil, token)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(libs, true)
	}
	return r.writeBytes(formatter.LibrariesToText(libs))
}

// History prints the play history of one music library.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	token, err := r.token()
	if err != nil {
		return err
	}

	libs, err := r.engine.Libraries(ctx, nil, token)
	if err != nil {
		return err
	}
	lib, err := tasks.SelectLibrary(libs, cmd.String("server"), cmd.String("library"))
	if err != nil {
		return err
	}

	records, err := r.engine.History(ctx, nil, token, lib, r.historyLimit(cmd))
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s on %s", lib.Library.Title, lib.Server.Name)
	out, err := formatter.History(format, records, title)
	if err != nil {
		return err
	}
	if format == formatter.FormatJSON {
		out = append(out, '\n')
	}
	return r.writeBytes(out)
}

// Wrapped prints the recap for one music library.
func (r *Runner) Wrapped(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	token, err := r.token()
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := r.logProgress(prog)

	result, err := r.engine.Run(ctx, prog, token, tasks.WrappedOpts{
		ServerID:   cmd.String("server"),
		LibraryKey: cmd.String("library"),
		Limit:      r.historyLimit(cmd),
		Year:       int(cmd.Int("year")),
		Top:        int(cmd.Int("top")),
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	out, err := formatter.Wrapped(format, result)
	if err != nil {
		return err
	}
	if format == formatter.FormatJSON {
		out = append(out, '\n')
	}
	return r.writeBytes(out)
}

func (r *Runner) historyLimit(cmd *cli.Command) int {
	if limit := int(cmd.Int("limit")); limit > 0 {
		return limit
	}
	return r.config.Plex.HistoryLimit
}
