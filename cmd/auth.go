package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/desertthunder/plexwrapped/internal/tasks"
	"github.com/urfave/cli/v3"
)

// AuthPin signs in with the PIN flow: show the code, open plex.tv, wait for approval.
func (r *Runner) AuthPin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	noBrowser := cmd.Bool("no-browser")

	prog := make(chan tasks.ProgressUpdate, 16)
	done := r.logProgress(prog)

	result, err := tasks.PinLogin(ctx, r.plex, prog, tasks.LoginOpts{
		Poll: tasks.PollOptsFromConfig(r.config.Plex),
		OnPin: func(pin models.Pin, authURL string) {
			r.writePlain("Your PIN is %s\n", pin.Code)
			r.writePlain("Approve it at %s\n", authURL)
			if noBrowser {
				return
			}
			if err := shared.OpenBrowser(authURL); err != nil {
				r.logger.Warn("could not open browser, open the URL manually", "error", err)
			}
		},
	})
	close(prog)
	<-done

	return r.finishLogin("pin", result, err)
}

// AuthLogin signs in with a username or email and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}

	login := cmd.String("user")
	password := cmd.String("password")
	if login == "" || password == "" {
		return fmt.Errorf("%w: --user and --password (or PLEX_PASSWORD) are required", shared.ErrMissingCredentials)
	}

	result, err := tasks.PasswordLogin(ctx, r.plex, nil, login, password)
	return r.finishLogin("password", result, err)
}

// AuthClaim stores a token given on the command line, exchanging claim tokens first.
func (r *Runner) AuthClaim(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}

	token := cmd.StringArg("token")
	if token == "" {
		return fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	result, err := tasks.TokenLogin(ctx, r.plex, nil, token)
	return r.finishLogin("claim", result, err)
}

func (r *Runner) finishLogin(method string, result *tasks.LoginResult, err error) error {
	if err != nil {
		r.recordLogin(method, "error")
		return err
	}
	r.recordLogin(method, "ok")

	if err := r.saveToken(result.Token); err != nil {
		return err
	}

	r.logger.Info("signed in", "user", result.User.Username)
	r.writePlainln("✓ Signed in as %s", result.User.Username)
	return r.writePlain("✓ Token saved to %s\n", r.configPath)
}

func (r *Runner) recordLogin(method, result string) {
	if r.metrics != nil {
		r.metrics.RecordLogin(method, result)
	}
}

// AuthStatus validates the stored token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requirePlex(); err != nil {
		return err
	}
	token, err := r.token()
	if err != nil {
		return err
	}

	user, err := r.plex.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	r.writePlain("✓ Authenticated\n")
	r.writePlain("User: %s\n", user.Username)
	if user.Email != "" {
		r.writePlain("Email: %s\n", user.Email)
	}
	return nil
}

// AuthLogout removes the stored token. plex.tv keeps the device entry.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.config == nil || r.config.Plex.Token == "" {
		return r.writePlain("Not signed in\n")
	}

	if err := r.saveToken(""); err != nil {
		return err
	}
	return r.writePlain("✓ Token removed from %s\n", r.configPath)
}
