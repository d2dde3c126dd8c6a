// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, csv or markdown",
		Value:   "text",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with defaults and a fresh client identifier",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the session database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Plex sign-in
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to Plex and manage the stored token",
		Commands: []*cli.Command{
			{
				Name:  "pin",
				Usage: "Sign in by approving a PIN at plex.tv/link",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the sign-in URL instead of opening it",
					},
				},
				Action: r.AuthPin,
			},
			{
				Name:  "login",
				Usage: "Sign in with username or email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Plex username or email",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Plex password",
						Sources: cli.EnvVars("PLEX_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "claim",
				Usage: "Store an account token, or exchange a claim token from plex.tv/claim",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "token"},
				},
				Action: r.AuthClaim,
			},
			{
				Name:   "status",
				Usage:  "Validate the stored token and show the account",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored token",
				Action: r.AuthLogout,
			},
		},
	}
}

// serversCommand lists media servers on the account
func serversCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "servers",
		Usage: "List media servers and the connection that would be used",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Servers,
	}
}

// librariesCommand lists music libraries across servers
func librariesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "libraries",
		Aliases: []string{"libs"},
		Usage:   "List music libraries on every reachable server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Libraries,
	}
}

// historyCommand prints play history for one library
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print play history for a music library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Server name or client identifier (default: first with music)",
			},
			&cli.StringFlag{
				Name:  "library",
				Usage: "Library key or title (default: first music library)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of plays to fetch (default from config)",
			},
			formatFlag(),
		},
		Action: r.History,
	}
}

// wrappedCommand builds the recap
func wrappedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "wrapped",
		Usage: "Summarize listening history: top artists, albums and tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Server name or client identifier (default: first with music)",
			},
			&cli.StringFlag{
				Name:  "library",
				Usage: "Library key or title (default: first music library)",
			},
			&cli.IntFlag{
				Name:  "year",
				Usage: "Only count plays from this year (0 for all time)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Length of the top lists",
				Value: 10,
			},
			formatFlag(),
		},
		Action: r.Wrapped,
	}
}

// serveCommand runs the HTTP host
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve browser login and recap endpoints over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default from config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default from config)",
			},
			&cli.BoolFlag{
				Name:  "secure-cookie",
				Usage: "Mark the session cookie Secure (use behind https)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse libraries and your recap interactively",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "year",
				Usage: "Only count plays from this year (0 for all time)",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Length of the top lists",
				Value: 10,
			},
		},
		Action: r.TUI,
	}
}
