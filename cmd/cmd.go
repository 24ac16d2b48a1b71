// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// serveCommand runs the HTTP API with both engines.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the organizer API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand writes a config file and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the CLI session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with Spotify through the server and save the session",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser to finish",
						Value: 2 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check the server and the saved session",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "End the saved session",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// organizeCommand starts an organize job.
func organizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "organize",
		Usage: "Organize liked songs into genre playlists",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of playlists to create (1-50)",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:    "replace",
				Aliases: []string{"r"},
				Usage:   "Reuse existing playlists for the same genre",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Watch the job in an interactive view",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the job finishes and print the result",
			},
		}, jsonFlags()...),
		Action: r.Organize,
	}
}

// statusCommand polls a job once.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the status of an organize job",
		Arguments: []cli.Argument{&cli.StringArg{Name: "job-id"}},
		Flags:     jsonFlags(),
		Action:    r.Status,
	}
}

// jobsCommand lists live jobs and history.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "jobs",
		Usage:  "List recent organize jobs",
		Flags:  jsonFlags(),
		Action: r.Jobs,
	}
}

// watchCommand returns the top-level TUI command for following a job.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"tui", "ui"},
		Usage:     "Follow an organize job in an interactive view",
		Arguments: []cli.Argument{&cli.StringArg{Name: "job-id"}},
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Time between polls",
				Value: time.Second,
			},
			&cli.BoolFlag{
				Name:  "exit",
				Usage: "Quit as soon as the job finishes",
			},
		},
		Action: r.Watch,
	}
}

// playlistsCommand handles managed playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	idArg := func() []cli.Argument { return []cli.Argument{&cli.StringArg{Name: "id"}} }

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Managed playlist operations",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List managed playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, csv, markdown, json",
						Value:   "table",
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:      "refresh",
				Usage:     "Refresh the song count of one playlist",
				Arguments: idArg(),
				Action:    r.PlaylistsRefresh,
			},
			{
				Name:      "rebuild",
				Usage:     "Refill one playlist from the current library",
				Arguments: idArg(),
				Action:    r.PlaylistsRebuild,
			},
			{
				Name:      "update",
				Usage:     "Set a custom name or description (empty clears it)",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Custom playlist name",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Custom playlist description",
					},
				},
				Action: r.PlaylistsUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Stop managing a playlist and remove it from Spotify",
				Arguments: idArg(),
				Action:    r.PlaylistsDelete,
			},
			{
				Name:   "sync-all",
				Usage:  "Refresh every managed playlist",
				Flags:  jsonFlags(),
				Action: r.PlaylistsSyncAll,
			},
			{
				Name:   "sync-status",
				Usage:  "Show liked songs added since the last sync",
				Flags:  jsonFlags(),
				Action: r.PlaylistsSyncStatus,
			},
		},
	}
}

// libraryCommand reports on the liked songs library.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "library",
		Usage: "Liked songs library",
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Show the number of liked songs",
				Action: r.LibraryCount,
			},
		},
	}
}

// settingsCommand handles naming template operations
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Playlist naming templates",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the current templates",
				Flags:  jsonFlags(),
				Action: r.SettingsShow,
			},
			{
				Name:  "set",
				Usage: "Replace the templates ({genre}, {username}, {date}, {year})",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Name template; must contain {genre}",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Description template; empty restores the default",
					},
				},
				Action: r.SettingsSet,
			},
		},
	}
}
