// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func emailFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "email",
		Aliases: []string{"e"},
		Usage:   "Application user (defaults to server.default_user)",
	}
}

// serveCommand runs the web service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP server (login, callback, playlists, health)",
		Action: r.Serve,
	}
}

// setupCommand prepares the config file and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the embedded template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// tidalCommand handles Tidal account operations
func tidalCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tidal",
		Usage: "Tidal account operations",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Connect a user to Tidal through the browser",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.TidalLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored Tidal credential",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TidalStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access token now",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.TidalRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored Tidal credential",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.TidalLogout,
			},
			{
				Name:  "playlists",
				Usage: "List the user's Tidal playlists",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Fetch every page",
					},
					&cli.StringFlag{
						Name:  "cursor",
						Usage: "Resume from a next-page cursor",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.TidalPlaylists,
			},
			{
				Name:  "sync",
				Usage: "Store the user's Tidal profile and playlists locally",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Sync every user with a Tidal credential",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Users synced at once with --all",
						Value: 4,
					},
				},
				Action: r.TidalSync,
			},
			{
				Name:  "track",
				Usage: "Look up a catalog track with the application token",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TidalTrack,
			},
			{
				Name:  "export",
				Usage: "Export a playlist with all of its tracks",
				Flags: []cli.Flag{
					emailFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Playlist ID to export",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, md, txt or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (defaults to the playlist ID)",
					},
				},
				Action: r.TidalExport,
			},
		},
	}
}
