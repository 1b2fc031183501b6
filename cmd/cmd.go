// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: table, csv or json",
		Value:   value,
	}
}

func windowFlags(limit int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of items to return",
			Value:   limit,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Global index of the first item",
		},
	}
}

// setupCommand creates the config file and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write config.toml if missing, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// libraryCommand reads and edits the merged library.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Merged library operations",
		Commands: []*cli.Command{
			{
				Name:   "tracks",
				Usage:  "Show a page of merged tracks",
				Flags:  append(windowFlags(20), formatFlag("table")),
				Action: r.LibraryTracks,
			},
			{
				Name:  "insert",
				Usage: "Insert a track at a global index through the core that owns it",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Global index to insert at (default: end of the library)",
						Value:   -1,
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Track artist",
					},
					&cli.StringFlag{
						Name:  "album",
						Usage: "Album name",
					},
					&cli.StringFlag{
						Name:  "duration",
						Usage: "Duration as m:ss or h:mm:ss",
					},
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "International Standard Recording Code",
					},
				},
				Action: r.LibraryInsert,
			},
			{
				Name:  "remove",
				Usage: "Remove the track at a global index",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Global index to remove",
						Required: true,
					},
				},
				Action: r.LibraryRemove,
			},
			{
				Name:   "sources",
				Usage:  "List the sources of every collection with their counts",
				Action: r.LibrarySources,
			},
			{
				Name:  "coverage",
				Usage: "Report which merged tracks each source is missing",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "show",
						Usage: "Missing tracks to list per source",
						Value: 10,
					},
				},
				Action: r.LibraryCoverage,
			},
			{
				Name:  "export",
				Usage: "Export the merged track sequence",
				Flags: []cli.Flag{
					formatFlag("csv"),
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (default: stdout)",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Tracks per page (default: limits.page_size)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Pages per second, 0 for unlimited",
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:   "playlists",
				Usage:  "List merged playlists",
				Flags:  windowFlags(50),
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "playlist",
				Usage: "Show the merged tracks of one merged playlist",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Global index of the playlist (see library playlists)",
						Required: true,
					},
					formatFlag("table"),
				}, windowFlags(50)...),
				Action: r.LibraryPlaylist,
			},
		},
	}
}

// serveCommand exposes the library over HTTP.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve merged pages and metrics over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:8090",
			},
		},
		Action: r.Serve,
	}
}

// demoCommand runs the engine over two in-memory cores.
func demoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Merge two in-memory cores and print pages and live events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Ordering strategy: ranked or alternating",
				Value: "ranked",
			},
		},
		Action: r.Demo,
	}
}
