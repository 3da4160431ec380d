// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/sonicsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

func jsonFlags(pretty bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: pretty,
		},
	}
}

// pingCommand checks connectivity with the Subsonic server
func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check the Subsonic connection and report server capabilities",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Ping,
	}
}

// searchCommand searches the library for tracks
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the library for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tracks",
				Value:   20,
			},
			&cli.StringSliceFlag{
				Name:    "genre",
				Aliases: []string{"g"},
				Usage:   "Only keep tracks whose genre contains this term (repeatable)",
			},
			&cli.StringFlag{
				Name:  "m3u",
				Usage: "Save the results as an M3U playlist at this path",
			},
		}, jsonFlags(false)...),
		Action: r.Search,
	}
}

// playlistsCommand lists playlists on the Subsonic server
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List Subsonic playlists",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "owner",
				Usage: "List another user's playlists (admin only)",
			},
		}, jsonFlags(false)...),
		Action: r.Playlists,
	}
}

// exportCommand writes one playlist to an M3U file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "export",
		Aliases: []string{"export-m3u"},
		Usage:   "Export a Subsonic playlist to an M3U file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: <playlist>.m3u)",
			},
		},
		Action: r.Export,
	}
}

// bulkExportCommand exports many playlists concurrently
func bulkExportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bulk-export",
		Usage: "Export several playlists with a manifest",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "id",
				Usage: "Playlist ID to export (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Export every playlist",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: m3u, json, csv, markdown, txt",
				Value:   "m3u",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: sonicsync_export_<epoch>)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent writers (max 10)",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Subsonic requests per second",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "cover-size",
				Usage: "Cover art size for markdown exports; 0 keeps the original",
			},
		},
		Action: r.BulkExport,
	}
}

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent track transfers (default: [sync] workers)",
		},
		&cli.FloatFlag{
			Name:  "rate-limit",
			Usage: "Subsonic downloads per second (default: [sync] rate_limit)",
		},
		&cli.BoolFlag{
			Name:  "clear",
			Usage: "Empty the station playlist before adding tracks",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would be uploaded without touching the station",
		},
	}
}

// syncCommand mirrors an M3U file into an AzuraCast playlist
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Upload the tracks of an M3U file to AzuraCast and fill a station playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Station playlist name (default: file name without extension)",
			},
		}, syncFlags()...),
		Action: r.Sync,
	}
}

// watchCommand syncs playlists as they change on disk
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Sync M3U files in a directory whenever they change",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "dir"},
		},
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before a changed file is synced",
				Value: tasks.DefaultDebounce,
			},
		}, syncFlags()...),
		Action: r.Watch,
	}
}

// curateCommand builds a playlist from a prompt
func curateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "curate",
		Usage: "Pick tracks for a prompt using library search and random fill",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "prompt"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tracks",
				Value:   20,
			},
			&cli.StringSliceFlag{
				Name:    "genre",
				Aliases: []string{"g"},
				Usage:   "Restrict picks to this genre (repeatable)",
			},
			&cli.StringFlag{
				Name:  "m3u",
				Usage: "Save the picks as an M3U playlist at this path",
			},
			&cli.StringFlag{
				Name:  "create",
				Usage: "Create a Subsonic playlist with this name from the picks",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Curate,
	}
}

// toolsCommand exposes the model-facing tool layer for inspection
func toolsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List and call the library tools offered to language models",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print tool definitions as JSON",
				Action: r.ToolsList,
			},
			{
				Name:  "call",
				Usage: "Call a tool and print its JSON result",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "args",
						Aliases: []string{"a"},
						Usage:   `JSON arguments, e.g. '{"query":"air","limit":5}'`,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up after this long",
						Value: 30 * time.Second,
					},
				},
				Action: r.ToolsCall,
			},
		},
	}
}
