// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func trackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "title",
			Usage: "Track title, used when the id is not found locally",
		},
		&cli.StringFlag{
			Name:  "artist",
			Usage: "Track artist, used with --title",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write a config file and initialise storage",
		Action: r.Setup,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search for tracks",
		ArgsUsage: "<query>",
		Action:    r.Search,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Record a track as played",
		ArgsUsage: "<track-id>",
		Flags:     trackFlags(),
		Action:    r.Play,
	}
}

func favoriteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "favorite",
		Aliases:   []string{"fav"},
		Usage:     "Add a track to favorites, or remove it if already there",
		ArgsUsage: "<track-id>",
		Flags:     trackFlags(),
		Action:    r.Favorite,
	}
}

// cacheCommand handles the offline content cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage offline content",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Download a track for offline use",
				ArgsUsage: "<track-id>",
				Flags:     trackFlags(),
				Action:    r.CacheAdd,
			},
			{
				Name:      "status",
				Usage:     "Show the cache status of a track",
				ArgsUsage: "<track-id>",
				Action:    r.CacheStatus,
			},
			{
				Name:    "info",
				Aliases: []string{"ls"},
				Usage:   "List cached tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Fuzzy filter on title or artist",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort by timestamp, title or artist",
						Value: "timestamp",
					},
					&cli.BoolFlag{
						Name:  "desc",
						Usage: "Sort in descending order",
					},
				},
				Action: r.CacheInfo,
			},
			{
				Name:      "rm",
				Usage:     "Remove a track from offline content",
				ArgsUsage: "<track-id>",
				Action:    r.CacheRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove all offline content",
				Action: r.CacheClear,
			},
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List playlists",
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				ArgsUsage: "<playlist-id>",
				Action:    r.PlaylistShow,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "rename",
				Usage:     "Rename a playlist",
				ArgsUsage: "<playlist-id> <name>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Replace the description as well",
					},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:      "rm",
				Usage:     "Delete a playlist",
				ArgsUsage: "<playlist-id>",
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "add",
				Usage:     "Add a track to a playlist",
				ArgsUsage: "<playlist-id> <track-id>",
				Flags:     trackFlags(),
				Action:    r.PlaylistAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove an item (or track) from a playlist",
				ArgsUsage: "<playlist-id> <item-id|track-id>",
				Action:    r.PlaylistRemove,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files",
				ArgsUsage: "[playlist-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: ytune_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent export workers",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover art for Markdown exports",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:   "reconcile",
				Usage:  "Repair the offline playlist from cached content",
				Action: r.PlaylistReconcile,
			},
			{
				Name:      "download",
				Usage:     "Download every track of a playlist for offline use",
				ArgsUsage: "<playlist-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent download workers",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Downloads per second",
						Value: 5,
					},
				},
				Action: r.PlaylistDownload,
			},
		},
	}
}

func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Show API key usage and cached searches",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "purge",
				Usage: "Delete expired cached searches",
			},
		},
		Action: r.Quota,
	}
}
