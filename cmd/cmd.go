// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/urfave/cli/v3"
)

func providerFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "provider",
		Usage: "Catalog to search (deezer, spotify)",
		Value: string(models.ProviderDeezer),
	}
}

func skipOwnedFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "skip-owned",
		Aliases: []string{"s"},
		Usage:   "Only emit albums missing from the collection index",
	}
}

func albumOnlyFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "album-only",
		Usage: "Keep full albums only (drop EPs, singles and compilations)",
	}
}

// albumCommand resolves a single album URL
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Resolve the URL of a single album",
		ArgsUsage: "[Band - Album | query...]",
		Before:    r.configure,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "band",
				Aliases: []string{"b"},
				Usage:   "Band or artist name",
			},
			&cli.StringFlag{
				Name:    "album",
				Aliases: []string{"a"},
				Usage:   "Album title",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Raw search query, sent as is",
			},
			providerFlag(),
		},
		Action: r.Album,
	}
}

// discographyCommand resolves an artist's releases, pinned by one of their albums
func discographyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "discography",
		Aliases:   []string{"disco"},
		Usage:     "Resolve the album and EP URLs of an artist",
		ArgsUsage: "[Band - Album]",
		Before:    r.configure,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "band",
				Aliases: []string{"b"},
				Usage:   "Band or artist name",
			},
			&cli.StringFlag{
				Name:    "album",
				Aliases: []string{"a"},
				Usage:   "An album by the band, used to pick the right artist",
			},
			&cli.BoolFlag{
				Name:  "include-singles",
				Usage: "Also emit singles",
			},
			&cli.BoolFlag{
				Name:  "all-types",
				Usage: "Emit every release regardless of type",
			},
			skipOwnedFlag(),
			providerFlag(),
		},
		Action: r.Discography,
	}
}

// playlistCommand resolves the distinct albums of a playlist
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Usage:     "Resolve the album URLs of a Deezer or Spotify playlist",
		ArgsUsage: "<playlist-url>",
		Before:    r.configure,
		Flags:     []cli.Flag{skipOwnedFlag(), albumOnlyFlag()},
		Action:    r.Playlist,
	}
}

// resolveCommand dispatches on the shape of its input
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a playlist URL or an album query",
		ArgsUsage: "<playlist-url | Band - Album>",
		Before:    r.configure,
		Flags:     []cli.Flag{skipOwnedFlag(), albumOnlyFlag(), providerFlag()},
		Action:    r.Resolve,
	}
}

// collectionCommand manages the owned-collection index
func collectionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"col"},
		Usage:   "Manage the index of albums you already own",
		Before:  r.configure,
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "Index an <Artist>/<Album> music library",
				ArgsUsage: "[library-dir]",
				Action:    r.CollectionScan,
			},
			{
				Name:  "stats",
				Usage: "Show collection statistics",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CollectionStats,
			},
			{
				Name:  "list",
				Usage: "List indexed albums",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "artist", Usage: "Only list albums by this artist"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.CollectionList,
			},
			{
				Name:   "clear",
				Usage:  "Remove every album from the index",
				Action: r.CollectionClear,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration (to --config or the default path)",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the collection database and run migrations",
				Before: r.configure,
				Action: r.SetupDatabase,
			},
		},
	}
}
