package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/deemixkit/internal/formatter"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/services"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/desertthunder/deemixkit/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Album resolves a single album from a query and emits its URL.
//
// The query comes from --query, --band/--album, positional args or stdin, in that order.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	var query string
	band, album := cmd.String("band"), cmd.String("album")

	switch {
	case cmd.String("query") != "":
		query = strings.TrimSpace(cmd.String("query"))
	case band != "" || album != "":
		query = tasks.Query(band, album)
	case cmd.Args().Len() > 0:
		query = albumQuery(strings.Join(cmd.Args().Slice(), " "))
	default:
		line, err := r.readInput("Enter album (Band - Album): ")
		if err != nil {
			return err
		}
		query = albumQuery(line)
	}

	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}
	return r.runAlbum(ctx, cmd, query)
}

func (r *Runner) runAlbum(ctx context.Context, cmd *cli.Command, query string) error {
	catalog, err := r.providerCatalog(cmd)
	if err != nil {
		return err
	}
	pipeline, err := r.pipeline(ctx, catalog, flowAlbum, false)
	if err != nil {
		return err
	}

	run, err := r.track(func(progress chan<- tasks.ProgressUpdate) (*tasks.Run, error) {
		return pipeline.ResolveAlbum(ctx, progress, query)
	})
	return r.finish(cmd, run, err)
}

// Discography pins an artist with "Band - Album" and emits the URLs of their releases.
func (r *Runner) Discography(ctx context.Context, cmd *cli.Command) error {
	band, album := cmd.String("band"), cmd.String("album")

	switch {
	case band != "" && album != "":
	case band != "" || album != "":
		return fmt.Errorf("%w: --band and --album must be given together", shared.ErrMissingArgument)
	default:
		text := strings.Join(cmd.Args().Slice(), " ")
		if text == "" {
			line, err := r.readInput("Enter band and album (Band - Album): ")
			if err != nil {
				return err
			}
			text = line
		}

		var err error
		if band, album, err = splitBandAlbum(text); err != nil {
			return err
		}
	}

	filter, err := r.discographyFilter(cmd)
	if err != nil {
		return err
	}
	catalog, err := r.providerCatalog(cmd)
	if err != nil {
		return err
	}
	skipOwned := cmd.Bool("skip-owned")
	pipeline, err := r.pipeline(ctx, catalog, flowDiscography, skipOwned)
	if err != nil {
		return err
	}

	run, err := r.track(func(progress chan<- tasks.ProgressUpdate) (*tasks.Run, error) {
		return pipeline.Discography(ctx, progress, tasks.DiscographyRequest{
			Band:      band,
			Album:     album,
			Filter:    filter,
			SkipOwned: skipOwned,
		})
	})
	return r.finish(cmd, run, err)
}

// Playlist emits the distinct albums of a Deezer or Spotify playlist.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	if raw == "" {
		line, err := r.readInput("Enter playlist URL: ")
		if err != nil {
			return err
		}
		raw = line
	}

	u, err := services.ParsePlaylistURL(raw)
	if err != nil {
		return err
	}
	return r.runPlaylist(ctx, cmd, u)
}

func (r *Runner) runPlaylist(ctx context.Context, cmd *cli.Command, u services.CatalogURL) error {
	filter, err := r.playlistFilter(cmd)
	if err != nil {
		return err
	}
	catalog, err := r.catalog(u.Provider)
	if err != nil {
		return err
	}
	skipOwned := cmd.Bool("skip-owned")
	pipeline, err := r.pipeline(ctx, catalog, flowPlaylist, skipOwned)
	if err != nil {
		return err
	}

	run, err := r.track(func(progress chan<- tasks.ProgressUpdate) (*tasks.Run, error) {
		return pipeline.Playlist(ctx, progress, tasks.PlaylistRequest{ID: u.ID, Filter: filter, SkipOwned: skipOwned})
	})
	return r.finish(cmd, run, err)
}

// Resolve dispatches playlist links to [Runner.Playlist] and free text to [Runner.Album].
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	input := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if input == "" {
		line, err := r.readInput("Enter playlist URL or album (Band - Album): ")
		if err != nil {
			return err
		}
		input = line
	}

	if services.IsCatalogURL(input) {
		u, err := services.ParsePlaylistURL(input)
		if err != nil {
			return err
		}
		r.logger.Debug("resolving playlist link", "provider", u.Provider, "id", u.ID)
		return r.runPlaylist(ctx, cmd, u)
	}

	return r.runAlbum(ctx, cmd, albumQuery(input))
}

func (r *Runner) providerCatalog(cmd *cli.Command) (services.Catalog, error) {
	p, err := models.ParseProvider(cmd.String("provider"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return r.catalog(p)
}

// discographyFilter applies --all-types and --include-singles over the [filter] section.
func (r *Runner) discographyFilter(cmd *cli.Command) (tasks.ReleaseFilter, error) {
	if cmd.Bool("all-types") {
		return tasks.UniversalFilter(), nil
	}

	filter, err := tasks.FilterFromConfig(r.config.Filter.AllowedTypes, r.config.Filter.IncludeAll, false)
	if err != nil {
		return tasks.ReleaseFilter{}, err
	}
	if cmd.Bool("include-singles") && !filter.Universal() {
		filter = tasks.NewReleaseFilter(append(filter.Types(), models.RecordSingle)...)
	}
	return filter, nil
}

// playlistFilter keeps every release type unless --album-only or filter.playlist_types narrows it.
func (r *Runner) playlistFilter(cmd *cli.Command) (tasks.ReleaseFilter, error) {
	if cmd.Bool("album-only") {
		return tasks.NewReleaseFilter(models.RecordAlbum), nil
	}
	return tasks.FilterFromConfig(r.config.Filter.PlaylistTypes, r.config.Filter.IncludeAll, true)
}

// finish reports a run on the status stream and emits its URLs.
func (r *Runner) finish(cmd *cli.Command, run *tasks.Run, err error) error {
	if err != nil {
		if run != nil {
			r.logger.Debug("run failed", "run", run.ID, "state", run.State, "history", run.History)
			if r.outputFormat(cmd) == shared.FormatJSON && r.outputMode(cmd) == shared.OutputStdout {
				if rerr := formatter.Render(r.output, shared.FormatJSON, run); rerr != nil {
					r.logger.Error("failed to write run report", "err", rerr)
				}
			}
		}
		return err
	}

	if run.Diffed && cmd.Bool("verbose") {
		fmt.Fprint(r.errOutput, formatter.SummaryTable(run.Existing, run.Albums, formatter.DefaultSummaryLimit))
	}

	r.status("%s", r.palette.OK(formatter.Summary(run)))
	if run.Partial {
		r.logger.Warn("results are incomplete", "pages", run.Pages, "err", run.FetchErr)
		r.status("%s", r.palette.Warn(fmt.Sprintf("Warning: %v", run.FetchErr)))
	}
	r.logger.Debug("run finished", "run", run.ID, "elapsed", elapsed(run.Elapsed()))

	if len(run.Albums) == 0 && r.outputFormat(cmd) != shared.FormatJSON {
		r.status("%s", r.palette.Help("Nothing new to download"))
		return nil
	}
	return r.emit(cmd, run)
}

// emit writes the run to stdout or the clipboard. When the clipboard fails the URLs are printed
// to stdout instead and the clipboard error is still returned.
func (r *Runner) emit(cmd *cli.Command, run *tasks.Run) error {
	format := r.outputFormat(cmd)

	switch mode := r.outputMode(cmd); mode {
	case shared.OutputStdout:
		return formatter.Render(r.output, format, run)
	case shared.OutputClipboard:
		w := shared.NewClipboardWriter(r.clipboard)
		if err := formatter.Render(w, format, run); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			r.logger.Error("failed to copy to clipboard", "err", err)
			if werr := r.writePlain("%s", w.Contents()); werr != nil {
				return werr
			}
			if !errors.Is(err, shared.ErrClipboard) {
				err = fmt.Errorf("%w: %v", shared.ErrClipboard, err)
			}
			return err
		}
		r.status("%s", r.palette.OK(fmt.Sprintf("Copied %d album URLs to clipboard!", len(run.Albums))))
		return nil
	default:
		return fmt.Errorf("%w: unknown output mode %q", shared.ErrInvalidArgument, mode)
	}
}
