package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/deemixkit/internal/formatter"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/urfave/cli/v3"
)

// CollectionScan indexes an <Artist>/<Album> library into the collection database.
func (r *Runner) CollectionScan(ctx context.Context, cmd *cli.Command) error {
	root := cmd.Args().First()
	if root == "" {
		root = r.config.Collection.LibraryPath
	}
	if root == "" {
		return fmt.Errorf("%w: library directory is required (argument or collection.library_path)", shared.ErrMissingArgument)
	}

	repo, err := r.collection()
	if err != nil {
		return err
	}

	r.status("Scanning %s...", root)
	result, err := r.scanner(repo).Scan(ctx, root)
	if err != nil {
		return err
	}

	r.status("%s", r.palette.OK(fmt.Sprintf("Indexed %d albums from %d artists", result.Albums, result.Artists)))
	if result.Removed > 0 {
		r.status("Removed %d albums no longer on disk", result.Removed)
	}
	r.logger.Debug("scan complete", "root", result.Root, "elapsed", elapsed(result.Elapsed))
	return nil
}

// CollectionStats prints album and artist counts for the index.
func (r *Runner) CollectionStats(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.collection()
	if err != nil {
		return err
	}

	stats, err := repo.Stats()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats)
	}
	return r.writePlain("%s\n", formatter.StatsTable(stats))
}

// CollectionList prints indexed albums, optionally for a single artist.
func (r *Runner) CollectionList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.collection()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if artist := cmd.String("artist"); artist != "" {
		criteria["artist_key"] = shared.ArtistKey(artist)
	}

	albums, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums)
	}
	return r.writePlain("%s\n", formatter.OwnedTable(albums))
}

// CollectionClear removes every indexed album.
func (r *Runner) CollectionClear(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.collection()
	if err != nil {
		return err
	}
	if err := repo.Clear(); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}

	r.logger.Info("collection cleared", "database", r.config.Collection.DatabasePath)
	r.status("Collection index cleared")
	return nil
}
