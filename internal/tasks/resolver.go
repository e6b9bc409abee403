package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/services"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// ArtistResolver pins an artist identity with a single "band album" search: the first album
// returned is authoritative and its artist is the answer. No scoring across candidates is done,
// so two artists with identically named albums resolve to whichever the provider ranks first.
type ArtistResolver struct {
	catalog services.Catalog
	limit   int
	logger  *log.Logger
}

func NewArtistResolver(catalog services.Catalog, limit int, logger *log.Logger) *ArtistResolver {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &ArtistResolver{catalog: catalog, limit: limit, logger: logger}
}

// Query joins band and album into the pinning search text. Only surrounding whitespace is trimmed.
func Query(band, album string) string {
	return strings.TrimSpace(strings.TrimSpace(band) + " " + strings.TrimSpace(album))
}

// Resolve returns the pinned artist and the album that pinned it.
//
// Zero results, or a first result without an artist ID, is [shared.ErrArtistNotFound].
// Any search failure is fatal here since nothing downstream can run without the artist.
func (r *ArtistResolver) Resolve(ctx context.Context, band, album string) (models.ArtistRef, models.AlbumRef, error) {
	query := Query(band, album)
	if query == "" {
		return models.ArtistRef{}, models.AlbumRef{}, fmt.Errorf("%w: band is required", shared.ErrMissingArgument)
	}

	page, err := r.catalog.SearchAlbums(ctx, query, r.limit)
	if err != nil {
		return models.ArtistRef{}, models.AlbumRef{}, fmt.Errorf("artist search for %q failed: %w", query, err)
	}

	if len(page.Items) == 0 {
		return models.ArtistRef{}, models.AlbumRef{}, fmt.Errorf("%w: no %s results for %q", shared.ErrArtistNotFound, r.catalog.Name(), query)
	}

	pin := page.Items[0]
	if pin.Artist.ID == "" {
		return models.ArtistRef{}, models.AlbumRef{}, fmt.Errorf("%w: first result %q has no artist", shared.ErrArtistNotFound, pin.Title)
	}

	r.logger.Info("resolved artist", "artist", pin.Artist.Name, "id", pin.Artist.ID, "album", pin.Title)
	return pin.Artist, pin, nil
}
