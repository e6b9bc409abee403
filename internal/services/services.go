// package services defines interface Catalog for reading streaming catalog HTTP APIs
//
// Deezer (public API), Spotify (client-credentials Web API)
package services

import (
	"context"

	"github.com/desertthunder/deemixkit/internal/models"
)

// Catalog is a read-only view of one streaming provider's catalog.
//
// Paginated operations take an opaque cursor: the empty cursor requests the first page and a
// returned [models.Page] with an empty Next is the last page. Cursors are only meaningful to
// the catalog that produced them.
type Catalog interface {
	// SearchAlbums runs a free-text album search. Results keep the provider's ranking.
	SearchAlbums(ctx context.Context, query string, limit int) (models.Page[models.AlbumRef], error)

	// ArtistAlbums fetches one page of an artist's releases.
	ArtistAlbums(ctx context.Context, artist models.ArtistRef, cursor string) (models.Page[models.AlbumRef], error)

	// Playlist fetches playlist metadata.
	Playlist(ctx context.Context, playlistID string) (models.PlaylistRef, error)

	// PlaylistTracks fetches one page of a playlist's tracks, each embedding its album.
	PlaylistTracks(ctx context.Context, playlistID, cursor string) (models.Page[models.Track], error)

	// Provider identifies the catalog.
	Provider() models.Provider

	// Name returns the display name of the catalog (e.g., "Deezer", "Spotify")
	Name() string
}
