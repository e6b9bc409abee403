// Deezer public API implementation of [Catalog]
//
// Response types based on https://developers.deezer.com/api
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

const (
	defaultDeezerBaseURL  = "https://api.deezer.com"
	defaultDeezerPageSize = 100

	deezerQuotaExceeded = 4
	deezerDataNotFound  = 800
)

type deezerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type deezerArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deezerAlbum struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	RecordType string        `json:"record_type"`
	Artist     *deezerArtist `json:"artist"`
}

type deezerTrack struct {
	ID     int64         `json:"id"`
	Title  string        `json:"title"`
	Artist *deezerArtist `json:"artist"`
	Album  *deezerAlbum  `json:"album"`
}

// deezerPage is the list envelope. Deezer reports errors in-band with a 200 status.
type deezerPage[T any] struct {
	Data  *[]T         `json:"data"`
	Next  string       `json:"next"`
	Total int          `json:"total"`
	Error *deezerError `json:"error"`
}

type deezerPlaylist struct {
	ID    int64        `json:"id"`
	Title string       `json:"title"`
	Error *deezerError `json:"error"`
}

// DeezerOpts configures a [DeezerCatalog].
type DeezerOpts struct {
	BaseURL  string
	PageSize int
	Client   *http.Client
	Logger   *log.Logger
}

// DeezerCatalog implements [Catalog] over the unauthenticated Deezer API.
type DeezerCatalog struct {
	api      *APIService
	baseURL  string
	pageSize int
	logger   *log.Logger
}

// NewDeezerCatalog creates a Deezer catalog client.
func NewDeezerCatalog(opts DeezerOpts) *DeezerCatalog {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultDeezerBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultDeezerPageSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &DeezerCatalog{
		api:      NewAPIService("deezer", opts.Client),
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
		logger:   opts.Logger,
	}
}

func (d *DeezerCatalog) Name() string               { return "Deezer" }
func (d *DeezerCatalog) Provider() models.Provider { return models.ProviderDeezer }

// SearchAlbums queries /search/album.
func (d *DeezerCatalog) SearchAlbums(ctx context.Context, query string, limit int) (models.Page[models.AlbumRef], error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	d.logger.Debug("searching albums", "query", query, "limit", limit)

	var page deezerPage[deezerAlbum]
	if err := getPage(ctx, d, d.baseURL+"/search/album?"+params.Encode(), &page); err != nil {
		return models.Page[models.AlbumRef]{}, fmt.Errorf("album search failed: %w", err)
	}

	albums, err := d.albums(*page.Data, models.ArtistRef{})
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}
	return models.Page[models.AlbumRef]{Items: albums, Next: page.Next}, nil
}

// ArtistAlbums fetches /artist/{id}/albums. The cursor is the absolute "next" URL returned by Deezer.
func (d *DeezerCatalog) ArtistAlbums(ctx context.Context, artist models.ArtistRef, cursor string) (models.Page[models.AlbumRef], error) {
	target := cursor
	if target == "" {
		target = fmt.Sprintf("%s/artist/%s/albums?limit=%d", d.baseURL, url.PathEscape(artist.ID), d.pageSize)
	}

	d.logger.Debug("fetching albums", "url", target)

	var page deezerPage[deezerAlbum]
	if err := getPage(ctx, d, target, &page); err != nil {
		return models.Page[models.AlbumRef]{}, fmt.Errorf("artist albums failed: %w", err)
	}

	albums, err := d.albums(*page.Data, artist)
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}
	return models.Page[models.AlbumRef]{Items: albums, Next: page.Next}, nil
}

// Playlist fetches /playlist/{id} for its title.
func (d *DeezerCatalog) Playlist(ctx context.Context, playlistID string) (models.PlaylistRef, error) {
	var pl deezerPlaylist
	if err := d.api.GetJSON(ctx, fmt.Sprintf("%s/playlist/%s", d.baseURL, url.PathEscape(playlistID)), &pl); err != nil {
		return models.PlaylistRef{}, fmt.Errorf("playlist lookup failed: %w", err)
	}
	if pl.Error != nil {
		return models.PlaylistRef{}, fmt.Errorf("playlist lookup failed: %w", d.providerError(pl.Error))
	}

	return models.PlaylistRef{ID: playlistID, Name: pl.Title, Provider: models.ProviderDeezer}, nil
}

// PlaylistTracks fetches /playlist/{id}/tracks. Tracks without an album are skipped.
func (d *DeezerCatalog) PlaylistTracks(ctx context.Context, playlistID, cursor string) (models.Page[models.Track], error) {
	target := cursor
	if target == "" {
		target = fmt.Sprintf("%s/playlist/%s/tracks?limit=%d", d.baseURL, url.PathEscape(playlistID), d.pageSize)
	}

	d.logger.Debug("fetching playlist tracks", "url", target)

	var page deezerPage[deezerTrack]
	if err := getPage(ctx, d, target, &page); err != nil {
		return models.Page[models.Track]{}, fmt.Errorf("playlist tracks failed: %w", err)
	}

	tracks := make([]models.Track, 0, len(*page.Data))
	for _, t := range *page.Data {
		if t.Album == nil || t.Album.ID == 0 {
			d.logger.Debug("skipping track without album", "track", t.Title)
			continue
		}

		artist := toArtistRef(t.Artist)
		albumArtist := artist
		if t.Album.Artist != nil {
			albumArtist = toArtistRef(t.Album.Artist)
		}

		tracks = append(tracks, models.Track{
			ID:     strconv.FormatInt(t.ID, 10),
			Title:  t.Title,
			Artist: artist,
			Album: models.NewAlbumRef(
				models.ProviderDeezer,
				strconv.FormatInt(t.Album.ID, 10),
				t.Album.Title,
				albumArtist,
				models.ParseRecordType(t.Album.RecordType),
			),
		})
	}

	return models.Page[models.Track]{Items: tracks, Next: page.Next}, nil
}

// getPage decodes a list envelope, surfacing in-band errors and a missing "data" key.
func getPage[T any](ctx context.Context, d *DeezerCatalog, target string, page *deezerPage[T]) error {
	if err := d.api.GetJSON(ctx, target, page); err != nil {
		return err
	}
	if page.Error != nil {
		return d.providerError(page.Error)
	}
	if page.Data == nil {
		return fmt.Errorf("%w: deezer response has no data", shared.ErrParse)
	}
	return nil
}

func (d *DeezerCatalog) albums(items []deezerAlbum, fallback models.ArtistRef) ([]models.AlbumRef, error) {
	albums := make([]models.AlbumRef, 0, len(items))
	for _, a := range items {
		if a.ID == 0 {
			return nil, fmt.Errorf("%w: deezer album %q has no id", shared.ErrParse, a.Title)
		}

		artist := fallback
		if a.Artist != nil {
			artist = toArtistRef(a.Artist)
		}

		albums = append(albums, models.NewAlbumRef(
			models.ProviderDeezer,
			strconv.FormatInt(a.ID, 10),
			a.Title,
			artist,
			models.ParseRecordType(a.RecordType),
		))
	}
	return albums, nil
}

// providerError maps Deezer's in-band error codes to an HTTP-like status.
func (d *DeezerCatalog) providerError(e *deezerError) error {
	status := http.StatusBadGateway
	switch e.Code {
	case deezerQuotaExceeded:
		status = http.StatusTooManyRequests
	case deezerDataNotFound:
		status = http.StatusNotFound
	}
	return &shared.ProviderError{Provider: "deezer", Status: status, Code: e.Code, Message: strings.TrimSpace(e.Type + " " + e.Message)}
}

func toArtistRef(a *deezerArtist) models.ArtistRef {
	if a == nil {
		return models.ArtistRef{}
	}
	var id string
	if a.ID != 0 {
		id = strconv.FormatInt(a.ID, 10)
	}
	return models.ArtistRef{ID: id, Name: a.Name}
}
