// Spotify Web API implementation of [Catalog]
//
// Uses the client-credentials grant; no user scopes are needed for public catalog reads.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL        = "https://accounts.spotify.com/api/token"
	spotifyBaseURL         = "https://api.spotify.com/v1/"
	defaultSpotifyPageSize = 50
)

// SpotifyOpts configures a [SpotifyCatalog].
type SpotifyOpts struct {
	APIURL      string
	TokenURL    string
	Credentials shared.ClientCredentials
	PageSize    int
	Client      *http.Client // Base client used for the token and API requests
	Logger      *log.Logger
}

// SpotifyCatalog implements [Catalog] using [spotify.Client].
//
// The bearer token is acquired on first use and lives only as long as the catalog value:
// every run authenticates again.
type SpotifyCatalog struct {
	creds      shared.ClientCredentials
	apiURL     string
	tokenURL   string
	pageSize   int
	httpClient *http.Client
	logger     *log.Logger
	client     *spotify.Client
}

// NewSpotifyCatalog creates a Spotify catalog client with the given client credentials.
func NewSpotifyCatalog(opts SpotifyOpts) (*SpotifyCatalog, error) {
	if opts.Credentials.Empty() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.APIURL == "" {
		opts.APIURL = spotifyBaseURL
	}
	if !strings.HasSuffix(opts.APIURL, "/") {
		opts.APIURL += "/"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultSpotifyPageSize
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &SpotifyCatalog{
		creds:      opts.Credentials,
		apiURL:     opts.APIURL,
		tokenURL:   opts.TokenURL,
		pageSize:   opts.PageSize,
		httpClient: opts.Client,
		logger:     opts.Logger,
	}, nil
}

func (s *SpotifyCatalog) Name() string               { return "Spotify" }
func (s *SpotifyCatalog) Provider() models.Provider { return models.ProviderSpotify }

// Authenticate exchanges the client credentials for a bearer token and builds the API client.
func (s *SpotifyCatalog) Authenticate(ctx context.Context) error {
	cfg := &clientcredentials.Config{
		ClientID:     s.creds.ClientID,
		ClientSecret: s.creds.ClientSecret,
		TokenURL:     s.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := cfg.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: spotify token request: %v", shared.ErrAuthFailed, err)
	}

	s.logger.Debug("acquired spotify token", "expires", token.Expiry)
	s.client = spotify.New(oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)), spotify.WithBaseURL(s.apiURL))
	return nil
}

func (s *SpotifyCatalog) api(ctx context.Context) (*spotify.Client, error) {
	if s.client == nil {
		if err := s.Authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return s.client, nil
}

// SearchAlbums runs an album-type search.
func (s *SpotifyCatalog) SearchAlbums(ctx context.Context, query string, limit int) (models.Page[models.AlbumRef], error) {
	client, err := s.api(ctx)
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}

	opts := []spotify.RequestOption{}
	if limit > 0 {
		opts = append(opts, spotify.Limit(limit))
	}

	s.logger.Debug("searching albums", "query", query, "limit", limit)

	result, err := client.Search(ctx, query, spotify.SearchTypeAlbum, opts...)
	if err != nil {
		return models.Page[models.AlbumRef]{}, s.wrap(ctx, "album search failed", err)
	}
	if result.Albums == nil {
		return models.Page[models.AlbumRef]{}, fmt.Errorf("%w: spotify search response has no albums", shared.ErrParse)
	}

	albums, err := s.albums(result.Albums.Albums, models.ArtistRef{})
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}
	return models.Page[models.AlbumRef]{Items: albums}, nil
}

// ArtistAlbums pages through albums, singles and compilations. The cursor is an item offset.
func (s *SpotifyCatalog) ArtistAlbums(ctx context.Context, artist models.ArtistRef, cursor string) (models.Page[models.AlbumRef], error) {
	offset, err := parseOffset(cursor)
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}

	client, err := s.api(ctx)
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}

	s.logger.Debug("fetching albums", "artist", artist.ID, "offset", offset)

	page, err := client.GetArtistAlbums(ctx, spotify.ID(artist.ID),
		[]spotify.AlbumType{spotify.AlbumTypeAlbum, spotify.AlbumTypeSingle, spotify.AlbumTypeCompilation},
		spotify.Limit(s.pageSize), spotify.Offset(offset))
	if err != nil {
		return models.Page[models.AlbumRef]{}, s.wrap(ctx, "artist albums failed", err)
	}

	albums, err := s.albums(page.Albums, artist)
	if err != nil {
		return models.Page[models.AlbumRef]{}, err
	}
	return models.Page[models.AlbumRef]{Items: albums, Next: nextOffset(page.Next, offset, len(page.Albums))}, nil
}

// Playlist fetches playlist metadata.
func (s *SpotifyCatalog) Playlist(ctx context.Context, playlistID string) (models.PlaylistRef, error) {
	client, err := s.api(ctx)
	if err != nil {
		return models.PlaylistRef{}, err
	}

	pl, err := client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return models.PlaylistRef{}, s.wrap(ctx, "playlist lookup failed", err)
	}

	return models.PlaylistRef{ID: playlistID, Name: pl.Name, Provider: models.ProviderSpotify}, nil
}

// PlaylistTracks pages through playlist items. Episodes, local files and removed tracks are skipped.
func (s *SpotifyCatalog) PlaylistTracks(ctx context.Context, playlistID, cursor string) (models.Page[models.Track], error) {
	offset, err := parseOffset(cursor)
	if err != nil {
		return models.Page[models.Track]{}, err
	}

	client, err := s.api(ctx)
	if err != nil {
		return models.Page[models.Track]{}, err
	}

	s.logger.Debug("fetching playlist tracks", "playlist", playlistID, "offset", offset)

	page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(s.pageSize), spotify.Offset(offset))
	if err != nil {
		return models.Page[models.Track]{}, s.wrap(ctx, "playlist tracks failed", err)
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		t := item.Track.Track
		if t == nil || item.IsLocal || t.Album.ID == "" {
			continue
		}

		artist := joinArtists(t.Artists)
		albumArtist := artist
		if len(t.Album.Artists) > 0 {
			albumArtist = models.ArtistRef{ID: string(t.Album.Artists[0].ID), Name: t.Album.Artists[0].Name}
		}

		tracks = append(tracks, models.Track{
			ID:     string(t.ID),
			Title:  t.Name,
			Artist: artist,
			Album: models.NewAlbumRef(
				models.ProviderSpotify,
				string(t.Album.ID),
				t.Album.Name,
				albumArtist,
				models.ParseRecordType(t.Album.AlbumType),
			),
		})
	}

	return models.Page[models.Track]{Items: tracks, Next: nextOffset(page.Next, offset, len(page.Items))}, nil
}

func (s *SpotifyCatalog) albums(items []spotify.SimpleAlbum, fallback models.ArtistRef) ([]models.AlbumRef, error) {
	albums := make([]models.AlbumRef, 0, len(items))
	for _, a := range items {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: spotify album %q has no id", shared.ErrParse, a.Name)
		}

		artist := fallback
		if len(a.Artists) > 0 {
			artist = models.ArtistRef{ID: string(a.Artists[0].ID), Name: a.Artists[0].Name}
		}

		albums = append(albums, models.NewAlbumRef(
			models.ProviderSpotify,
			string(a.ID),
			a.Name,
			artist,
			models.ParseRecordType(a.AlbumType),
		))
	}
	return albums, nil
}

// wrap classifies errors returned by [spotify.Client] into the catalog taxonomy.
func (s *SpotifyCatalog) wrap(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr spotify.Error
	var apiErrPtr *spotify.Error
	var urlErr *url.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("%s: %w", op, &shared.ProviderError{Provider: "spotify", Status: apiErr.Status, Message: apiErr.Message})
	case errors.As(err, &apiErrPtr):
		return fmt.Errorf("%s: %w", op, &shared.ProviderError{Provider: "spotify", Status: apiErrPtr.Status, Message: apiErrPtr.Message})
	case errors.As(err, &urlErr):
		return fmt.Errorf("%s: %w: %v", op, shared.ErrNetwork, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%s: %w: %v", op, shared.ErrParse, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, shared.ErrProvider, err)
	}
}

func joinArtists(artists []spotify.SimpleArtist) models.ArtistRef {
	if len(artists) == 0 {
		return models.ArtistRef{}
	}
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return models.ArtistRef{ID: string(artists[0].ID), Name: strings.Join(names, ", ")}
}

func parseOffset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: invalid spotify cursor %q", shared.ErrInvalidArgument, cursor)
	}
	return offset, nil
}

// nextOffset returns the cursor for the page after one holding n items, or "" on the last page.
func nextOffset(next string, offset, n int) string {
	if next == "" || n == 0 {
		return ""
	}
	return strconv.Itoa(offset + n)
}
