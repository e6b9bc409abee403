package models

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a streaming catalog.
type Provider string

const (
	ProviderDeezer  Provider = "deezer"
	ProviderSpotify Provider = "spotify"
)

const (
	DeezerAlbumBase  = "https://www.deezer.com/album/"
	SpotifyAlbumBase = "https://open.spotify.com/album/"
)

// ParseProvider converts a provider name (case-insensitive) into a [Provider].
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderDeezer:
		return ProviderDeezer, nil
	case ProviderSpotify:
		return ProviderSpotify, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// AlbumURL builds the public album page URL for the given album ID.
//
// Returns an empty string for an empty ID or unknown provider.
func (p Provider) AlbumURL(id string) string {
	if id == "" {
		return ""
	}
	switch p {
	case ProviderDeezer:
		return DeezerAlbumBase + id
	case ProviderSpotify:
		return SpotifyAlbumBase + id
	default:
		return ""
	}
}

func (p Provider) String() string {
	switch p {
	case ProviderDeezer:
		return "Deezer"
	case ProviderSpotify:
		return "Spotify"
	default:
		return string(p)
	}
}

// RecordType is the provider-supplied classification of a release.
type RecordType string

const (
	RecordAlbum       RecordType = "album"
	RecordEP          RecordType = "ep"
	RecordSingle      RecordType = "single"
	RecordCompilation RecordType = "compilation"
	RecordUnknown     RecordType = "unknown"
)

// RecordTypes lists every known record type, unknown excluded.
func RecordTypes() []RecordType {
	return []RecordType{RecordAlbum, RecordEP, RecordSingle, RecordCompilation}
}

// ParseRecordType normalizes a provider record type. Deezer reports compilations as "compile".
// Empty or unrecognized values become [RecordUnknown].
func ParseRecordType(s string) RecordType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "album":
		return RecordAlbum
	case "ep":
		return RecordEP
	case "single":
		return RecordSingle
	case "compilation", "compile":
		return RecordCompilation
	default:
		return RecordUnknown
	}
}

// ArtistRef is a provider-scoped artist identity.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is a single release. URL is the pipeline's output unit.
type AlbumRef struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Artist     ArtistRef  `json:"artist"`
	RecordType RecordType `json:"record_type"`
	Provider   Provider   `json:"provider"`
	URL        string     `json:"url"`
}

// NewAlbumRef creates an [AlbumRef] whose URL is derived from the provider and ID.
func NewAlbumRef(p Provider, id, title string, artist ArtistRef, rt RecordType) AlbumRef {
	return AlbumRef{
		ID:         id,
		Title:      title,
		Artist:     artist,
		RecordType: rt,
		Provider:   p,
		URL:        p.AlbumURL(id),
	}
}

// Valid reports whether the album can be emitted.
func (a AlbumRef) Valid() bool {
	return a.URL != ""
}

// Candidate projects the album into the shape consumed by the collection matcher.
func (a AlbumRef) Candidate() Candidate {
	return Candidate{Artist: a.Artist.Name, Title: a.Title, URL: a.URL}
}

// PlaylistRef is playlist metadata.
type PlaylistRef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Provider Provider `json:"provider"`
}

// Track is a playlist entry. Album always carries the release the track belongs to.
type Track struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Artist ArtistRef `json:"artist"`
	Album  AlbumRef  `json:"album"`
}

// Page is one page of a cursor-paginated endpoint.
//
// An empty Next is the only terminal condition.
type Page[T any] struct {
	Items []T
	Next  string
}

// Last reports whether no further page follows.
func (p Page[T]) Last() bool {
	return p.Next == ""
}

// Candidate is the matcher's view of an album.
type Candidate struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s - %s", c.Artist, c.Title)
}

// OwnedAlbum is an album present in the local library index.
type OwnedAlbum struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"-"`
	Artist    string    `json:"artist"`
	Title     string    `json:"title"`
	ArtistKey string    `json:"-"`
	TitleKey  string    `json:"-"`
	Path      string    `json:"path"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Validate checks required fields before persistence.
func (o *OwnedAlbum) Validate() error {
	if o.Artist == "" {
		return fmt.Errorf("artist is required")
	}
	if o.Title == "" {
		return fmt.Errorf("title is required")
	}
	if o.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// CollectionStats summarizes the owned-collection index.
type CollectionStats struct {
	Albums    int       `json:"total_albums"`
	Artists   int       `json:"total_artists"`
	LastScan  time.Time `json:"last_scan"`
	Libraries []string  `json:"libraries,omitempty"`
}
