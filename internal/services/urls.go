package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// Kind is the resource type a catalog URL points at.
type Kind string

const (
	KindAlbum    Kind = "album"
	KindArtist   Kind = "artist"
	KindPlaylist Kind = "playlist"
	KindTrack    Kind = "track"
)

// CatalogURL is a parsed Deezer or Spotify link.
type CatalogURL struct {
	Provider models.Provider
	Kind     Kind
	ID       string
}

var catalogPatterns = []struct {
	provider models.Provider
	re       *regexp.Regexp
}{
	// https://www.deezer.com/playlist/123, https://www.deezer.com/en/album/123
	{models.ProviderDeezer, regexp.MustCompile(`(?i)(?:^|[/.])deezer\.com/(?:[a-z]{2}(?:-[a-z]{2})?/)?(album|artist|playlist|track)/(\d+)`)},
	// https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M, https://open.spotify.com/intl-de/album/...
	{models.ProviderSpotify, regexp.MustCompile(`(?i)(?:^|[/.])spotify\.com/(?:intl-[a-z]{2}/)?(album|artist|playlist|track)/([a-zA-Z0-9]+)`)},
	// spotify:playlist:37i9dQZF1DXcBWIGoYBM5M
	{models.ProviderSpotify, regexp.MustCompile(`^spotify:(album|artist|playlist|track):([a-zA-Z0-9]+)$`)},
}

// ParseCatalogURL recognizes Deezer and Spotify album, artist, playlist and track links.
func ParseCatalogURL(raw string) (CatalogURL, error) {
	raw = strings.TrimSpace(raw)
	for _, p := range catalogPatterns {
		if m := p.re.FindStringSubmatch(raw); m != nil {
			return CatalogURL{Provider: p.provider, Kind: Kind(strings.ToLower(m[1])), ID: m[2]}, nil
		}
	}
	return CatalogURL{}, fmt.Errorf("%w: %q", shared.ErrUnsupportedURL, raw)
}

// ParsePlaylistURL is [ParseCatalogURL] restricted to playlist links.
func ParsePlaylistURL(raw string) (CatalogURL, error) {
	u, err := ParseCatalogURL(raw)
	if err != nil {
		return CatalogURL{}, err
	}
	if u.Kind != KindPlaylist {
		return CatalogURL{}, fmt.Errorf("%w: %q is a %s link, not a playlist", shared.ErrUnsupportedURL, raw, u.Kind)
	}
	return u, nil
}

// IsCatalogURL reports whether s looks like a link rather than free text.
func IsCatalogURL(s string) bool {
	_, err := ParseCatalogURL(s)
	return err == nil
}
