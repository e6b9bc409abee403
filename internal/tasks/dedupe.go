package tasks

import (
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// Deduper keeps the first album seen for each title key ([shared.TitleKey]).
//
// Remasters, reissues and regional editions that share a title collapse into the first one.
type Deduper struct {
	seen map[string]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Add reports whether album is the first with its title.
func (d *Deduper) Add(album models.AlbumRef) bool {
	key := shared.TitleKey(album.Title)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct titles seen.
func (d *Deduper) Len() int {
	return len(d.seen)
}

// Dedupe returns albums with repeated titles removed, keeping first-occurrence order.
func Dedupe(albums []models.AlbumRef) []models.AlbumRef {
	d := NewDeduper()
	out := make([]models.AlbumRef, 0, len(albums))
	for _, a := range albums {
		if d.Add(a) {
			out = append(out, a)
		}
	}
	return out
}

// UniqueAlbums reduces tracks to their distinct albums by provider ID, in first-appearance order.
func UniqueAlbums(tracks []models.Track) []models.AlbumRef {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]models.AlbumRef, 0, len(tracks))
	for _, t := range tracks {
		if !t.Album.Valid() {
			continue
		}
		if _, ok := seen[t.Album.ID]; ok {
			continue
		}
		seen[t.Album.ID] = struct{}{}
		out = append(out, t.Album)
	}
	return out
}
