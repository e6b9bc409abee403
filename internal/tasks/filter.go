package tasks

import (
	"fmt"
	"slices"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// ReleaseFilter keeps releases whose record type is in an allowed set.
//
// The zero value allows nothing. A universal filter allows every release, unknown types included.
type ReleaseFilter struct {
	allowed   map[models.RecordType]bool
	universal bool
}

// NewReleaseFilter allows the given record types, or album and EP when none are given.
func NewReleaseFilter(types ...models.RecordType) ReleaseFilter {
	if len(types) == 0 {
		types = []models.RecordType{models.RecordAlbum, models.RecordEP}
	}
	allowed := make(map[models.RecordType]bool, len(types))
	for _, t := range types {
		allowed[models.ParseRecordType(string(t))] = true
	}
	return ReleaseFilter{allowed: allowed}
}

// UniversalFilter bypasses the type check entirely.
func UniversalFilter() ReleaseFilter {
	return ReleaseFilter{universal: true}
}

// FilterFromConfig builds the filter for the [filter] config section. When includeAll is set or
// names is empty and universalWhenEmpty is true, the universal filter is returned.
func FilterFromConfig(names []string, includeAll, universalWhenEmpty bool) (ReleaseFilter, error) {
	if includeAll || (len(names) == 0 && universalWhenEmpty) {
		return UniversalFilter(), nil
	}

	types := make([]models.RecordType, 0, len(names))
	for _, name := range names {
		rt := models.ParseRecordType(name)
		if rt == models.RecordUnknown && name != string(models.RecordUnknown) {
			return ReleaseFilter{}, fmt.Errorf("%w: unknown record type %q", shared.ErrInvalidConfig, name)
		}
		types = append(types, rt)
	}
	return NewReleaseFilter(types...), nil
}

// Universal reports whether the filter allows everything.
func (f ReleaseFilter) Universal() bool {
	return f.universal
}

// Allows reports whether a release of type rt is kept.
func (f ReleaseFilter) Allows(rt models.RecordType) bool {
	if f.universal {
		return true
	}
	return f.allowed[models.ParseRecordType(string(rt))]
}

// Types lists the allowed record types in canonical order. Nil for the universal filter.
func (f ReleaseFilter) Types() []models.RecordType {
	if f.universal {
		return nil
	}
	types := []models.RecordType{}
	for _, rt := range append(models.RecordTypes(), models.RecordUnknown) {
		if f.allowed[rt] {
			types = append(types, rt)
		}
	}
	return types
}

// Apply returns the allowed releases in input order and how many were excluded.
func (f ReleaseFilter) Apply(albums []models.AlbumRef) ([]models.AlbumRef, int) {
	if f.universal {
		return slices.Clone(albums), 0
	}

	kept := make([]models.AlbumRef, 0, len(albums))
	for _, a := range albums {
		if f.Allows(a.RecordType) {
			kept = append(kept, a)
		}
	}
	return kept, len(albums) - len(kept)
}
