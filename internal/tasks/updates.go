package tasks

import (
	"fmt"

	"github.com/desertthunder/deemixkit/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline state the update belongs to
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase is a pipeline run state.
//
// Runs move forward only: Idle → InputParsed → ArtistResolving → CatalogFetching → Filtering →
// Deduplicating → CollectionDiffing → Done, with Failed reachable from every non-terminal state.
type Phase int

const (
	Idle Phase = iota
	InputParsed
	ArtistResolving
	CatalogFetching
	Filtering
	Deduplicating
	CollectionDiffing
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InputParsed:
		return "input_parsed"
	case ArtistResolving:
		return "artist_resolving"
	case CatalogFetching:
		return "catalog_fetching"
	case Filtering:
		return "filtering"
	case Deduplicating:
		return "deduplicating"
	case CollectionDiffing:
		return "collection_diffing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == Done || p == Failed
}

func searchingUpdate(query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArtistResolving,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Searching for %q...", query),
	}
}

func resolvedUpdate(artist models.ArtistRef, pin models.AlbumRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArtistResolving,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found artist: %s (ID: %s) via %q", artist.Name, artist.ID, pin.Title),
		Data:    artist,
	}
}

func fetchingPageUpdate(page, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CatalogFetching,
		Step:    page,
		Message: fmt.Sprintf("Fetched page %d (%d items so far)", page, items),
	}
}

func foundPlaylistUpdate(pl models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CatalogFetching,
		Message: fmt.Sprintf("Found playlist: %s", pl.Name),
		Data:    pl,
	}
}

func filteredUpdate(kept, excluded int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Filtering,
		Step:    kept,
		Total:   kept + excluded,
		Message: fmt.Sprintf("Kept %d of %d releases", kept, kept+excluded),
	}
}

func dedupedUpdate(unique, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Deduplicating,
		Step:    unique,
		Total:   total,
		Message: fmt.Sprintf("%d unique albums", unique),
	}
}

func diffedUpdate(fresh, existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectionDiffing,
		Step:    fresh,
		Total:   fresh + existing,
		Message: fmt.Sprintf("%d new, %d already owned", fresh, existing),
	}
}
