package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	tu "github.com/desertthunder/deemixkit/internal/testing"
)

// fakeClassifier marks candidates owned by "Artist - Title".
type fakeClassifier struct {
	owned map[string]bool
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, []models.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	var fresh, existing []models.Candidate
	for _, c := range candidates {
		if f.owned[c.String()] {
			existing = append(existing, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return fresh, existing, nil
}

func newTestPipeline(catalog *tu.MockCatalog, classifier Classifier) *Pipeline {
	p, _ := testPaginator(0)
	opts := PipelineOpts{Catalog: catalog, Paginator: p, SearchLimit: 5}
	if classifier != nil {
		opts.Classifier = classifier
	}
	return NewPipeline(opts)
}

func runProgress() (chan ProgressUpdate, func() []ProgressUpdate) {
	ch := make(chan ProgressUpdate, 100)
	return ch, func() []ProgressUpdate {
		close(ch)
		var updates []ProgressUpdate
		for u := range ch {
			updates = append(updates, u)
		}
		return updates
	}
}

func TestPipeline_ResolveAlbum(t *testing.T) {
	t.Run("Single Album Lookup", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.SearchResults["Metallica Master of Puppets"] = []models.AlbumRef{
			tu.Album("123", "Master of Puppets", "Metallica", models.RecordAlbum),
		}

		run, err := newTestPipeline(catalog, nil).ResolveAlbum(context.Background(), nil, "Metallica Master of Puppets")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if urls := run.URLs(); len(urls) != 1 || urls[0] != "https://www.deezer.com/album/123" {
			t.Errorf("expected [https://www.deezer.com/album/123], got %v", urls)
		}
		want := []Phase{Idle, InputParsed, ArtistResolving, Done}
		if !slices.Equal(run.History, want) {
			t.Errorf("expected history %v, got %v", want, run.History)
		}
	})

	t.Run("No Results", func(t *testing.T) {
		run, err := newTestPipeline(tu.NewMockCatalog(), nil).ResolveAlbum(context.Background(), nil, "Nothing Here")

		if !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
		if run.State != Failed || run.Reason == nil {
			t.Errorf("expected failed run with reason, got %s", run.State)
		}
		if len(run.URLs()) != 0 {
			t.Errorf("expected no output, got %v", run.URLs())
		}
	})

	t.Run("Empty Query", func(t *testing.T) {
		run, err := newTestPipeline(tu.NewMockCatalog(), nil).ResolveAlbum(context.Background(), nil, "")
		if !shared.IsInputError(err) {
			t.Errorf("expected input error, got %v", err)
		}
		if !slices.Equal(run.History, []Phase{Idle, Failed}) {
			t.Errorf("expected Idle -> Failed, got %v", run.History)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.SearchErr = &shared.ProviderError{Provider: "deezer", Status: 503}

		_, err := newTestPipeline(catalog, nil).ResolveAlbum(context.Background(), nil, "x")
		if shared.StatusOf(err) != 503 {
			t.Errorf("expected status 503, got %v", err)
		}
	})
}

func TestPipeline_Discography(t *testing.T) {
	pin := tu.Album("1", "Master of Puppets", "Metallica", models.RecordAlbum)

	newCatalog := func(pages ...[]models.AlbumRef) *tu.MockCatalog {
		catalog := tu.NewMockCatalog()
		catalog.SearchResults["Metallica Master of Puppets"] = []models.AlbumRef{pin}
		catalog.ArtistPages = pages
		return catalog
	}

	t.Run("Filters Singles", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{
			tu.Album("10", "Album A", "Metallica", models.RecordAlbum),
			tu.Album("11", "Album B", "Metallica", models.RecordSingle),
		})

		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if urls := run.URLs(); len(urls) != 1 || urls[0] != "https://www.deezer.com/album/10" {
			t.Errorf("expected only album A, got %v", urls)
		}
		want := []Phase{Idle, InputParsed, ArtistResolving, CatalogFetching, Filtering, Deduplicating, Done}
		if !slices.Equal(run.History, want) {
			t.Errorf("expected history %v, got %v", want, run.History)
		}
		if run.Excluded != 1 || run.Fetched != 2 {
			t.Errorf("expected 2 fetched and 1 excluded, got %d/%d", run.Fetched, run.Excluded)
		}
	})

	t.Run("Artist Not Found", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.ArtistPages = [][]models.AlbumRef{{tu.Album("1", "Never", "Nobody", models.RecordAlbum)}}

		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Nonexistent Band", Album: "Imaginary Album", Filter: NewReleaseFilter(),
		})

		if !errors.Is(err, shared.ErrArtistNotFound) {
			t.Fatalf("expected ErrArtistNotFound, got %v", err)
		}
		if len(run.URLs()) != 0 {
			t.Errorf("expected no partial output, got %v", run.URLs())
		}
		if len(catalog.Cursors()) != 0 {
			t.Error("expected no catalog walk after a failed resolution")
		}
		if run.History[len(run.History)-1] != Failed || slices.Contains(run.History, CatalogFetching) {
			t.Errorf("expected ArtistResolving -> Failed, got %v", run.History)
		}
	})

	t.Run("Pages Are Walked And Deduplicated", func(t *testing.T) {
		catalog := newCatalog(
			[]models.AlbumRef{
				tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum),
				tu.Album("11", "Ride the Lightning", "Metallica", models.RecordAlbum),
			},
			[]models.AlbumRef{
				tu.Album("12", "KILL 'EM ALL", "Metallica", models.RecordAlbum),
				tu.Album("13", "Garage Days Re-Revisited", "Metallica", models.RecordEP),
			},
		)

		progress, drain := runProgress()
		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), progress, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(),
		})
		updates := drain()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var ids []string
		for _, a := range run.Albums {
			ids = append(ids, a.ID)
		}
		if strings.Join(ids, ",") != "10,11,13" {
			t.Errorf("expected 10,11,13, got %v", ids)
		}
		if run.Pages != 2 || run.Partial {
			t.Errorf("expected 2 complete pages, got %d (partial=%v)", run.Pages, run.Partial)
		}
		if len(updates) == 0 {
			t.Error("expected progress updates")
		}
	})

	t.Run("Partial Results On Page Failure", func(t *testing.T) {
		catalog := newCatalog(
			[]models.AlbumRef{tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum)},
			[]models.AlbumRef{tu.Album("11", "Ride the Lightning", "Metallica", models.RecordAlbum)},
		)
		catalog.FailAtPage = 2
		catalog.FailErr = &shared.ProviderError{Provider: "deezer", Status: 502}

		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(),
		})
		if err != nil {
			t.Fatalf("expected degraded success, got %v", err)
		}
		if !run.Partial || shared.StatusOf(run.FetchErr) != 502 {
			t.Errorf("expected partial run with 502, got partial=%v err=%v", run.Partial, run.FetchErr)
		}
		if urls := run.URLs(); len(urls) != 1 {
			t.Errorf("expected first page only, got %v", urls)
		}
	})

	t.Run("First Page Failure Means No Results", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum)})
		catalog.FailAtPage = 1
		catalog.FailErr = fmt.Errorf("%w: timeout", shared.ErrNetwork)

		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(),
		})
		if !errors.Is(err, shared.ErrNoResults) {
			t.Fatalf("expected ErrNoResults, got %v", err)
		}
		if !strings.Contains(err.Error(), "fetch stopped early") {
			t.Errorf("expected fetch failure in message, got %v", err)
		}
		if !slices.Contains(run.History, Filtering) {
			t.Errorf("expected degraded transition into Filtering, got %v", run.History)
		}
	})

	t.Run("Cancellation Is Fatal", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum)})
		catalog.FailAtPage = 1
		catalog.FailErr = context.Canceled

		run, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(),
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if slices.Contains(run.History, Filtering) {
			t.Errorf("expected no filtering after cancel, got %v", run.History)
		}
	})

	t.Run("Missing Album Is Input Error", func(t *testing.T) {
		_, err := newTestPipeline(tu.NewMockCatalog(), nil).Discography(context.Background(), nil, DiscographyRequest{Band: "Metallica"})
		if !errors.Is(err, shared.ErrInputFormat) {
			t.Errorf("expected ErrInputFormat, got %v", err)
		}
	})

	t.Run("Skip Owned", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{
			tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum),
			tu.Album("11", "Ride the Lightning", "Metallica", models.RecordAlbum),
			tu.Album("12", "Load", "Metallica", models.RecordAlbum),
		})
		classifier := &fakeClassifier{owned: map[string]bool{"Metallica - Ride the Lightning": true}}

		run, err := newTestPipeline(catalog, classifier).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(), SkipOwned: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(run.Albums) != 2 || run.Albums[0].ID != "10" || run.Albums[1].ID != "12" {
			t.Errorf("expected new albums 10 and 12, got %+v", run.Albums)
		}
		if len(run.Existing) != 1 || run.Existing[0].ID != "11" {
			t.Errorf("expected owned album 11, got %+v", run.Existing)
		}
		if !slices.Contains(run.History, CollectionDiffing) || !run.Diffed {
			t.Errorf("expected CollectionDiffing, got %v", run.History)
		}
	})

	t.Run("Skip Owned Without Index", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum)})

		_, err := newTestPipeline(catalog, nil).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(), SkipOwned: true,
		})
		if !errors.Is(err, shared.ErrCollectionUnavailable) {
			t.Errorf("expected ErrCollectionUnavailable, got %v", err)
		}
		if len(catalog.Queries()) != 0 {
			t.Error("expected failure before any request")
		}
	})

	t.Run("Classifier Failure", func(t *testing.T) {
		catalog := newCatalog([]models.AlbumRef{tu.Album("10", "Kill 'Em All", "Metallica", models.RecordAlbum)})
		classifier := &fakeClassifier{err: errors.New("database is locked")}

		run, err := newTestPipeline(catalog, classifier).Discography(context.Background(), nil, DiscographyRequest{
			Band: "Metallica", Album: "Master of Puppets", Filter: NewReleaseFilter(), SkipOwned: true,
		})
		if !errors.Is(err, shared.ErrCollectionUnavailable) {
			t.Errorf("expected ErrCollectionUnavailable, got %v", err)
		}
		if len(run.URLs()) != 0 {
			t.Errorf("expected no output, got %v", run.URLs())
		}
	})
}

func TestPipeline_Playlist(t *testing.T) {
	t.Run("Two Tracks On One Album", func(t *testing.T) {
		album := tu.Album("555", "Seventh Son of a Seventh Son", "Iron Maiden", models.RecordAlbum)
		catalog := tu.NewMockCatalog()
		catalog.PlaylistName = "Road Trip"
		catalog.TrackPages = [][]models.Track{{
			tu.TrackOn("1", "Moonchild", album),
			tu.TrackOn("2", "Can I Play with Madness", album),
		}}

		run, err := newTestPipeline(catalog, nil).Playlist(context.Background(), nil, PlaylistRequest{ID: "42", Filter: UniversalFilter()})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if urls := run.URLs(); len(urls) != 1 || urls[0] != "https://www.deezer.com/album/555" {
			t.Errorf("expected album 555 exactly once, got %v", urls)
		}
		if run.Playlist.Name != "Road Trip" || run.Tracks != 2 {
			t.Errorf("unexpected playlist summary %+v (%d tracks)", run.Playlist, run.Tracks)
		}
		want := []Phase{Idle, InputParsed, CatalogFetching, Filtering, Deduplicating, Done}
		if !slices.Equal(run.History, want) {
			t.Errorf("expected history %v, got %v", want, run.History)
		}
	})

	t.Run("Name Lookup Failure Is Not Fatal", func(t *testing.T) {
		album := tu.Album("555", "Powerslave", "Iron Maiden", models.RecordAlbum)
		catalog := tu.NewMockCatalog()
		catalog.PlaylistErr = &shared.ProviderError{Provider: "deezer", Status: 500}
		catalog.TrackPages = [][]models.Track{{tu.TrackOn("1", "Aces High", album)}}

		run, err := newTestPipeline(catalog, nil).Playlist(context.Background(), nil, PlaylistRequest{ID: "42", Filter: UniversalFilter()})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if run.Playlist.Name != "Unknown Playlist" {
			t.Errorf("expected fallback name, got %q", run.Playlist.Name)
		}
	})

	t.Run("Album Only Filter", func(t *testing.T) {
		lp := tu.Album("1", "Powerslave", "Iron Maiden", models.RecordAlbum)
		single := tu.Album("2", "Aces High", "Iron Maiden", models.RecordSingle)
		catalog := tu.NewMockCatalog()
		catalog.TrackPages = [][]models.Track{{tu.TrackOn("1", "2 Minutes to Midnight", lp)}, {tu.TrackOn("2", "Aces High", single)}}

		run, err := newTestPipeline(catalog, nil).Playlist(context.Background(), nil, PlaylistRequest{
			ID: "42", Filter: NewReleaseFilter(models.RecordAlbum),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(run.Albums) != 1 || run.Albums[0].ID != "1" {
			t.Errorf("expected only the album, got %+v", run.Albums)
		}
		if run.Pages != 2 {
			t.Errorf("expected 2 pages, got %d", run.Pages)
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.TrackPages = [][]models.Track{{}}

		_, err := newTestPipeline(catalog, nil).Playlist(context.Background(), nil, PlaylistRequest{ID: "42", Filter: UniversalFilter()})
		if !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
	})

	t.Run("All Owned Is Empty Success", func(t *testing.T) {
		album := tu.Album("555", "Powerslave", "Iron Maiden", models.RecordAlbum)
		catalog := tu.NewMockCatalog()
		catalog.TrackPages = [][]models.Track{{tu.TrackOn("1", "Aces High", album)}}
		classifier := &fakeClassifier{owned: map[string]bool{"Iron Maiden - Powerslave": true}}

		run, err := newTestPipeline(catalog, classifier).Playlist(context.Background(), nil, PlaylistRequest{
			ID: "42", Filter: UniversalFilter(), SkipOwned: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(run.Albums) != 0 || len(run.Existing) != 1 || !run.Succeeded() {
			t.Errorf("expected 0 new, 1 owned, done; got %d/%d %s", len(run.Albums), len(run.Existing), run.State)
		}
	})

	t.Run("Missing ID", func(t *testing.T) {
		_, err := newTestPipeline(tu.NewMockCatalog(), nil).Playlist(context.Background(), nil, PlaylistRequest{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestRunStateMachine(t *testing.T) {
	t.Run("Forward Path", func(t *testing.T) {
		run := newRun(ModeDiscography, models.ProviderDeezer, "x")
		for _, p := range []Phase{InputParsed, ArtistResolving, CatalogFetching, Filtering, Deduplicating, CollectionDiffing, Done} {
			if err := run.advance(p); err != nil {
				t.Fatalf("advance(%s): %v", p, err)
			}
		}
		if !run.Succeeded() || run.Finished.IsZero() {
			t.Error("expected a finished run")
		}
	})

	t.Run("Rejected Transitions", func(t *testing.T) {
		tests := []struct {
			name string
			path []Phase
			next Phase
		}{
			{"Backward", []Phase{InputParsed, ArtistResolving, CatalogFetching}, ArtistResolving},
			{"Skip Filtering", []Phase{InputParsed, CatalogFetching}, Deduplicating},
			{"Idle To Done", nil, Done},
			{"After Done", []Phase{InputParsed, ArtistResolving, Done}, Failed},
			{"After Failed", []Phase{Failed}, InputParsed},
			{"Self Loop", []Phase{InputParsed, CatalogFetching}, CatalogFetching},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				run := newRun(ModeDiscography, models.ProviderDeezer, "x")
				for _, p := range tt.path {
					if err := run.advance(p); err != nil {
						t.Fatalf("setup advance(%s): %v", p, err)
					}
				}
				if err := run.advance(tt.next); !errors.Is(err, shared.ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
			})
		}
	})

	t.Run("Failed From Any Non-Terminal State", func(t *testing.T) {
		for _, p := range []Phase{Idle, InputParsed, ArtistResolving, CatalogFetching, Filtering, Deduplicating, CollectionDiffing} {
			run := &Run{State: p, History: []Phase{p}}
			err := errors.New("boom")
			if got := run.fail(err); got != err {
				t.Errorf("expected fail to return its error")
			}
			if run.State != Failed || run.Reason != err {
				t.Errorf("%s: expected Failed with reason, got %s", p, run.State)
			}
		}
	})

	t.Run("Phase Names", func(t *testing.T) {
		if CollectionDiffing.String() != "collection_diffing" || Phase(99).String() != "" {
			t.Error("unexpected phase names")
		}
		b, _ := Done.MarshalText()
		if string(b) != "done" {
			t.Errorf("expected 'done', got %s", b)
		}
	})
}
