package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/services"
	"github.com/desertthunder/deemixkit/internal/shared"
)

// Mode names the flow a [Run] executes.
type Mode string

const (
	ModeAlbum       Mode = "album"
	ModeDiscography Mode = "discography"
	ModePlaylist    Mode = "playlist"
)

const (
	defaultSearchLimit  = 20
	unknownPlaylistName = "Unknown Playlist"
)

// Classifier partitions candidates into ones missing from and ones present in an owned collection.
// Both results must preserve input order.
type Classifier interface {
	Classify(ctx context.Context, candidates []models.Candidate) (fresh, existing []models.Candidate, err error)
}

// transitions lists the forward moves allowed out of each state. Failed is reachable from every
// non-terminal state and is not listed.
var transitions = map[Phase][]Phase{
	Idle:              {InputParsed},
	InputParsed:       {ArtistResolving, CatalogFetching},
	ArtistResolving:   {CatalogFetching, Done},
	CatalogFetching:   {Filtering},
	Filtering:         {Deduplicating},
	Deduplicating:     {CollectionDiffing, Done},
	CollectionDiffing: {Done},
}

// Run records one pipeline invocation from input to output.
type Run struct {
	ID       string             `json:"id"`
	Mode     Mode               `json:"mode"`
	Provider models.Provider    `json:"provider"`
	Input    string             `json:"input"`
	State    Phase              `json:"state"`
	History  []Phase            `json:"history"`
	Reason   error              `json:"-"`
	Artist   models.ArtistRef   `json:"artist,omitzero"`
	Pin      models.AlbumRef    `json:"pin,omitzero"`
	Playlist models.PlaylistRef `json:"playlist,omitzero"`

	Pages    int `json:"pages"`
	Tracks   int `json:"tracks,omitempty"`
	Fetched  int `json:"fetched"`
	Excluded int `json:"excluded"`
	Unique   int `json:"unique"`

	// Partial is set when pagination stopped early; FetchErr holds the cause.
	Partial  bool  `json:"partial"`
	FetchErr error `json:"-"`

	Albums   []models.AlbumRef `json:"albums"`
	Existing []models.AlbumRef `json:"existing,omitempty"`
	Diffed   bool              `json:"diffed"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

func newRun(mode Mode, provider models.Provider, input string) *Run {
	return &Run{
		ID:       shared.GenerateID(),
		Mode:     mode,
		Provider: provider,
		Input:    input,
		State:    Idle,
		History:  []Phase{Idle},
		Started:  time.Now(),
	}
}

// advance moves the run to the next state. Backward, skipping and post-terminal moves are rejected.
func (r *Run) advance(to Phase) error {
	if r.State.Terminal() {
		return fmt.Errorf("%w: %s is terminal", shared.ErrInvalidTransition, r.State)
	}
	if to == Failed {
		r.enter(to)
		return nil
	}
	for _, next := range transitions[r.State] {
		if next == to {
			r.enter(to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, r.State, to)
}

func (r *Run) enter(p Phase) {
	r.State = p
	r.History = append(r.History, p)
	if p.Terminal() {
		r.Finished = time.Now()
	}
}

// fail moves the run to Failed, records err as the reason and returns it.
func (r *Run) fail(err error) error {
	if !r.State.Terminal() {
		r.Reason = err
		r.enter(Failed)
	}
	return err
}

// Succeeded reports whether the run reached Done.
func (r *Run) Succeeded() bool {
	return r.State == Done
}

// URLs returns the output album URLs in pipeline order.
func (r *Run) URLs() []string {
	urls := make([]string, 0, len(r.Albums))
	for _, a := range r.Albums {
		urls = append(urls, a.URL)
	}
	return urls
}

// Elapsed is the wall-clock duration of the run so far.
func (r *Run) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// PipelineOpts configures a [Pipeline].
type PipelineOpts struct {
	Catalog     services.Catalog
	Paginator   *Paginator
	Classifier  Classifier // Optional; required only for SkipOwned requests
	SearchLimit int
	Logger      *log.Logger
}

// Pipeline runs resolution flows against one catalog. It performs one request at a time.
type Pipeline struct {
	catalog     services.Catalog
	resolver    *ArtistResolver
	paginator   *Paginator
	classifier  Classifier
	searchLimit int
	logger      *log.Logger
}

// DiscographyRequest selects an artist by pinning album and how to reduce its catalog.
type DiscographyRequest struct {
	Band      string
	Album     string
	Filter    ReleaseFilter
	SkipOwned bool
}

// PlaylistRequest selects a playlist and how to reduce its albums.
type PlaylistRequest struct {
	ID        string
	Filter    ReleaseFilter
	SkipOwned bool
}

// NewPipeline creates a pipeline over opts.Catalog.
func NewPipeline(opts PipelineOpts) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Paginator == nil {
		opts.Paginator = NewPaginator(0, opts.Logger)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}

	return &Pipeline{
		catalog:     opts.Catalog,
		resolver:    NewArtistResolver(opts.Catalog, opts.SearchLimit, opts.Logger),
		paginator:   opts.Paginator,
		classifier:  opts.Classifier,
		searchLimit: opts.SearchLimit,
		logger:      opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ResolveAlbum searches query and returns the first result as the run's single album.
func (p *Pipeline) ResolveAlbum(ctx context.Context, progress chan<- ProgressUpdate, query string) (*Run, error) {
	run := newRun(ModeAlbum, p.catalog.Provider(), query)
	logger := shared.WithLogger(p.logger, "run", run.ID, "mode", run.Mode)

	if query == "" {
		return run, run.fail(fmt.Errorf("%w: search query is required", shared.ErrMissingArgument))
	}
	p.must(run, InputParsed)

	p.must(run, ArtistResolving)
	p.sendProgress(progress, searchingUpdate(query))

	page, err := p.catalog.SearchAlbums(ctx, query, p.searchLimit)
	if err != nil {
		return run, run.fail(fmt.Errorf("album search for %q failed: %w", query, err))
	}

	var found *models.AlbumRef
	for i := range page.Items {
		if page.Items[i].Valid() {
			found = &page.Items[i]
			break
		}
	}
	if found == nil {
		return run, run.fail(fmt.Errorf("%w: %s has no albums for %q", shared.ErrNoResults, p.catalog.Name(), query))
	}

	run.Pin = *found
	run.Artist = found.Artist
	run.Fetched, run.Unique = len(page.Items), 1
	run.Albums = []models.AlbumRef{*found}

	logger.Info("resolved album", "artist", found.Artist.Name, "title", found.Title, "url", found.URL)
	p.must(run, Done)
	return run, nil
}

// Discography pins the artist with band and album, walks the artist's catalog, then filters,
// deduplicates and optionally diffs it against the owned collection.
func (p *Pipeline) Discography(ctx context.Context, progress chan<- ProgressUpdate, req DiscographyRequest) (*Run, error) {
	run := newRun(ModeDiscography, p.catalog.Provider(), Query(req.Band, req.Album))
	logger := shared.WithLogger(p.logger, "run", run.ID, "mode", run.Mode)

	if req.Band == "" || req.Album == "" {
		return run, run.fail(fmt.Errorf("%w: band and album are both required", shared.ErrInputFormat))
	}
	if err := p.checkClassifier(req.SkipOwned); err != nil {
		return run, run.fail(err)
	}
	p.must(run, InputParsed)

	p.must(run, ArtistResolving)
	p.sendProgress(progress, searchingUpdate(run.Input))

	artist, pin, err := p.resolver.Resolve(ctx, req.Band, req.Album)
	if err != nil {
		return run, run.fail(err)
	}
	run.Artist, run.Pin = artist, pin
	p.sendProgress(progress, resolvedUpdate(artist, pin))

	p.must(run, CatalogFetching)
	walk := Walk(ctx, p.paginator, withPageProgress(p, progress, func(ctx context.Context, cursor string) (models.Page[models.AlbumRef], error) {
		return p.catalog.ArtistAlbums(ctx, artist, cursor)
	}))
	if walk.Canceled() {
		return run, run.fail(walk.Err)
	}
	run.Pages, run.Fetched = walk.Pages, len(walk.Items)
	run.Partial, run.FetchErr = walk.Partial(), walk.Err

	logger.Info("fetched discography", "artist", artist.Name, "releases", run.Fetched, "pages", run.Pages, "partial", run.Partial)
	return p.reduce(ctx, progress, run, walk.Items, req.Filter, req.SkipOwned, logger)
}

// Playlist walks a playlist's tracks, reduces them to distinct albums, then filters, deduplicates
// and optionally diffs them against the owned collection.
//
// A failed playlist name lookup is not fatal; the name becomes "Unknown Playlist".
func (p *Pipeline) Playlist(ctx context.Context, progress chan<- ProgressUpdate, req PlaylistRequest) (*Run, error) {
	run := newRun(ModePlaylist, p.catalog.Provider(), req.ID)
	logger := shared.WithLogger(p.logger, "run", run.ID, "mode", run.Mode)

	if req.ID == "" {
		return run, run.fail(fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument))
	}
	if err := p.checkClassifier(req.SkipOwned); err != nil {
		return run, run.fail(err)
	}
	p.must(run, InputParsed)

	p.must(run, CatalogFetching)
	pl, err := p.catalog.Playlist(ctx, req.ID)
	if err != nil {
		if ctx.Err() != nil {
			return run, run.fail(ctx.Err())
		}
		logger.Warn("playlist name lookup failed", "playlist", req.ID, "err", err)
		pl = models.PlaylistRef{ID: req.ID, Name: unknownPlaylistName, Provider: p.catalog.Provider()}
	}
	run.Playlist = pl
	p.sendProgress(progress, foundPlaylistUpdate(pl))

	walk := Walk(ctx, p.paginator, withPageProgress(p, progress, func(ctx context.Context, cursor string) (models.Page[models.Track], error) {
		return p.catalog.PlaylistTracks(ctx, req.ID, cursor)
	}))
	if walk.Canceled() {
		return run, run.fail(walk.Err)
	}

	albums := UniqueAlbums(walk.Items)
	run.Pages, run.Tracks, run.Fetched = walk.Pages, len(walk.Items), len(albums)
	run.Partial, run.FetchErr = walk.Partial(), walk.Err

	logger.Info("fetched playlist", "name", pl.Name, "tracks", run.Tracks, "albums", run.Fetched, "partial", run.Partial)
	return p.reduce(ctx, progress, run, albums, req.Filter, req.SkipOwned, logger)
}

// reduce runs Filtering, Deduplicating and the optional CollectionDiffing step.
func (p *Pipeline) reduce(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	run *Run,
	albums []models.AlbumRef,
	filter ReleaseFilter,
	skipOwned bool,
	logger *log.Logger,
) (*Run, error) {
	p.must(run, Filtering)
	kept, excluded := filter.Apply(albums)
	run.Excluded = excluded
	p.sendProgress(progress, filteredUpdate(len(kept), excluded))
	logger.Debug("filtered releases", "kept", len(kept), "excluded", excluded, "types", filter.Types())

	p.must(run, Deduplicating)
	unique := Dedupe(kept)
	run.Unique = len(unique)
	p.sendProgress(progress, dedupedUpdate(len(unique), len(kept)))

	if len(unique) == 0 {
		err := fmt.Errorf("%w: nothing left after filtering %d releases", shared.ErrNoResults, run.Fetched)
		if run.FetchErr != nil {
			err = fmt.Errorf("%w (fetch stopped early: %v)", err, run.FetchErr)
		}
		return run, run.fail(err)
	}

	if !skipOwned {
		run.Albums = unique
		p.must(run, Done)
		return run, nil
	}

	p.must(run, CollectionDiffing)
	fresh, existing, err := p.diff(ctx, unique)
	if err != nil {
		return run, run.fail(err)
	}
	run.Albums, run.Existing, run.Diffed = fresh, existing, true
	p.sendProgress(progress, diffedUpdate(len(fresh), len(existing)))
	logger.Info("compared with collection", "new", len(fresh), "owned", len(existing))

	p.must(run, Done)
	return run, nil
}

// diff maps the classifier's candidate partition back onto albums.
func (p *Pipeline) diff(ctx context.Context, albums []models.AlbumRef) (fresh, existing []models.AlbumRef, err error) {
	candidates := make([]models.Candidate, 0, len(albums))
	byURL := make(map[string]models.AlbumRef, len(albums))
	for _, a := range albums {
		candidates = append(candidates, a.Candidate())
		byURL[a.URL] = a
	}

	newCandidates, ownedCandidates, err := p.classifier.Classify(ctx, candidates)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}

	pick := func(cs []models.Candidate) []models.AlbumRef {
		out := make([]models.AlbumRef, 0, len(cs))
		for _, c := range cs {
			if a, ok := byURL[c.URL]; ok {
				out = append(out, a)
			}
		}
		return out
	}
	return pick(newCandidates), pick(ownedCandidates), nil
}

func (p *Pipeline) checkClassifier(skipOwned bool) error {
	if skipOwned && p.classifier == nil {
		return fmt.Errorf("%w: no collection index configured", shared.ErrCollectionUnavailable)
	}
	return nil
}

// must advances along a transition the flow guarantees is valid.
func (p *Pipeline) must(run *Run, to Phase) {
	if err := run.advance(to); err != nil {
		panic(err)
	}
}

// withPageProgress reports every fetched page on progress.
func withPageProgress[T any](p *Pipeline, progress chan<- ProgressUpdate, fetch PageFunc[T]) PageFunc[T] {
	pages, items := 0, 0
	return func(ctx context.Context, cursor string) (models.Page[T], error) {
		page, err := fetch(ctx, cursor)
		if err == nil {
			pages, items = pages+1, items+len(page.Items)
			p.sendProgress(progress, fetchingPageUpdate(pages, items))
		}
		return page, err
	}
}
