package repositories

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hbollon/go-edlib"
)

const (
	defaultFuzzyThreshold    = 0.92
	defaultFalsePositiveRate = 0.01
	defaultMemoSize          = 1024
)

// MatcherOpts tunes a [CollectionMatcher]. Zero values select defaults.
type MatcherOpts struct {
	FuzzyThreshold    float64 // Jaro-Winkler similarity for a fuzzy title match, in (0, 1]
	FalsePositiveRate float64 // Bloom filter rate for the owned-artist pre-check
	CacheSize         int     // Memoized decisions
	Logger            *log.Logger
}

// MatcherOptsFromConfig maps the [collection] config section onto [MatcherOpts].
func MatcherOptsFromConfig(c shared.CollectionConfig, logger *log.Logger) MatcherOpts {
	return MatcherOpts{
		FuzzyThreshold:    c.FuzzyThreshold,
		FalsePositiveRate: c.BloomFalsePositiveRate,
		CacheSize:         c.CacheSize,
		Logger:            logger,
	}
}

// CollectionMatcher decides which candidates are already in the owned collection.
//
// A candidate is owned when an owned album has the same artist key and either the same title key
// or a title whose Jaro-Winkler similarity reaches the fuzzy threshold. The index is loaded from
// the repository on first use.
type CollectionMatcher struct {
	repo *CollectionRepository
	opts MatcherOpts

	mu      sync.Mutex
	loaded  bool
	artists *bloom.BloomFilter
	titles  map[string][]string // artist key -> title keys
	memo    *lru.Cache[string, bool]
}

// NewCollectionMatcher creates a matcher over repo.
func NewCollectionMatcher(repo *CollectionRepository, opts MatcherOpts) (*CollectionMatcher, error) {
	if opts.FuzzyThreshold <= 0 || opts.FuzzyThreshold > 1 {
		opts.FuzzyThreshold = defaultFuzzyThreshold
	}
	if opts.FalsePositiveRate <= 0 || opts.FalsePositiveRate >= 1 {
		opts.FalsePositiveRate = defaultFalsePositiveRate
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultMemoSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	memo, err := lru.New[string, bool](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}

	return &CollectionMatcher{repo: repo, opts: opts, memo: memo}, nil
}

// Load (re)builds the in-memory index from the repository and drops memoized decisions.
func (m *CollectionMatcher) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *CollectionMatcher) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	owned, err := m.repo.List(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCollectionUnavailable, err)
	}

	m.artists = bloom.NewWithEstimates(uint(max(len(owned), 1)), m.opts.FalsePositiveRate)
	m.titles = make(map[string][]string)
	for _, album := range owned {
		m.artists.AddString(album.ArtistKey)
		m.titles[album.ArtistKey] = append(m.titles[album.ArtistKey], album.TitleKey)
	}
	m.memo.Purge()
	m.loaded = true

	m.opts.Logger.Debug("loaded collection index", "albums", len(owned), "artists", len(m.titles))
	return nil
}

// Len returns the number of indexed artists.
func (m *CollectionMatcher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titles)
}

// Classify partitions candidates into albums missing from the collection and albums already owned.
// Both slices keep input order and together hold every candidate exactly once.
func (m *CollectionMatcher) Classify(ctx context.Context, candidates []models.Candidate) (fresh, existing []models.Candidate, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		if err := m.load(ctx); err != nil {
			return nil, nil, err
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if m.owns(c) {
			existing = append(existing, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return fresh, existing, nil
}

func (m *CollectionMatcher) owns(c models.Candidate) bool {
	artistKey, titleKey := shared.ArtistKey(c.Artist), shared.MatchKey(c.Title)
	key := artistKey + "\x00" + titleKey

	if owned, ok := m.memo.Get(key); ok {
		return owned
	}

	owned := m.match(artistKey, titleKey)
	m.memo.Add(key, owned)
	return owned
}

func (m *CollectionMatcher) match(artistKey, titleKey string) bool {
	if !m.artists.TestString(artistKey) {
		return false
	}

	titles := m.titles[artistKey]
	for _, t := range titles {
		if t == titleKey {
			return true
		}
	}

	for _, t := range titles {
		sim, err := edlib.StringsSimilarity(titleKey, t, edlib.JaroWinkler)
		if err == nil && float64(sim) >= m.opts.FuzzyThreshold {
			m.opts.Logger.Debug("fuzzy title match", "artist", artistKey, "title", titleKey, "owned", t, "similarity", sim)
			return true
		}
	}
	return false
}
