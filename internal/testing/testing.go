// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/deemixkit/internal/models"
)

// MockCatalog is a scripted test double for [services.Catalog].
//
// Paginated endpoints serve their scripted pages in order; the cursor for page n+1 is "n".
// Set FailAtPage (1-based) with FailErr to make a page fetch fail.
type MockCatalog struct {
	ProviderID    models.Provider
	SearchResults map[string][]models.AlbumRef // keyed by exact query
	SearchErr     error
	ArtistPages   [][]models.AlbumRef
	PlaylistName  string
	PlaylistErr   error
	TrackPages    [][]models.Track
	FailAtPage    int
	FailErr       error

	mu      sync.Mutex
	queries []string
	cursors []string
}

// NewMockCatalog creates a Deezer-flavored mock catalog with no scripted data.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{ProviderID: models.ProviderDeezer, SearchResults: map[string][]models.AlbumRef{}}
}

func (m *MockCatalog) SearchAlbums(ctx context.Context, query string, limit int) (models.Page[models.AlbumRef], error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.Page[models.AlbumRef]{}, err
	}
	if m.SearchErr != nil {
		return models.Page[models.AlbumRef]{}, m.SearchErr
	}

	items := m.SearchResults[query]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return models.Page[models.AlbumRef]{Items: items}, nil
}

func (m *MockCatalog) ArtistAlbums(ctx context.Context, artist models.ArtistRef, cursor string) (models.Page[models.AlbumRef], error) {
	return scriptedPage(ctx, m, m.ArtistPages, cursor)
}

func (m *MockCatalog) Playlist(ctx context.Context, playlistID string) (models.PlaylistRef, error) {
	if m.PlaylistErr != nil {
		return models.PlaylistRef{}, m.PlaylistErr
	}
	return models.PlaylistRef{ID: playlistID, Name: m.PlaylistName, Provider: m.Provider()}, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID, cursor string) (models.Page[models.Track], error) {
	return scriptedPage(ctx, m, m.TrackPages, cursor)
}

func (m *MockCatalog) Provider() models.Provider {
	if m.ProviderID == "" {
		return models.ProviderDeezer
	}
	return m.ProviderID
}

func (m *MockCatalog) Name() string { return "mock" }

// Queries returns every search query received, in order.
func (m *MockCatalog) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Cursors returns every page cursor received, in order.
func (m *MockCatalog) Cursors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cursors...)
}

func scriptedPage[T any](ctx context.Context, m *MockCatalog, pages [][]T, cursor string) (models.Page[T], error) {
	m.mu.Lock()
	m.cursors = append(m.cursors, cursor)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.Page[T]{}, err
	}

	index := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return models.Page[T]{}, errors.New("mock: bad cursor " + cursor)
		}
		index = n
	}

	if m.FailAtPage > 0 && index+1 == m.FailAtPage {
		return models.Page[T]{}, m.FailErr
	}
	if index >= len(pages) {
		return models.Page[T]{}, nil
	}

	page := models.Page[T]{Items: pages[index]}
	if index+1 < len(pages) {
		page.Next = strconv.Itoa(index + 1)
	}
	return page, nil
}

// Album builds a Deezer [models.AlbumRef] for fixtures.
func Album(id, title, artist string, rt models.RecordType) models.AlbumRef {
	return models.NewAlbumRef(models.ProviderDeezer, id, title, models.ArtistRef{ID: "a-" + strings.ToLower(artist), Name: artist}, rt)
}

// TrackOn builds a [models.Track] belonging to album.
func TrackOn(id, title string, album models.AlbumRef) models.Track {
	return models.Track{ID: id, Title: title, Artist: album.Artist, Album: album}
}

// MockClipboard records the last text written. Err, when set, is returned instead.
type MockClipboard struct {
	Text  string
	Err   error
	Calls int
}

func (c *MockClipboard) WriteAll(text string) error {
	c.Calls++
	if c.Err != nil {
		return c.Err
	}
	c.Text = text
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper replays a fixed list of outcomes, one per request, and counts calls.
// Once exhausted it keeps returning the last outcome.
type SequenceRoundTripper struct {
	Statuses []int
	Errs     []error
	Bodies   []string

	mu    sync.Mutex
	calls int
}

func (s *SequenceRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if i < len(s.Errs) && s.Errs[i] != nil {
		return nil, s.Errs[i]
	}

	status, body := http.StatusOK, "{}"
	if n := len(s.Statuses); n > 0 {
		status = s.Statuses[min(i, n-1)]
	}
	if n := len(s.Bodies); n > 0 {
		body = s.Bodies[min(i, n-1)]
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

// Calls returns how many requests were sent.
func (s *SequenceRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustMkdirAll creates path and its parents under a test's temp dir.
func MustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", path, err)
	}
}
