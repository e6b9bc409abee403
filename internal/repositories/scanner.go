package repositories

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/gofrs/flock"
)

var (
	leadingYearRegex = regexp.MustCompile(`^[\[(]?(19|20)\d{2}[\])]?\s*[-–.:]?\s+`)
	trailingTagRegex = regexp.MustCompile(`(?i)\s*[\[(][^\[\]()]*\b(flac|mp3|aac|alac|ogg|opus|wav|320|v0|\d+\s*kbps|\d{2}\s*-?\s*bit|web|cd|vinyl|remaster(ed)?|(19|20)\d{2})\b[^\[\]()]*[\])]\s*$`)
)

// CleanAlbumFolder turns a library folder name into an album title.
//
// "1986 - Master of Puppets [FLAC]" and "Master of Puppets (2017 Remaster)" both become
// "Master of Puppets". Other parentheticals, such as "(Live)", are kept.
func CleanAlbumFolder(name string) string {
	name = strings.TrimSpace(name)
	cleaned := leadingYearRegex.ReplaceAllString(name, "")
	for {
		next := trailingTagRegex.ReplaceAllString(cleaned, "")
		if next == cleaned {
			break
		}
		cleaned = next
	}
	if cleaned = strings.TrimSpace(cleaned); cleaned == "" {
		return name
	}
	return cleaned
}

// ScanResult reports one library scan.
type ScanResult struct {
	Root    string        `json:"root"`
	Artists int           `json:"artists"`
	Albums  int           `json:"albums"`
	Removed int           `json:"removed"`
	Elapsed time.Duration `json:"elapsed"`
}

// ScannerOpts configures a [Scanner].
type ScannerOpts struct {
	LockPath string // Empty disables locking
	Logger   *log.Logger
}

// Scanner indexes an <root>/<Artist>/<Album> folder tree into a [CollectionRepository].
type Scanner struct {
	repo   *CollectionRepository
	lock   *flock.Flock
	logger *log.Logger
}

// NewScanner creates a scanner writing into repo.
func NewScanner(repo *CollectionRepository, opts ScannerOpts) *Scanner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	s := &Scanner{repo: repo, logger: opts.Logger}
	if opts.LockPath != "" {
		s.lock = flock.New(opts.LockPath)
	}
	return s
}

// Scan walks root, upserts one row per album folder and prunes rows for folders that are gone.
//
// Hidden entries and loose files are ignored. Only one scan may hold the lock at a time.
func (s *Scanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	start := time.Now()
	result := ScanResult{Root: root}

	abs, err := filepath.Abs(shared.ExpandPath(root))
	if err != nil {
		return result, fmt.Errorf("%w: library path %q: %v", shared.ErrInvalidArgument, root, err)
	}
	result.Root = abs

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return result, fmt.Errorf("%w: library path %q is not a directory", shared.ErrInvalidArgument, root)
	}

	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			return result, fmt.Errorf("%w: failed to lock collection: %v", shared.ErrCollectionUnavailable, err)
		}
		if !ok {
			return result, fmt.Errorf("%w: another scan is in progress", shared.ErrCollectionUnavailable)
		}
		defer s.lock.Unlock()
	}

	artists, err := visibleDirs(abs)
	if err != nil {
		return result, fmt.Errorf("failed to read library: %w", err)
	}

	seen := make(map[string]bool)
	for _, artist := range artists {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		artistDir := filepath.Join(abs, artist)
		albums, err := visibleDirs(artistDir)
		if err != nil {
			s.logger.Warn("skipping unreadable artist folder", "path", artistDir, "err", err)
			continue
		}
		if len(albums) > 0 {
			result.Artists++
		}

		for _, folder := range albums {
			album := &models.OwnedAlbum{
				Artist:    artist,
				Title:     CleanAlbumFolder(folder),
				Path:      filepath.Join(artistDir, folder),
				ScannedAt: start.UTC(),
			}
			if err := s.repo.Upsert(album); err != nil {
				return result, err
			}
			seen[album.Path] = true
			result.Albums++
		}
	}

	if result.Removed, err = s.repo.Prune(abs, seen); err != nil {
		return result, err
	}
	if err := s.repo.RecordRoot(abs, result.Albums, start.UTC()); err != nil {
		return result, err
	}

	result.Elapsed = time.Since(start)
	s.logger.Info("scanned library", "root", abs, "artists", result.Artists, "albums", result.Albums, "removed", result.Removed)
	return result, nil
}

func visibleDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
