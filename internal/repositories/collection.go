package repositories

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
)

const ownedAlbumColumns = "id, sequence, artist, title, artist_key, title_key, path, scanned_at"

// CollectionRepository persists the owned-collection index.
//
// Rows are keyed by folder path: re-scanning a folder updates its row in place.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new CollectionRepository with the given database connection
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Upsert inserts album or refreshes the existing row for album.Path.
//
// Match keys are derived from Artist and Title when empty. ID and Sequence are set on album.
func (r *CollectionRepository) Upsert(album *models.OwnedAlbum) error {
	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if album.ArtistKey == "" {
		album.ArtistKey = shared.ArtistKey(album.Artist)
	}
	if album.TitleKey == "" {
		album.TitleKey = shared.MatchKey(album.Title)
	}
	if album.ScannedAt.IsZero() {
		album.ScannedAt = time.Now().UTC()
	}

	var (
		id       string
		sequence int
	)
	err := r.db.QueryRow("SELECT id, sequence FROM owned_albums WHERE path = ?", album.Path).Scan(&id, &sequence)
	switch {
	case err == sql.ErrNoRows:
		return r.insert(album)
	case err != nil:
		return fmt.Errorf("failed to look up owned album: %w", err)
	}

	album.ID, album.Sequence = id, sequence
	_, err = r.db.Exec(`
		UPDATE owned_albums
		SET artist = ?, title = ?, artist_key = ?, title_key = ?, scanned_at = ?
		WHERE id = ?
	`, album.Artist, album.Title, album.ArtistKey, album.TitleKey, album.ScannedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update owned album: %w", err)
	}
	return nil
}

func (r *CollectionRepository) insert(album *models.OwnedAlbum) error {
	sequence, err := NextSequence(r.db, "owned_albums")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	album.ID = shared.GenerateID()
	album.Sequence = sequence

	_, err = r.db.Exec(`
		INSERT INTO owned_albums (`+ownedAlbumColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, album.ID, album.Sequence, album.Artist, album.Title, album.ArtistKey, album.TitleKey, album.Path, album.ScannedAt)
	if err != nil {
		return fmt.Errorf("failed to insert owned album: %w", err)
	}
	return nil
}

// Get retrieves an owned album by ID
func (r *CollectionRepository) Get(id string) (*models.OwnedAlbum, error) {
	row := r.db.QueryRow("SELECT "+ownedAlbumColumns+" FROM owned_albums WHERE id = ?", id)

	album, err := scanOwnedAlbum(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("owned album not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan owned album: %w", err)
	}
	return album, nil
}

// List retrieves owned albums in insertion order.
//
// Supported criteria: "artist_key" (exact) and "root" (path prefix).
func (r *CollectionRepository) List(criteria map[string]any) ([]*models.OwnedAlbum, error) {
	query := "SELECT " + ownedAlbumColumns + " FROM owned_albums WHERE 1 = 1"
	args := []any{}

	if artistKey, ok := criteria["artist_key"].(string); ok && artistKey != "" {
		query += " AND artist_key = ?"
		args = append(args, artistKey)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned albums: %w", err)
	}
	defer rows.Close()

	root, _ := criteria["root"].(string)

	var albums []*models.OwnedAlbum
	for rows.Next() {
		album, err := scanOwnedAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan owned album: %w", err)
		}
		if root != "" && !underRoot(album.Path, root) {
			continue
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// Count returns the number of owned albums.
func (r *CollectionRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM owned_albums").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count owned albums: %w", err)
	}
	return n, nil
}

// Stats summarizes the index: album and distinct artist counts, scanned roots and the latest scan.
func (r *CollectionRepository) Stats() (models.CollectionStats, error) {
	var stats models.CollectionStats

	err := r.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT artist_key) FROM owned_albums").Scan(&stats.Albums, &stats.Artists)
	if err != nil {
		return stats, fmt.Errorf("failed to compute collection stats: %w", err)
	}

	rows, err := r.db.Query("SELECT path, scanned_at FROM library_roots ORDER BY scanned_at DESC")
	if err != nil {
		return stats, fmt.Errorf("failed to query library roots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			path      string
			scannedAt time.Time
		)
		if err := rows.Scan(&path, &scannedAt); err != nil {
			return stats, fmt.Errorf("failed to scan library root: %w", err)
		}
		if scannedAt.After(stats.LastScan) {
			stats.LastScan = scannedAt
		}
		stats.Libraries = append(stats.Libraries, path)
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

// RecordRoot stores the result of a completed scan of root.
func (r *CollectionRepository) RecordRoot(root string, albums int, at time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO library_roots (path, album_count, scanned_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET album_count = excluded.album_count, scanned_at = excluded.scanned_at
	`, root, albums, at)
	if err != nil {
		return fmt.Errorf("failed to record library root: %w", err)
	}
	return nil
}

// Prune deletes rows under root whose path is not in keep, returning how many were removed.
func (r *CollectionRepository) Prune(root string, keep map[string]bool) (int, error) {
	albums, err := r.List(map[string]any{"root": root})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, album := range albums {
		if keep[album.Path] {
			continue
		}
		if _, err := r.db.Exec("DELETE FROM owned_albums WHERE id = ?", album.ID); err != nil {
			return removed, fmt.Errorf("failed to delete owned album: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Clear deletes every owned album and scanned root. Sequences keep counting.
func (r *CollectionRepository) Clear() error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM owned_albums", "DELETE FROM library_roots"} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOwnedAlbum scans a [sql.Row] or the current row of [sql.Rows] into a [models.OwnedAlbum]
func scanOwnedAlbum(row rowScanner) (*models.OwnedAlbum, error) {
	var album models.OwnedAlbum
	err := row.Scan(
		&album.ID, &album.Sequence, &album.Artist, &album.Title,
		&album.ArtistKey, &album.TitleKey, &album.Path, &album.ScannedAt,
	)
	if err != nil {
		return nil, err
	}
	return &album, nil
}

func underRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
