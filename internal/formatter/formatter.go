// package formatter renders pipeline results: URL lines, JSON and CSV exports, and summary tables.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/desertthunder/deemixkit/internal/tasks"
)

// WriteURLs writes one album URL per line. Albums without a URL are skipped.
func WriteURLs(w io.Writer, albums []models.AlbumRef) error {
	for _, a := range albums {
		if a.URL == "" {
			continue
		}
		if _, err := io.WriteString(w, a.URL+"\n"); err != nil {
			return fmt.Errorf("failed to write URL: %w", err)
		}
	}
	return nil
}

// ExportCSV converts albums to CSV with columns: URL, Artist, Title, Type, Provider, ID
func ExportCSV(albums []models.AlbumRef) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"URL", "Artist", "Title", "Type", "Provider", "ID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range albums {
		record := []string{a.URL, a.Artist.Name, a.Title, string(a.RecordType), string(a.Provider), a.ID}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type runExport struct {
	*tasks.Run
	URLs       []string `json:"urls"`
	Error      string   `json:"error,omitempty"`
	FetchError string   `json:"fetch_error,omitempty"`
}

// ExportJSON renders a run, including its state history and failure reasons, as indented JSON.
func ExportJSON(run *tasks.Run) ([]byte, error) {
	export := runExport{Run: run, URLs: run.URLs()}
	if run.Reason != nil {
		export.Error = run.Reason.Error()
	}
	if run.FetchErr != nil {
		export.FetchError = run.FetchErr.Error()
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run: %w", err)
	}
	return append(data, '\n'), nil
}

// Render writes run's albums to w in format (urls, json or csv).
func Render(w io.Writer, format string, run *tasks.Run) error {
	switch format {
	case "", shared.FormatURLs:
		return WriteURLs(w, run.Albums)
	case shared.FormatJSON:
		data, err := ExportJSON(run)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case shared.FormatCSV:
		data, err := ExportCSV(run.Albums)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, format)
	}
}

// Summary is the one-line outcome of a successful run.
func Summary(run *tasks.Run) string {
	var b strings.Builder

	switch run.Mode {
	case tasks.ModeAlbum:
		fmt.Fprintf(&b, "Found %s - %s", run.Pin.Artist.Name, run.Pin.Title)
		return b.String()
	case tasks.ModePlaylist:
		fmt.Fprintf(&b, "Found %d unique albums in %s (%d tracks)", run.Unique, run.Playlist.Name, run.Tracks)
	default:
		fmt.Fprintf(&b, "Found %d unique releases for %s", run.Unique, run.Artist.Name)
	}

	if run.Excluded > 0 {
		fmt.Fprintf(&b, ", %d filtered out", run.Excluded)
	}
	if run.Diffed {
		fmt.Fprintf(&b, "; %d new, %d already owned", len(run.Albums), len(run.Existing))
	}
	if run.Partial {
		b.WriteString(" (incomplete: fetching stopped after page " + strconv.Itoa(run.Pages) + ")")
	}
	return b.String()
}
