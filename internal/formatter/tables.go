package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/deemixkit/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultSummaryLimit is the number of rows listed per side of a collection diff.
const DefaultSummaryLimit = 10

// SummaryTable lists owned and missing albums, at most limit rows each, followed by
// "... and N more" when a side is truncated. limit <= 0 lists everything.
func SummaryTable(existing, fresh []models.AlbumRef, limit int) string {
	var b strings.Builder
	b.WriteString(albumTable("Already in Collection", "✓", existing, limit))
	b.WriteString("\n")
	b.WriteString(albumTable("Missing from Collection", "✗", fresh, limit))
	b.WriteString("\n")
	return b.String()
}

func albumTable(title, mark string, albums []models.AlbumRef, limit int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(fmt.Sprintf("%s (%d)", title, len(albums)))
	tw.AppendHeader(table.Row{"", "Artist", "Album", "Type"})

	shown := albums
	if limit > 0 && len(albums) > limit {
		shown = albums[:limit]
	}
	for _, a := range shown {
		tw.AppendRow(table.Row{mark, a.Artist.Name, a.Title, string(a.RecordType)})
	}
	if rest := len(albums) - len(shown); rest > 0 {
		tw.AppendFooter(table.Row{"", fmt.Sprintf("... and %d more", rest), "", ""})
	}

	return tw.Render()
}

// StatsTable renders collection statistics.
func StatsTable(stats models.CollectionStats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Collection", "Value"})

	lastScan := "never"
	if !stats.LastScan.IsZero() {
		lastScan = stats.LastScan.Local().Format(time.DateTime)
	}

	tw.AppendRow(table.Row{"Albums", strconv.Itoa(stats.Albums)})
	tw.AppendRow(table.Row{"Artists", strconv.Itoa(stats.Artists)})
	tw.AppendRow(table.Row{"Last scan", lastScan})
	for i, root := range stats.Libraries {
		label := ""
		if i == 0 {
			label = "Libraries"
		}
		tw.AppendRow(table.Row{label, root})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// OwnedTable lists indexed albums.
func OwnedTable(albums []*models.OwnedAlbum) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Artist", "Album", "Path"})
	for _, a := range albums {
		tw.AppendRow(table.Row{a.Sequence, a.Artist, a.Title, a.Path})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d albums", len(albums)), "", ""})
	return tw.Render()
}
