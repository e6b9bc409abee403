package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/desertthunder/deemixkit/internal/tasks"
)

const bandAlbumSeparator = " - "

// readInput reads one line from the runner's input. The prompt is shown only when input is a terminal.
func (r *Runner) readInput(prompt string) (string, error) {
	if shared.IsTerminal(r.input) {
		fmt.Fprint(r.errOutput, prompt)
	}

	line, err := readLine(r.input)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", fmt.Errorf("%w: no input provided", shared.ErrMissingArgument)
	}
	return line, nil
}

func readLine(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return "", nil
}

// splitBandAlbum splits "Band - Album" on the first separator.
func splitBandAlbum(s string) (band, album string, err error) {
	band, album, ok := strings.Cut(s, bandAlbumSeparator)
	band, album = strings.TrimSpace(band), strings.TrimSpace(album)
	if !ok || band == "" || album == "" {
		return "", "", fmt.Errorf("%w: expected \"Band - Album\", got %q", shared.ErrInputFormat, s)
	}
	return band, album, nil
}

// albumQuery turns free text into a search query. "Band - Album" becomes "Band Album"; anything
// else is sent as typed.
func albumQuery(s string) string {
	if band, album, err := splitBandAlbum(s); err == nil {
		return tasks.Query(band, album)
	}
	return strings.TrimSpace(s)
}
