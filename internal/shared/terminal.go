package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether v is an *os.File attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Clipboard is a copy-paste buffer.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboard
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	return nil
}

// ClipboardWriter buffers writes and copies them to a [Clipboard] on Close.
type ClipboardWriter struct {
	clip Clipboard
	buf  []byte
}

func NewClipboardWriter(c Clipboard) *ClipboardWriter {
	if c == nil {
		c = SystemClipboard{}
	}
	return &ClipboardWriter{clip: c}
}

func (w *ClipboardWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Close flushes the buffered text, without the trailing newline, to the clipboard.
func (w *ClipboardWriter) Close() error {
	text := string(w.buf)
	for len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}
	return w.clip.WriteAll(text)
}

// Contents returns what has been written so far.
func (w *ClipboardWriter) Contents() string {
	return string(w.buf)
}

var _ io.WriteCloser = (*ClipboardWriter)(nil)
