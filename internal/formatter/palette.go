package formatter

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is a small stylesheet for status lines written to stderr.
//
// A plain palette returns text unchanged, for pipes and redirected output.
type Palette struct {
	plain bool
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette creates the default palette. color=false disables styling.
func NewPalette(color bool) *Palette {
	return &Palette{
		plain: !color,
		title: NewBold("#7D56F4"),
		ok:    NewBold("#04B575"),
		err:   NewBold("#FF0000"),
		warn:  NewStyle("#FFA500"),
		help:  NewEm("#626262"),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) render(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

func (p *Palette) Title(text string) string { return p.render(p.title, text) }
func (p *Palette) OK(text string) string    { return p.render(p.ok, text) }
func (p *Palette) Err(text string) string   { return p.render(p.err, text) }
func (p *Palette) Warn(text string) string  { return p.render(p.warn, text) }
func (p *Palette) Help(text string) string  { return p.render(p.help, text) }
