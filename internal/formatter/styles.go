package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytune/internal/models"
)

// Styles is the default palette used by the renderers.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a small stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(title, ok, err, warn, muted string) *Palette {
	return &Palette{
		title: NewBold(title),
		ok:    NewBold(ok),
		err:   NewBold(err),
		warn:  NewStyle(warn),
		muted: NewEm(muted),
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

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Muted(s string) string { return p.muted.Render(s) }

// Badge renders a cache status as a short coloured label.
func (p *Palette) Badge(status models.CacheStatus) string {
	switch status {
	case models.StatusCached:
		return p.ok.Render("● cached")
	case models.StatusCaching:
		return p.warn.Render("◐ caching")
	case models.StatusError:
		return p.err.Render("✗ error")
	default:
		return p.muted.Render("○ online")
	}
}
