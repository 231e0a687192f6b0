package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/harmoniq/internal/models"
)

// Styles is the palette used by the CLI.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	key   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		key:   NewStyle(h).Width(14),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Error(s string) string { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// State renders a credential state: valid is green, refreshable amber, the rest red.
func (p *Palette) State(s models.CredentialState) string {
	switch s {
	case models.StateValid:
		return p.OK(s.String())
	case models.StateRefreshable:
		return p.Warn(s.String())
	default:
		return p.Error(s.String())
	}
}

// Field is one labeled line of a [Palette.Fields] block.
type Field struct {
	Label string
	Value string
}

// Fields writes a title followed by aligned label/value lines. Empty values are skipped.
func (p *Palette) Fields(w io.Writer, title string, fields ...Field) error {
	var b strings.Builder
	b.WriteString(p.Title(title))
	b.WriteString("\n")
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, p.key.Render(f.Label), f.Value))
		b.WriteString("\n")
	}
	_, err := fmt.Fprint(w, b.String())
	return err
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
