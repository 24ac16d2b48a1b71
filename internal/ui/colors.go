package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF5F87", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	stage lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a [Palette] from the accent, success, error, warning and muted colors.
func NewPalette(accent, success, failure, warning, muted string) *Palette {
	return &Palette{
		title: NewBold(accent).MarginBottom(1),
		stage: NewBold(accent),
		ok:    NewBold(success),
		err:   NewBold(failure),
		warn:  NewStyle(warning),
		muted: NewStyle(muted),
		help:  NewEm(muted),
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
