// Package ui provides terminal rendering for tasoctpf: pixel-stamp
// imagery, static tables, and the interactive viewer.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorAccent  = lipgloss.Color("#FFB347") // aperture overlay
	ColorMuted   = lipgloss.Color("#6c7a89")
	ColorBorder  = lipgloss.Color("#2a3850")
	ColorWarning = lipgloss.Color("#FFC107")
	ColorError   = lipgloss.Color("#e53935")
)

// Styles holds the shared lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Bold     lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Aperture lipgloss.Style
	Status   lipgloss.Style
	Help     lipgloss.Style
}

// DefaultStyles returns the standard style set.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Underline(true),
		Bold:     lipgloss.NewStyle().Bold(true),
		Body:     lipgloss.NewStyle(),
		Muted:    lipgloss.NewStyle().Foreground(ColorMuted),
		Aperture: lipgloss.NewStyle().Foreground(ColorAccent),
		Status:   lipgloss.NewStyle().Foreground(ColorMuted).Padding(0, 1),
		Help:     lipgloss.NewStyle().Foreground(ColorMuted).Italic(true),
	}
}
