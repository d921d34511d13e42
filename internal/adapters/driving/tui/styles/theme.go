// Package styles holds the chat screen's colours and lipgloss styles.
package styles

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette every style is derived from.
type Theme struct {
	Primary    lipgloss.Color // titles, selection
	Secondary  lipgloss.Color // the user's questions
	Foreground lipgloss.Color
	Muted      lipgloss.Color // citations, hints
	Success    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
	Bar        lipgloss.Color // status bar background
}

// DefaultTheme is a dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    "#2563EB",
		Secondary:  "#0EA5E9",
		Foreground: "#E2E8F0",
		Muted:      "#64748B",
		Success:    "#22C55E",
		Error:      "#EF4444",
		Border:     "#334155",
		Bar:        "#0F172A",
	}
}

// Styles are the rendered styles for one theme.
type Styles struct {
	theme *Theme

	Title, Subtitle, Normal, Muted, Selected lipgloss.Style
	Error, Success                           lipgloss.Style

	// Transcript.
	Question, Answer, Citation lipgloss.Style

	InputField, StatusBar, Help, Border lipgloss.Style
}

// NewStyles derives styles from theme, or DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	boxed := lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Border)

	return &Styles{
		theme:    theme,
		Title:    fg(theme.Primary).Bold(true),
		Subtitle: fg(theme.Secondary).Bold(true),
		Normal:   fg(theme.Foreground),
		Muted:    fg(theme.Muted),
		Selected: fg(theme.Foreground).Background(theme.Primary).Bold(true),
		Error:    fg(theme.Error),
		Success:  fg(theme.Success),

		Question: fg(theme.Secondary).Bold(true),
		Answer:   fg(theme.Foreground).PaddingLeft(2),
		Citation: fg(theme.Muted).Italic(true).PaddingLeft(2),

		InputField: boxed.Padding(0, 1),
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Muted),
		Border:     boxed,
	}
}

// DefaultStyles is NewStyles(DefaultTheme()).
func DefaultStyles() *Styles { return NewStyles(DefaultTheme()) }

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme { return s.theme }

// HelpModel returns a bubbles help model coloured to match.
func (s *Styles) HelpModel() help.Model {
	h := help.New()
	h.Styles.FullKey = s.Normal.Bold(true)
	h.Styles.FullDesc = s.Muted
	h.Styles.ShortKey = s.Normal.Bold(true)
	h.Styles.ShortDesc = s.Muted
	return h
}
