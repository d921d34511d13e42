// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docagent/internal/core/domain"
)

// Entry is one indexed source with its page numbers.
type Entry struct {
	Source string
	Pages  []int
}

// SourceList displays indexed sources in a navigable list.
type SourceList struct {
	entries  []Entry
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *SourceList) View() string {
	if len(l.entries) == 0 {
		return l.styles.Muted.Render("No documents indexed")
	}

	lines := make([]string, 0, len(l.entries)*2)

	// Each entry takes two lines.
	visibleCount := l.height / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if l.selected >= visibleCount {
		start = l.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(l.entries) {
		end = len(l.entries)
	}

	for i := start; i < end; i++ {
		lines = append(lines, l.renderEntry(i, l.entries[i]))
	}

	return strings.Join(lines, "\n")
}

func (l *SourceList) renderEntry(index int, e Entry) string {
	indicator := "  "
	if index == l.selected {
		indicator = "> "
	}

	name := filepath.Base(e.Source)
	maxNameLen := l.width - 20
	if maxNameLen < 10 {
		maxNameLen = 10
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen-3] + "..."
	}

	count := fmt.Sprintf("%d pages", len(e.Pages))
	if len(e.Pages) == 1 {
		count = "1 page"
	}

	var title string
	if index == l.selected {
		title = l.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxNameLen, name, count))
	} else {
		title = l.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxNameLen, name)) +
			l.styles.Muted.Render(count)
	}

	return title + "\n" + l.styles.Muted.Render("    "+e.Source)
}

// SetListing replaces the entries with the sources of a listing, in lexical order.
func (l *SourceList) SetListing(listing domain.DocumentListing) {
	entries := make([]Entry, 0, len(listing))
	for _, src := range listing.Sources() {
		entries = append(entries, Entry{Source: src, Pages: listing[src]})
	}
	l.entries = entries
	if l.selected >= len(entries) {
		l.selected = len(entries) - 1
	}
	if l.selected < 0 {
		l.selected = 0
	}
}

// Entries returns the current entries.
func (l *SourceList) Entries() []Entry {
	return l.entries
}

// Selected returns the index of the selected entry.
func (l *SourceList) Selected() int {
	return l.selected
}

// SetSelected sets the selected index.
func (l *SourceList) SetSelected(index int) {
	if index >= 0 && index < len(l.entries) {
		l.selected = index
	}
}

// SelectedEntry returns the currently selected entry, or nil if none.
func (l *SourceList) SelectedEntry() *Entry {
	if l.selected < 0 || l.selected >= len(l.entries) {
		return nil
	}
	return &l.entries[l.selected]
}

// MoveUp moves selection up.
func (l *SourceList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down.
func (l *SourceList) MoveDown() {
	if l.selected < len(l.entries)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of entries.
func (l *SourceList) Count() int {
	return len(l.entries)
}

// IsEmpty returns whether the list is empty.
func (l *SourceList) IsEmpty() bool {
	return len(l.entries) == 0
}
