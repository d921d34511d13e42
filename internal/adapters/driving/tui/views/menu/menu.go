// Package menu is the start screen of the chat interface.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/styles"
)

// Item is one menu entry. Quit entries end the program instead of
// switching view.
type Item struct {
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool
}

// View lists the screens the user can open.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	width    int
	height   int
	ready    bool
}

// NewView builds the menu. Documents is offered only when an index service
// backs it.
func NewView(s *styles.Styles, withDocuments bool) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	items := []Item{{
		Label:       "Chat",
		Description: "Ask questions; answers cite file and page",
		View:        messages.ViewChat,
	}}
	if withDocuments {
		items = append(items, Item{
			Label:       "Documents",
			Description: "Browse indexed files and remove them",
			View:        messages.ViewDocuments,
		})
	}
	items = append(items,
		Item{Label: "Help", Description: "Key bindings", View: messages.ViewHelp},
		Item{Label: "Quit", Description: "Leave docagent", Quit: true},
	)

	return &View{styles: s, items: items, width: 80, height: 24}
}

// Init implements tea.Model.
func (v *View) Init() tea.Cmd { return nil }

// Update moves the cursor and opens the selected entry. Digits open the
// entry at that position directly.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.open(v.selected)
		case "q":
			return v, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(v.items) {
				v.selected = int(key[0] - '1')
				return v, v.open(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) open(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("docagent"))
	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Ask questions about your documents"))
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%d %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(label))
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [1-9] Open  [q] Quit"))
	return b.String()
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Items returns the menu entries.
func (v *View) Items() []Item { return v.items }

// Selected returns the cursor position.
func (v *View) Selected() int { return v.selected }
