package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/views/menu"
)

var _ tea.Model = (*App)(nil)

// App is the root model. It owns one instance of every view and forwards
// input to the active one; service replies go to the view that asked,
// whichever view is showing.
type App struct {
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	menu      *menu.View
	chat      *chat.View
	documents *documents.View

	current messages.ViewType
	err     error
	ready   bool
}

// NewApp builds the app on the chat view.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := s.HelpModel()
	h.ShowAll = true

	return &App{
		ctx:       context.Background(),
		styles:    s,
		keys:      km,
		help:      h,
		menu:      menu.NewView(s, ports.Index != nil),
		chat:      chat.NewView(s, km, ports.Answer),
		documents: documents.NewView(s, km, ports.Index),
		current:   messages.ViewChat,
	}, nil
}

// WithContext scopes every service call the views make to ctx.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chat.WithContext(ctx)
	a.documents.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tea.SetWindowTitle("docagent - chat"), a.chat.Init())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keys.Quit) {
			return a, tea.Quit
		}
		if a.current == messages.ViewHelp {
			if keymap.Matches(msg.String(), a.keys.Back) {
				a.current = messages.ViewMenu
			}
			return a, nil
		}
		if a.current == messages.ViewMenu && keymap.Matches(msg.String(), a.keys.Help) {
			a.current = messages.ViewHelp
			return a, nil
		}

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.AnswerReceived:
		a.err = msg.Err
		a.chat, cmd = a.chat.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentRemoved:
		a.documents, cmd = a.documents.Update(msg)
		a.err = a.documents.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// switchTo makes v current and starts its initial load, if any.
func (a *App) switchTo(v messages.ViewType) tea.Cmd {
	a.current = v
	switch v {
	case messages.ViewChat:
		return a.chat.Init()
	case messages.ViewDocuments:
		return a.documents.Init()
	}
	return nil
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.current {
	case messages.ViewMenu:
		a.menu, cmd = a.menu.Update(msg)
	case messages.ViewChat:
		a.chat, cmd = a.chat.Update(msg)
	case messages.ViewDocuments:
		a.documents, cmd = a.documents.Update(msg)
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.current {
	case messages.ViewChat:
		return a.chat.View()
	case messages.ViewDocuments:
		return a.documents.View()
	case messages.ViewHelp:
		return a.helpView()
	}
	return a.menu.View()
}

func (a *App) helpView() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, line := range []string{
		"Chat        Type a question and press enter. Answers cite file and page.",
		"Documents   Remove the selected source with d. The index is rebuilt.",
		"Menu        Press 1-9 to open an entry, ? for this screen.",
	} {
		b.WriteString(a.styles.Normal.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.help.View(a.keys))
	b.WriteString("\n\n")
	b.WriteString(a.styles.Help.Render("[esc] back to menu"))
	return b.String()
}

// Run blocks until the user quits or the context ends.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType { return a.current }

// Err returns the last error a view reported.
func (a *App) Err() error { return a.err }

// Ready reports whether a window size has arrived.
func (a *App) Ready() bool { return a.ready }

// Chat returns the chat view.
func (a *App) Chat() *chat.View { return a.chat }

// Documents returns the documents view.
func (a *App) Documents() *documents.View { return a.documents }

// SetDimensions resizes the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.ready = true
	a.help.Width = width
	a.menu.SetDimensions(width, height)
	a.chat.SetDimensions(width, height)
	a.documents.SetDimensions(width, height)
}
