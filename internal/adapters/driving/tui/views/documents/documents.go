// Package documents provides the indexed documents view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// ErrNoIndexService indicates that no index service was provided.
var ErrNoIndexService = errors.New("index service is required")

// View lists indexed sources and removes them on request.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.SourceList
	statusbar *status.Bar

	indexService driving.IndexService
	ctx          context.Context

	stats      domain.IndexStats
	confirming string
	err        error
	loading    bool

	width  int
	height int
	ready  bool
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, indexService driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetHints(km.DocumentsHelp())

	return &View{
		styles:       s,
		keymap:       km,
		list:         list.NewSourceList(s),
		statusbar:    bar,
		indexService: indexService,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context used for index calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the listing.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.statusbar.SetState(status.StateLoading)
	return v.load()
}

func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.DocumentsLoaded{Err: ErrNoIndexService}
		}
		listing, err := v.indexService.EnumerateDocuments(v.ctx)
		if err != nil {
			return messages.DocumentsLoaded{Err: err}
		}
		stats, err := v.indexService.GetStatistics(v.ctx)
		return messages.DocumentsLoaded{Listing: listing, Stats: stats, Err: err}
	}
}

func (v *View) remove(source string) tea.Cmd {
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.DocumentRemoved{Source: source, Err: ErrNoIndexService}
		}
		res, err := v.indexService.RemoveDocument(v.ctx, source)
		return messages.DocumentRemoved{Source: source, Result: res, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirming != "" {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.stats = msg.Stats
		v.list.SetListing(msg.Listing)
		v.statusbar.SetState(status.StateDone)
		v.statusbar.SetMessage(fmt.Sprintf("%d documents, %d pages", msg.Stats.TotalDocuments, msg.Stats.TotalPages))
		return v, nil

	case messages.DocumentRemoved:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		if !msg.Result.OK {
			v.statusbar.SetState(status.StateDone)
			v.statusbar.SetMessage(msg.Result.Message)
			return v, nil
		}
		v.loading = true
		return v, v.load()

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(msg.String(), v.keymap.Reload):
		return v, v.Init()
	case keymap.Matches(msg.String(), v.keymap.Remove):
		if e := v.list.SelectedEntry(); e != nil {
			v.confirming = e.Source
		}
	}
	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	source := v.confirming
	v.confirming = ""
	if msg.String() == "y" {
		v.statusbar.SetState(status.StateLoading)
		return v, v.remove(source)
	}
	return v, nil
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the documents view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("Indexed documents"), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "")

	if v.confirming != "" {
		prompt := fmt.Sprintf("Remove %s from the index? [y/n]", filepath.Base(v.confirming))
		sections = append(sections, v.styles.Border.Padding(0, 1).Render(prompt), "")
	}

	sections = append(sections, v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.list.SetDimensions(width, height-8)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Entries returns the listed sources.
func (v *View) Entries() []list.Entry {
	return v.list.Entries()
}

// Stats returns the counters from the last load.
func (v *View) Stats() domain.IndexStats {
	return v.stats
}

// Confirming returns the source awaiting removal confirmation.
func (v *View) Confirming() string {
	return v.confirming
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether a load is in flight.
func (v *View) Loading() bool {
	return v.loading
}
