// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// ErrNoAnswerService indicates that no answer service was provided.
var ErrNoAnswerService = errors.New("answer service is required")

// chrome is the number of lines taken by the header, input and status bar.
const chrome = 8

// Exchange is one question with its answer or error.
type Exchange struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// View is the chat view: a scrollable transcript above a question input.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	spinner    spinner.Model
	statusbar  *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	exchanges []Exchange
	pending   string
	waiting   bool

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, answerService driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	bar := status.NewBar(s, km)
	bar.SetHints(km.ChatHelp())

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		transcript:    viewport.New(80, 24-chrome),
		spinner:       sp,
		statusbar:     bar,
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context used for questions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil

	case spinner.TickMsg:
		if !v.waiting {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(msg.String(), v.keymap.ScrollUp),
		keymap.Matches(msg.String(), v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case keymap.Matches(msg.String(), v.keymap.Send):
		if v.waiting {
			return v, nil
		}
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		v.pending = question
		v.waiting = true
		v.statusbar.SetState(status.StateThinking)
		v.refresh()
		return v, tea.Batch(v.spinner.Tick, v.ask(question))
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask returns a command that answers question through the answer service.
func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoAnswerService}
		}
		answer, err := v.answerService.Ask(v.ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.waiting = false
	v.pending = ""
	v.exchanges = append(v.exchanges, Exchange{
		Question: msg.Question,
		Answer:   msg.Answer,
		Err:      msg.Err,
	})

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.statusbar.SetState(status.StateDone)
		v.statusbar.SetMessage(citedMessage(msg.Answer))
	}
	v.refresh()
}

func citedMessage(a *domain.Answer) string {
	if a == nil {
		return ""
	}
	switch n := len(a.Sources); n {
	case 0:
		return "No sources cited"
	case 1:
		return "1 source cited"
	default:
		return fmt.Sprintf("%d sources cited", n)
	}
}

// refresh re-renders the transcript and scrolls to the newest exchange.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.exchanges) == 0 && v.pending == "" {
		return v.styles.Muted.Render("Ask a question to get started.")
	}

	wrap := v.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	for i, ex := range v.exchanges {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Question.Render("> " + ex.Question))
		b.WriteString("\n")
		if ex.Err != nil {
			b.WriteString(v.styles.Error.Width(wrap).Render("  Error: " + ex.Err.Error()))
			b.WriteString("\n")
			continue
		}
		if ex.Answer == nil {
			continue
		}
		b.WriteString(v.styles.Answer.Width(wrap).Render(ex.Answer.Text))
		b.WriteString("\n")
		for _, src := range ex.Answer.Sources {
			b.WriteString(v.styles.Citation.Render(fmt.Sprintf("- File: %s | Page: %d", src.File, src.Page)))
			b.WriteString("\n")
		}
	}

	if v.pending != "" {
		if len(v.exchanges) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Question.Render("> " + v.pending))
		b.WriteString("\n")
	}

	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("docagent chat"), "")
	sections = append(sections, v.transcript.View(), "")

	if v.waiting {
		sections = append(sections, v.spinner.View()+" "+v.styles.Muted.Render("Thinking..."))
	} else {
		sections = append(sections, "")
	}

	sections = append(sections, v.input.View(), v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-chrome, 1)
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Exchanges returns the completed exchanges, oldest first.
func (v *View) Exchanges() []Exchange {
	return v.exchanges
}

// Waiting reports whether a question is being answered.
func (v *View) Waiting() bool {
	return v.waiting
}

// Input returns the current input value.
func (v *View) Input() string {
	return v.input.Value()
}

// SetInput sets the input value.
func (v *View) SetInput(value string) {
	v.input.SetValue(value)
}

// Reset clears the transcript and focuses the input.
func (v *View) Reset() {
	v.exchanges = nil
	v.pending = ""
	v.waiting = false
	v.input.Reset()
	v.input.Focus()
	v.statusbar.Clear()
	v.refresh()
}
