package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docagent/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docagent/internal/core/domain"
)

type stubAnswerService struct {
	answer *domain.Answer
	err    error
	asked  []string
}

func (s *stubAnswerService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	s.asked = append(s.asked, question)
	return s.answer, s.err
}

func newReadyView(svc *stubAnswerService) *View {
	v := NewView(nil, nil, svc)
	v.SetDimensions(80, 24)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, nil)

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

func TestView_SubmitQuestion(t *testing.T) {
	svc := &stubAnswerService{answer: &domain.Answer{Text: "Paris."}}
	v := newReadyView(svc)
	v.SetInput("  capital of France?  ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.True(t, v.Waiting())
	assert.Empty(t, v.Input())
	assert.Equal(t, status.StateThinking, v.statusbar.State())
	assert.Contains(t, v.View(), "> capital of France?")
	assert.Contains(t, v.View(), "Thinking...")
}

func TestView_SubmitIgnoresBlankAndWhileWaiting(t *testing.T) {
	v := newReadyView(&stubAnswerService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, v.Waiting())

	v.SetInput("first")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	v.SetInput("second")
	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "second", v.Input())
}

func TestView_AskCommand(t *testing.T) {
	answer := &domain.Answer{Text: "Paris."}
	svc := &stubAnswerService{answer: answer}
	v := newReadyView(svc)

	msg := v.ask("capital?")()

	assert.Equal(t, messages.AnswerReceived{Question: "capital?", Answer: answer}, msg)
	assert.Equal(t, []string{"capital?"}, svc.asked)
}

func TestView_AskWithoutService(t *testing.T) {
	v := NewView(nil, nil, nil)

	msg := v.ask("q")()

	received, ok := msg.(messages.AnswerReceived)
	require.True(t, ok)
	assert.ErrorIs(t, received.Err, ErrNoAnswerService)
}

func TestView_AnswerRendersCitations(t *testing.T) {
	v := newReadyView(&stubAnswerService{})
	v.SetInput("capital?")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	v.Update(messages.AnswerReceived{
		Question: "capital?",
		Answer: &domain.Answer{
			Text:    "Paris.",
			Sources: []domain.Source{{File: "/docs/geo.pdf", Page: 1}, {File: "/docs/geo.pdf", Page: 4}},
		},
	})

	assert.False(t, v.Waiting())
	require.Len(t, v.Exchanges(), 1)
	out := v.View()
	assert.Contains(t, out, "Paris.")
	assert.Contains(t, out, "- File: /docs/geo.pdf | Page: 1")
	assert.Contains(t, out, "- File: /docs/geo.pdf | Page: 4")
	assert.Equal(t, status.StateDone, v.statusbar.State())
	assert.Equal(t, "2 sources cited", v.statusbar.Message())
}

func TestView_AnswerError(t *testing.T) {
	v := newReadyView(&stubAnswerService{})

	v.Update(messages.AnswerReceived{Question: "q", Err: errors.New("llm unavailable")})

	require.Len(t, v.Exchanges(), 1)
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.Contains(t, v.View(), "Error: llm unavailable")
}

func TestView_EscGoesToMenu(t *testing.T) {
	v := newReadyView(&stubAnswerService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_TypingGoesToInput(t *testing.T) {
	v := newReadyView(&stubAnswerService{})

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})

	assert.Equal(t, "hi", v.Input())
}

func TestView_Reset(t *testing.T) {
	v := newReadyView(&stubAnswerService{})
	v.Update(messages.AnswerReceived{Question: "q", Answer: &domain.Answer{Text: "a"}})

	v.Reset()

	assert.Empty(t, v.Exchanges())
	assert.Equal(t, status.StateReady, v.statusbar.State())
	assert.Contains(t, v.View(), "Ask a question to get started.")
}

func TestCitedMessage(t *testing.T) {
	assert.Equal(t, "", citedMessage(nil))
	assert.Equal(t, "No sources cited", citedMessage(&domain.Answer{}))
	assert.Equal(t, "1 source cited", citedMessage(&domain.Answer{Sources: []domain.Source{{File: "a", Page: 1}}}))
}
