// Package messages are the tea.Msg values passed between the app and its
// views. Service replies carry their error rather than a separate message
// so the view that asked can show it inline.
package messages

import "github.com/custodia-labs/docagent/internal/core/domain"

// ViewType names a screen.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewChat
	ViewDocuments
	ViewHelp
)

var viewNames = [...]string{
	ViewMenu:      "menu",
	ViewChat:      "chat",
	ViewDocuments: "documents",
	ViewHelp:      "help",
}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to show View.
type ViewChanged struct{ View ViewType }

// AnswerReceived is the reply to one question.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// DocumentsLoaded is the reply to a listing request.
type DocumentsLoaded struct {
	Listing domain.DocumentListing
	Stats   domain.IndexStats
	Err     error
}

// DocumentRemoved is the reply to removing Source.
type DocumentRemoved struct {
	Source string
	Result domain.MutationResult
	Err    error
}

// ErrorOccurred reports a failure no view owns.
type ErrorOccurred struct{ Err error }

// Quit ends the program.
type Quit struct{}
