// Package keymap holds the chat screen's key bindings.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap is every binding the views react to. It satisfies help.KeyMap.
type KeyMap struct {
	Quit, Help, Back key.Binding

	// Chat.
	Send, ScrollUp, ScrollDown key.Binding

	// Lists.
	Up, Down, Select key.Binding

	// Documents.
	Remove, Reload key.Binding
}

func bind(helpKey, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:       bind("ctrl+c", "quit", "ctrl+c"),
		Help:       bind("?", "help", "?"),
		Back:       bind("esc", "back", "esc"),
		Send:       bind("enter", "ask", "enter"),
		ScrollUp:   bind("pgup", "scroll up", "pgup"),
		ScrollDown: bind("pgdn", "scroll down", "pgdown"),
		Up:         bind("↑/k", "up", "up", "k"),
		Down:       bind("↓/j", "down", "down", "j"),
		Select:     bind("enter", "select", "enter"),
		Remove:     bind("d", "remove", "d"),
		Reload:     bind("r", "reload", "r"),
	}
}

// ShortHelp is the status bar hint shared by every view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

// ChatHelp is the chat view's status bar hint.
func (k *KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Send, k.ScrollUp, k.Back}
}

// DocumentsHelp is the documents view's status bar hint.
func (k *KeyMap) DocumentsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Remove, k.Reload, k.Back}
}

// FullHelp groups every binding in columns for the help screen.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Send, k.ScrollUp, k.ScrollDown},
		{k.Remove, k.Reload},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches reports whether the pressed key s is bound by b.
func Matches(s string, b key.Binding) bool {
	return b.Enabled() && slices.Contains(b.Keys(), s)
}
