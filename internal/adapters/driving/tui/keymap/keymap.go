// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the bindings of every view.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	Up   key.Binding
	Down key.Binding
	Open key.Binding

	// Send submits a question or a search query.
	Send     key.Binding
	NewQuery key.Binding

	// Scope switches search between passages and whole documents.
	Scope     key.Binding
	Breakdown key.Binding

	Analyze key.Binding
	Process key.Binding
	Reload  key.Binding
}

// Context selects which hints the status bar shows.
type Context int

const (
	// ContextIdle is the fallback.
	ContextIdle Context = iota
	// ContextAnswering is set while an answer streams.
	ContextAnswering
	// ContextResults is set when search results are listed.
	ContextResults
	// ContextDocuments is set on the documents list.
	ContextDocuments
)

func binding(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: binding("q", "quit", "q", "ctrl+c"),
		Help: binding("?", "help", "?"),
		Back: binding("esc", "back", "esc"),

		Up:   binding("↑/k", "up", "up", "k"),
		Down: binding("↓/j", "down", "down", "j"),
		Open: binding("enter", "open", "enter"),

		Send:     binding("enter", "send", "enter"),
		NewQuery: binding("n", "new query", "n"),

		Scope:     binding("tab", "passages/documents", "tab"),
		Breakdown: binding("b", "score breakdown", "b"),

		Analyze: binding("a", "analysis", "a"),
		Process: binding("p", "process", "p"),
		Reload:  binding("r", "reload", "r"),
	}
}

// Hints returns the bindings worth showing in context c.
func (k *KeyMap) Hints(c Context) []key.Binding {
	switch c {
	case ContextAnswering:
		return []key.Binding{k.Back}
	case ContextResults:
		return []key.Binding{k.Open, k.Analyze, k.Scope, k.Breakdown, k.NewQuery, k.Back}
	case ContextDocuments:
		return []key.Binding{k.Open, k.Process, k.Analyze, k.Reload, k.Back}
	default:
		return []key.Binding{k.Send, k.Back, k.Quit}
	}
}

// FullHelp groups every binding for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.Send, k.NewQuery, k.Back},
		{k.Scope, k.Breakdown},
		{k.Analyze, k.Process, k.Reload},
		{k.Help, k.Quit},
	}
}
