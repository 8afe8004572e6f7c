// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Submit runs the query or drafts the reply.
	Submit key.Binding

	Up   key.Binding
	Down key.Binding

	// NextField moves focus between the text box and the filter box.
	NextField key.Binding

	// NewQuery clears the inputs and focuses the text box.
	NewQuery key.Binding

	// Reload swaps in the latest published index generation.
	Reload key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch field"),
		),
		NewQuery: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload index"),
		),
	}
}

// ShortHelp returns the bindings shown while typing.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextField, k.Back}
}

// ResultsHelp returns the bindings shown while browsing results.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewQuery, k.Up, k.Down, k.Reload, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Submit, k.NextField},
		{k.NewQuery, k.Reload, k.Back},
		{k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
