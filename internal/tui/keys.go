package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the watch view.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Follow  key.Binding // Jump to the tail and stick to it
	Refresh key.Binding // Reload now instead of waiting for the tick
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f", "G"),
			key.WithHelp("f", "follow tail"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
