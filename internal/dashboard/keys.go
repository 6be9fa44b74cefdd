package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Clear   key.Binding
	Up      key.Binding
	Down    key.Binding
}

// DefaultKeyMap returns the default key map.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("j/k", "scroll"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
		),
	}
}
