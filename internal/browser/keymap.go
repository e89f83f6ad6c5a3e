package browser

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the subset browser.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Fold     key.Binding
	Collapse key.Binding
	Expand   key.Binding
	GroupBy  key.Binding
	Family   key.Binding
	Edit     key.Binding
	Reload   key.Binding
	Submit   key.Binding
	Cancel   key.Binding
	Quit     key.Binding
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Fold, k.GroupBy, k.Family, k.Edit, k.Reload, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Fold, k.Collapse, k.Expand},
		{k.GroupBy, k.Family, k.Edit, k.Reload, k.Quit},
	}
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Fold: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "fold group"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		Expand: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		GroupBy: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "group by"),
		),
		Family: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle family"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "set version"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
