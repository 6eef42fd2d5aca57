package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application key bindings
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Actions
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
	Help   key.Binding

	// Reader specific
	PrevPage  key.Binding
	NextPage  key.Binding
	TOC       key.Binding
	Links     key.Binding
	FontUp    key.Binding
	FontDown  key.Binding
	FontReset key.Binding
	Theme     key.Binding
	Flow      key.Binding
	Spread    key.Binding
	Immersive key.Binding
	Return    key.Binding
	Dismiss   key.Binding

	// Library specific
	SortToggle key.Binding
	Reload     key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
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
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/^u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/^d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "select"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "up", "h", "p"),
			key.WithHelp("←/h", "previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "down", " ", "l", "n"),
			key.WithHelp("→/space", "next page"),
		),
		TOC: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "table of contents"),
		),
		Links: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "links on page"),
		),
		FontUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "larger text"),
		),
		FontDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "smaller text"),
		),
		FontReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset text size"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "cycle theme"),
		),
		Flow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "paginated/scrolled"),
		),
		Spread: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle spread"),
		),
		Immersive: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "fullscreen"),
		),
		Return: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "return after a jump"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "keep reading here"),
		),
		SortToggle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
	}
}

// NavigationKeys lists the bindings shared by lists and overlays
func (k KeyMap) NavigationKeys() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Home, k.End, k.PageDown, k.PageUp}
}

// ReaderKeys lists the bindings of the reader view
func (k KeyMap) ReaderKeys() []key.Binding {
	return []key.Binding{
		k.NextPage, k.PrevPage, k.TOC, k.Links,
		k.FontUp, k.FontDown, k.FontReset,
		k.Theme, k.Flow, k.Spread, k.Immersive,
		k.Return, k.Dismiss,
	}
}

// LibraryKeys lists the bindings of the library view
func (k KeyMap) LibraryKeys() []key.Binding {
	return []key.Binding{k.Enter, k.SortToggle, k.Reload}
}

// GeneralKeys lists the bindings that work everywhere
func (k KeyMap) GeneralKeys() []key.Binding {
	return []key.Binding{k.Quit, k.Escape, k.Help}
}
