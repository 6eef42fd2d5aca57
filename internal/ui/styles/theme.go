package styles

import "github.com/charmbracelet/lipgloss"

// Theme represents a color scheme for the application chrome.
// Chrome themes share their names with the reading themes so the
// header, footer and overlays follow the page.
type Theme struct {
	Name        string
	Description string

	// Core colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	// UI element colors
	Border        lipgloss.Color
	Selection     lipgloss.Color
	SelectionText lipgloss.Color
}

// Built-in themes
var (
	// LightTheme is the default theme
	LightTheme = Theme{
		Name:          "light",
		Description:   "Light theme (default)",
		Primary:       lipgloss.Color("#7C3AED"),
		Secondary:     lipgloss.Color("#0891B2"),
		Background:    lipgloss.Color("#FFFFFF"),
		Foreground:    lipgloss.Color("#222222"),
		Success:       lipgloss.Color("#059669"),
		Warning:       lipgloss.Color("#D97706"),
		Error:         lipgloss.Color("#DC2626"),
		Muted:         lipgloss.Color("#9CA3AF"),
		Border:        lipgloss.Color("#E5E7EB"),
		Selection:     lipgloss.Color("#7C3AED"),
		SelectionText: lipgloss.Color("#FFFFFF"),
	}

	// SepiaTheme is a warm paper-like scheme
	SepiaTheme = Theme{
		Name:          "sepia",
		Description:   "Sepia theme",
		Primary:       lipgloss.Color("#B58900"),
		Secondary:     lipgloss.Color("#2AA198"),
		Background:    lipgloss.Color("#FDF6E3"),
		Foreground:    lipgloss.Color("#222222"),
		Success:       lipgloss.Color("#859900"),
		Warning:       lipgloss.Color("#CB4B16"),
		Error:         lipgloss.Color("#DC322F"),
		Muted:         lipgloss.Color("#93A1A1"),
		Border:        lipgloss.Color("#EEE8D5"),
		Selection:     lipgloss.Color("#B58900"),
		SelectionText: lipgloss.Color("#FDF6E3"),
	}

	// DarkTheme is a dark color scheme
	DarkTheme = Theme{
		Name:          "dark",
		Description:   "Dark theme",
		Primary:       lipgloss.Color("#7C3AED"),
		Secondary:     lipgloss.Color("#06B6D4"),
		Background:    lipgloss.Color("#0F1416"),
		Foreground:    lipgloss.Color("#BFC8CA"),
		Success:       lipgloss.Color("#10B981"),
		Warning:       lipgloss.Color("#F59E0B"),
		Error:         lipgloss.Color("#EF4444"),
		Muted:         lipgloss.Color("#6B7280"),
		Border:        lipgloss.Color("#374151"),
		Selection:     lipgloss.Color("#7C3AED"),
		SelectionText: lipgloss.Color("#F9FAFB"),
	}

	// BuiltinThemes is a list of all available built-in themes
	BuiltinThemes = []Theme{
		LightTheme,
		SepiaTheme,
		DarkTheme,
	}

	// currentTheme holds the active theme
	currentTheme = LightTheme
)

// GetTheme returns a theme by name, or the default theme if not found
func GetTheme(name string) Theme {
	for _, t := range BuiltinThemes {
		if t.Name == name {
			return t
		}
	}
	return LightTheme
}

// CurrentTheme returns the currently active theme
func CurrentTheme() Theme {
	return currentTheme
}

// SetCurrentTheme sets the active theme by name. Setting the
// theme that is already active is a no-op.
func SetCurrentTheme(name string) {
	t := GetTheme(name)
	if t.Name == currentTheme.Name {
		return
	}
	currentTheme = t
	ApplyTheme(currentTheme)
}

// ApplyTheme updates all global styles to use the given theme's colors
func ApplyTheme(theme Theme) {
	TitleBar = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	Help = lipgloss.NewStyle().
		Foreground(theme.Muted)

	HelpKey = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true)

	MutedText = lipgloss.NewStyle().
		Foreground(theme.Muted)

	SecondaryText = lipgloss.NewStyle().
		Foreground(theme.Secondary)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true).
		Padding(0, 1)

	NoticeStyle = lipgloss.NewStyle().
		Foreground(theme.Warning).
		Bold(true).
		Padding(0, 1)

	ListItem = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Selection).
		Padding(0, 2).
		Bold(true)

	ListItemActive = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Padding(0, 2).
		Bold(true)

	ReaderHeader = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	ReaderProgress = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Align(lipgloss.Right)

	Breadcrumb = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Italic(true).
		Padding(0, 1)

	Banner = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Secondary).
		Padding(0, 1)

	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		MarginBottom(1)

	BookTitle = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Bold(true)

	BookAuthor = lipgloss.NewStyle().
		Foreground(theme.Secondary)
}

// init applies the default theme on package load
func init() {
	ApplyTheme(LightTheme)
}
