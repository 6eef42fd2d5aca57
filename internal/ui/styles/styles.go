package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

// Styles are rebuilt by ApplyTheme; the values here are placeholders
// until init runs.
var (
	// Title bar
	TitleBar lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style

	// Error message
	ErrorStyle lipgloss.Style

	// Transient notices
	NoticeStyle lipgloss.Style

	// List styles
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemActive   lipgloss.Style

	// Reader styles
	ReaderHeader   lipgloss.Style
	ReaderProgress lipgloss.Style
	Breadcrumb     lipgloss.Style
	Banner         lipgloss.Style

	// Dialog/Modal styles
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	// Book info styles
	BookTitle  lipgloss.Style
	BookAuthor lipgloss.Style
)

// TruncateText shortens s to at most width cells, adding an ellipsis
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 3 {
		return truncate.String(s, uint(width))
	}
	return truncate.StringWithTail(s, uint(width), "...")
}
