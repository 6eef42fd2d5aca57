package views

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/maruel/natural"

	"github.com/justyntemme/jianyue/internal/ui/styles"
	"github.com/justyntemme/jianyue/pkg/models"
)

// Sort options
type sortField int

const (
	sortManifest sortField = iota
	sortTitle
)

func (s sortField) Label() string {
	switch s {
	case sortTitle:
		return "Title"
	default:
		return "Catalog"
	}
}

// ManifestSource lists the books of the catalog
type ManifestSource interface {
	FetchManifest(ctx context.Context) ([]models.BookRef, error)
}

// LibraryView displays the book library
type LibraryView struct {
	ctx     context.Context
	catalog ManifestSource

	// Books, in manifest order and as displayed
	manifest []models.BookRef
	books    []models.BookRef
	cursor   int
	offset   int // For scrolling

	// State
	loading bool
	loaded  bool
	err     error
	sortBy  sortField

	// Dimensions
	width  int
	height int
}

// NewLibraryView creates a new library view
func NewLibraryView(ctx context.Context, catalog ManifestSource) *LibraryView {
	return &LibraryView{
		ctx:     ctx,
		catalog: catalog,
		width:   80,
		height:  24,
	}
}

// booksLoadedMsg is sent when the manifest is loaded
type booksLoadedMsg struct {
	books []models.BookRef
	err   error
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	if v.loaded {
		return nil
	}
	v.loading = true
	return v.loadBooks()
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case booksLoadedMsg:
		v.loading = false
		v.loaded = true
		if msg.err != nil {
			v.err = msg.err
			v.manifest, v.books = nil, nil
			return v, nil
		}
		v.err = nil
		v.manifest = msg.books
		v.applySort()
		return v, nil

	case tea.KeyMsg:
		if v.loading {
			return v, nil
		}
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines())
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines())
		case "g", "home":
			v.cursor = 0
			v.updateOffset()
		case "G", "end":
			v.cursor = len(v.books) - 1
			v.moveCursor(0)
		case "s":
			if v.sortBy == sortManifest {
				v.sortBy = sortTitle
			} else {
				v.sortBy = sortManifest
			}
			v.applySort()
		case "r":
			v.loading = true
			return v, v.loadBooks()
		case "enter":
			if b, ok := v.Selected(); ok {
				return v, OpenBook(b.Slug)
			}
		}
	}

	return v, nil
}

// Selected returns the book under the cursor
func (v *LibraryView) Selected() (models.BookRef, bool) {
	if v.cursor < 0 || v.cursor >= len(v.books) {
		return models.BookRef{}, false
	}
	return v.books[v.cursor], true
}

// applySort rebuilds the displayed list, keeping the cursor on the same book
func (v *LibraryView) applySort() {
	selected, hadSelection := v.Selected()

	v.books = slices.Clone(v.manifest)
	if v.sortBy == sortTitle {
		slices.SortStableFunc(v.books, func(a, b models.BookRef) int {
			at, bt := strings.ToLower(a.DisplayTitle()), strings.ToLower(b.DisplayTitle())
			switch {
			case natural.Less(at, bt):
				return -1
			case natural.Less(bt, at):
				return 1
			}
			return 0
		})
	}

	v.cursor = 0
	if hadSelection {
		if i := slices.IndexFunc(v.books, func(b models.BookRef) bool { return b.Slug == selected.Slug }); i >= 0 {
			v.cursor = i
		}
	}
	v.updateOffset()
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder

	// Header
	b.WriteString(v.renderHeader() + "\n")

	// Loading state
	if v.loading {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("Loading books..."),
		)
		b.WriteString(content)
		return b.String()
	}

	// Error state
	if v.err != nil {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error()),
		)
		b.WriteString(content)
		return b.String()
	}

	// Empty state
	if len(v.books) == 0 {
		content := lipgloss.Place(
			v.width,
			v.height-4,
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("No books yet"),
		)
		b.WriteString(content)
		return b.String()
	}

	// Book list
	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.books)); i++ {
		b.WriteString(v.renderBookLine(v.books[i], i == v.cursor) + "\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.updateOffset()
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	title := styles.TitleBar.Render(" Library ")
	sortInfo := styles.Help.Render(fmt.Sprintf(" Sort: %s ", v.sortBy.Label()))
	count := styles.Help.Render(fmt.Sprintf(" %d books ", len(v.books)))

	left := title + sortInfo
	gap := max(v.width-lipgloss.Width(left)-lipgloss.Width(count), 0)
	return left + strings.Repeat(" ", gap) + count
}

// renderBookLine renders a single book line
func (v *LibraryView) renderBookLine(book models.BookRef, selected bool) string {
	if selected {
		line := styles.TruncateText(book.DisplayTitle()+" - "+book.DisplayAuthor(), v.width-6)
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line)
	}
	author := " - " + styles.TruncateText(book.DisplayAuthor(), 24)
	title := styles.TruncateText(book.DisplayTitle(), max(v.width-6-lipgloss.Width(author), 1))
	return styles.ListItem.Render("  " + styles.BookTitle.Render(title) + styles.SecondaryText.Render(author))
}

// renderFooter renders the footer help
func (v *LibraryView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" open"),
		styles.HelpKey.Render("s") + styles.Help.Render(" sort"),
		styles.HelpKey.Render("r") + styles.Help.Render(" reload"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	return strings.Join(help, "  ")
}

// loadBooks fetches the manifest off the update loop
func (v *LibraryView) loadBooks() tea.Cmd {
	ctx, catalog := v.ctx, v.catalog
	return func() tea.Msg {
		books, err := catalog.FetchManifest(ctx)
		return booksLoadedMsg{books: books, err: err}
	}
}

// moveCursor moves the cursor by delta
func (v *LibraryView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor >= len(v.books) {
		v.cursor = len(v.books) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
	v.updateOffset()
}

// updateOffset ensures the cursor is visible
func (v *LibraryView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

// visibleLines returns the number of list rows that fit
func (v *LibraryView) visibleLines() int {
	// Account for header, footer, and margins
	return max(v.height-5, 1)
}
