package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/session"
	"github.com/justyntemme/jianyue/internal/ui/styles"
	"github.com/justyntemme/jianyue/internal/ui/views"
)

// Options configures a new App
type Options struct {
	Catalog    views.ManifestSource
	Controller *session.Controller
	Host       *views.TerminalHost
	Cells      views.CellSize
	// Slug opens this book directly instead of the library
	Slug string
	Log  *zap.Logger
}

// App is the main application model
type App struct {
	keys KeyMap
	log  *zap.Logger

	// Current view state
	currentView views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView *views.LibraryView
	readerView  *views.ReaderView

	// Error/status message
	err      error
	showHelp bool
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		keys:        DefaultKeyMap(),
		log:         log,
		currentView: views.ViewLibrary,
		width:       80,
		height:      24,
		libraryView: views.NewLibraryView(ctx, opts.Catalog),
		readerView:  views.NewReaderView(opts.Controller, opts.Host, opts.Cells, log.Named("reader")),
	}

	if opts.Slug != "" {
		app.readerView.SetBook(opts.Slug)
		app.currentView = views.ViewReader
	}
	return app
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		tea.SetWindowTitle("jianyue"),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Propagate to all views
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global key handling
		switch {
		case msg.String() == "ctrl+c":
			return a, a.quit()

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil

		case a.showHelp && key.Matches(msg, a.keys.Escape, a.keys.Quit):
			a.showHelp = false
			return a, nil

		case key.Matches(msg, a.keys.Quit):
			// In the reader, go back to library instead of quitting
			if a.currentView == views.ViewReader {
				return a.switchView(views.ViewLibrary)
			}
			return a, a.quit()
		}
		// Escape is left to the current view; the reader uses it to
		// leave fullscreen and close overlays before going back.
		a.err = nil

	case views.OpenBookMsg:
		a.readerView.SetBook(msg.Slug)
		return a.switchView(views.ViewReader)

	case views.ErrorMsg:
		a.err = msg.Err
		a.log.Debug("error shown", zap.Error(msg.Err))
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)

	case views.ResumeMsg:
		// Session work finishing after the reader was left still has to
		// reach the controller, which disposes of stale results.
		_, cmd := a.readerView.Update(msg)
		return a, cmd
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		_, cmd = a.libraryView.Update(msg)
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	// Help overlay replaces the screen
	if a.showHelp {
		return a.renderHelp()
	}

	content := a.getCurrentView().View()

	// Add error bar if there's an error
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}
	return content
}

// CurrentView returns the view on screen
func (a *App) CurrentView() views.ViewType {
	return a.currentView
}

// quit leaves the reader cleanly before stopping the program
func (a *App) quit() tea.Cmd {
	if a.currentView == views.ViewReader {
		return tea.Sequence(a.readerView.Leave(), tea.Quit)
	}
	return tea.Quit
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	var leave tea.Cmd
	if a.currentView == views.ViewReader && view != views.ViewReader {
		leave = a.readerView.Leave()
	}

	a.currentView = view
	a.err = nil
	a.showHelp = false

	return a, tea.Batch(leave, a.getCurrentView().Init())
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	if a.currentView == views.ViewReader {
		return a.readerView
	}
	return a.libraryView
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	section := func(title string, bindings []key.Binding) string {
		var b strings.Builder
		b.WriteString(styles.HelpKey.Render(title) + "\n")
		for _, k := range bindings {
			h := k.Help()
			fmt.Fprintf(&b, "  %-9s %s\n", h.Key, h.Desc)
		}
		return b.String()
	}

	help := styles.Dialog.Width(60).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			section("Navigation", a.keys.NavigationKeys()) + "\n" +
			section("Reader", a.keys.ReaderKeys()) + "\n" +
			section("Library", a.keys.LibraryKeys()) + "\n" +
			section("General", a.keys.GeneralKeys()),
	)

	// Center the help dialog
	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
