package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zaptest"

	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/internal/position"
	"github.com/justyntemme/jianyue/internal/session"
	"github.com/justyntemme/jianyue/internal/storage"
	"github.com/justyntemme/jianyue/internal/ui/views"
	"github.com/justyntemme/jianyue/pkg/models"
)

type stubCatalog struct{ books []models.BookRef }

func (c stubCatalog) FetchManifest(context.Context) ([]models.BookRef, error) { return c.books, nil }
func (c stubCatalog) DocumentURL(b models.BookRef) string                      { return b.File }

func newTestApp(t *testing.T, slug string) *App {
	t.Helper()
	log := zaptest.NewLogger(t)
	cat := stubCatalog{books: []models.BookRef{{Slug: "a", Title: "Alpha", File: "a.epub"}}}
	opener := engine.OpenerFunc(func(context.Context, string, engine.Options) (engine.Engine, error) {
		return nil, context.Canceled
	})
	host := views.NewTerminalHost(true)
	ctl := session.New(context.Background(), cat, position.NewStore(storage.NewMemory()), opener, host, log)
	return NewApp(context.Background(), Options{
		Catalog:    cat,
		Controller: ctl,
		Host:       host,
		Slug:       slug,
		Log:        log,
	})
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_StartView(t *testing.T) {
	if got := newTestApp(t, "").CurrentView(); got != views.ViewLibrary {
		t.Errorf("expected library, got %s", got)
	}
	if got := newTestApp(t, "a").CurrentView(); got != views.ViewReader {
		t.Errorf("expected reader, got %s", got)
	}
}

func TestApp_Navigation(t *testing.T) {
	app := newTestApp(t, "")

	app.Update(views.OpenBookMsg{Slug: "a"})
	if app.CurrentView() != views.ViewReader {
		t.Fatalf("expected reader, got %s", app.CurrentView())
	}

	app.Update(runeKey("q"))
	if app.CurrentView() != views.ViewLibrary {
		t.Errorf("expected q to go back to the library, got %s", app.CurrentView())
	}

	_, cmd := app.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected q in the library to quit")
	}
}

func TestApp_HelpAndErrors(t *testing.T) {
	app := newTestApp(t, "")
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 60})

	app.Update(runeKey("?"))
	out := app.View()
	for _, want := range []string{"Keyboard Shortcuts", "table of contents", "fullscreen", "reload"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to mention %q", want)
		}
	}
	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if strings.Contains(app.View(), "Keyboard Shortcuts") {
		t.Error("expected esc to close help")
	}

	app.Update(views.ErrorMsg{Err: context.DeadlineExceeded})
	if !strings.Contains(app.View(), "Error: "+context.DeadlineExceeded.Error()) {
		t.Error("expected the error bar")
	}
	app.Update(views.ClearErrorMsg{})
	if strings.Contains(app.View(), "Error: ") {
		t.Error("expected the error cleared")
	}
}

// closeRecorder stands in for an engine that is only ever closed
type closeRecorder struct {
	engine.Engine
	closed bool
}

func (e *closeRecorder) Close() error {
	e.closed = true
	return nil
}

func TestApp_EngineOpenedAfterLeavingIsClosed(t *testing.T) {
	log := zaptest.NewLogger(t)
	cat := stubCatalog{books: []models.BookRef{{Slug: "a", Title: "Alpha", File: "a.epub"}}}
	var opened *closeRecorder
	opener := engine.OpenerFunc(func(context.Context, string, engine.Options) (engine.Engine, error) {
		opened = &closeRecorder{}
		return opened, nil
	})
	host := views.NewTerminalHost(true)
	ctl := session.New(context.Background(), cat, position.NewStore(storage.NewMemory()), opener, host, log)
	app := NewApp(context.Background(), Options{Catalog: cat, Controller: ctl, Host: host, Slug: "a", Log: log})

	left := false
	queue := []tea.Cmd{app.Init()}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, m...)
		case views.ResumeMsg:
			if opened != nil && !left {
				left = true
				app.Update(runeKey("q"))
			}
			_, next := app.Update(m)
			queue = append(queue, next)
		}
	}

	if !left {
		t.Fatal("expected the engine to be opened")
	}
	if app.CurrentView() != views.ViewLibrary {
		t.Errorf("expected the library, got %s", app.CurrentView())
	}
	if !opened.closed {
		t.Error("expected the engine that arrived after leaving to be closed")
	}
	if ctl.Engine() != nil {
		t.Error("expected no engine attached to the closed session")
	}
}
