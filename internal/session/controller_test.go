package session

import (
	"context"
	"errors"
	"path"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/internal/input"
	"github.com/justyntemme/jianyue/internal/position"
	"github.com/justyntemme/jianyue/internal/storage"
	"github.com/justyntemme/jianyue/pkg/models"
)

var errCatalogDown = errors.New("catalog down")

type fakeCatalog struct {
	books []models.BookRef
	err   error
}

func (c *fakeCatalog) FetchManifest(context.Context) ([]models.BookRef, error) {
	return c.books, c.err
}

func (c *fakeCatalog) DocumentURL(b models.BookRef) string {
	return "/epubs/" + b.File
}

type fakeSpine struct{ hrefs []string }

func (s fakeSpine) Get(href string) (engine.SpineItem, bool) {
	for i, h := range s.hrefs {
		if h == href {
			return engine.SpineItem{Index: i, Href: h}, true
		}
	}
	return engine.SpineItem{}, false
}

func (s fakeSpine) Items() []engine.SpineItem {
	items := make([]engine.SpineItem, len(s.hrefs))
	for i, h := range s.hrefs {
		items[i] = engine.SpineItem{Index: i, Href: h}
	}
	return items
}

func (s fakeSpine) Canonical(p string) string { return path.Clean(p) }

// fakeEngine displays any target except those listed in fail. Each display
// reports a relocation to "pos:<target>".
type fakeEngine struct {
	spine    fakeSpine
	toc      []models.TocNode
	fail     map[string]bool
	displays []string
	nexts    int
	prevs    int
	themes   int
	font     int
	closed   bool

	relocated []func(models.PageLocation)
	links     []func(string)
	pageLinks []string
	// every handler ever registered, to simulate late events
	allRelocated []func(models.PageLocation)
	loc          models.PageLocation
	hasLoc       bool
}

func (e *fakeEngine) Display(target string) error {
	e.displays = append(e.displays, target)
	if e.fail[target] {
		return errors.New("cannot display " + target)
	}
	href := target
	if target == "" {
		href = e.spine.hrefs[0]
	}
	e.relocate(models.PageLocation{Href: href, PositionID: "pos:" + href, Page: 1, TotalPages: 10})
	return nil
}

func (e *fakeEngine) relocate(loc models.PageLocation) {
	e.loc, e.hasLoc = loc, true
	for _, fn := range e.relocated {
		fn(loc)
	}
}

func (e *fakeEngine) Prev() error { e.prevs++; return nil }
func (e *fakeEngine) Next() error { e.nexts++; return nil }

func (e *fakeEngine) SetFlow(models.FlowMode)                 {}
func (e *fakeEngine) SetSpread(models.SpreadMode)             {}
func (e *fakeEngine) RegisterTheme(string, engine.Theme)      { e.themes++ }
func (e *fakeEngine) SelectTheme(string)                      {}
func (e *fakeEngine) SetFontSize(p int)                       { e.font = p }
func (e *fakeEngine) Spine() engine.Spine                     { return e.spine }
func (e *fakeEngine) Navigation() []models.TocNode            { return e.toc }
func (e *fakeEngine) CurrentLocation() (models.PageLocation, bool) { return e.loc, e.hasLoc }

func (e *fakeEngine) OnRelocated(fn func(models.PageLocation)) func() {
	e.relocated = append(e.relocated, fn)
	e.allRelocated = append(e.allRelocated, fn)
	return func() { e.relocated = nil }
}

func (e *fakeEngine) OnLinkActivated(fn func(string)) func() {
	e.links = append(e.links, fn)
	return func() { e.links = nil }
}

func (e *fakeEngine) FollowLink(i int) error {
	if i < 0 || i >= len(e.pageLinks) {
		return errors.New("no such link")
	}
	for _, fn := range e.links {
		fn(e.pageLinks[i])
	}
	return e.Display(e.pageLinks[i])
}

func (e *fakeEngine) Close() error {
	e.closed = true
	return nil
}

// followLink behaves like an engine following a link inside content
func (e *fakeEngine) followLink(href string) {
	for _, fn := range e.links {
		fn(href)
	}
	_ = e.Display(href)
}

type recordingStore struct {
	*position.Store
	cleared []string
}

func (s *recordingStore) Clear(slug string) error {
	s.cleared = append(s.cleared, slug)
	return s.Store.Clear(slug)
}

type fixture struct {
	catalog *fakeCatalog
	store   *recordingStore
	engines []*fakeEngine
	fail    map[string]bool
	openErr error
	urls    []string
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &fakeCatalog{books: []models.BookRef{
			{Slug: "moby", Title: "Moby Dick", File: "moby.epub"},
			{Slug: "petit", Title: "Le Petit Prince", File: "petit prince.epub"},
		}},
		store: &recordingStore{Store: position.NewStore(storage.NewMemory())},
		fail:  map[string]bool{},
	}
	opener := engine.OpenerFunc(func(_ context.Context, url string, _ engine.Options) (engine.Engine, error) {
		f.urls = append(f.urls, url)
		if f.openErr != nil {
			return nil, f.openErr
		}
		e := &fakeEngine{
			spine: fakeSpine{hrefs: []string{"cover.xhtml", "ch1.xhtml", "ch 2.xhtml"}},
			toc: []models.TocNode{
				{Label: "Cover", Href: "cover.xhtml"},
				{Label: "A", Href: "ch1.xhtml", Children: []models.TocNode{{Label: "A.1", Href: "ch1.xhtml#s2"}}},
				{Label: "B", Href: "ch%202.xhtml"},
			},
			fail: f.fail,
		}
		f.engines = append(f.engines, e)
		return e, nil
	})
	f.ctrl = New(context.Background(), f.catalog, f.store, opener, nil, zaptest.NewLogger(t))
	return f
}

func (f *fixture) engine(t *testing.T) *fakeEngine {
	t.Helper()
	if len(f.engines) == 0 {
		t.Fatal("no engine opened")
	}
	return f.engines[len(f.engines)-1]
}

func TestOpen_DefaultStart(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))

	if f.ctrl.Status() != StatusReady {
		t.Fatalf("expected ready, got %s (%v)", f.ctrl.Status(), f.ctrl.Err())
	}
	e := f.engine(t)
	if len(e.displays) != 1 || e.displays[0] != "" {
		t.Errorf("expected default start, got %v", e.displays)
	}
	if f.urls[0] != "/epubs/moby.epub" {
		t.Errorf("unexpected document url %q", f.urls[0])
	}
	if e.themes != 3 || e.font != models.DefaultFontSize {
		t.Errorf("display state not attached: themes=%d font=%d", e.themes, e.font)
	}
	if id, ok, _ := f.store.Load("moby"); !ok || id != "pos:cover.xhtml" {
		t.Errorf("expected start position saved, got %q ok=%v", id, ok)
	}
	if f.ctrl.Book().Title != "Moby Dick" {
		t.Errorf("unexpected book %+v", f.ctrl.Book())
	}
}

func TestOpen_RestoresSavedPosition(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Save("moby", "pos:ch1.xhtml")
	Drive(f.ctrl.Open("moby"))

	e := f.engine(t)
	if len(e.displays) != 1 || e.displays[0] != "pos:ch1.xhtml" {
		t.Errorf("expected saved position displayed, got %v", e.displays)
	}
	if _, ok := f.ctrl.TakeNotice(); ok {
		t.Error("no notice expected")
	}
}

func TestOpen_InvalidSavedPosition(t *testing.T) {
	f := newFixture(t)
	_ = f.store.Save("moby", "pos:gone")
	f.fail["pos:gone"] = true
	Drive(f.ctrl.Open("moby"))

	if f.ctrl.Status() != StatusReady {
		t.Fatalf("expected ready, got %s", f.ctrl.Status())
	}
	e := f.engine(t)
	if len(e.displays) != 2 || e.displays[0] != "pos:gone" || e.displays[1] != "" {
		t.Errorf("expected restore attempt then default start, got %v", e.displays)
	}
	if len(f.store.cleared) != 1 || f.store.cleared[0] != "moby" {
		t.Errorf("expected saved position cleared once, got %v", f.store.cleared)
	}
	if id, _, _ := f.store.Load("moby"); id == "pos:gone" {
		t.Error("invalid position still stored")
	}
	n, ok := f.ctrl.TakeNotice()
	if !ok || n != NoticeInvalidPosition {
		t.Errorf("expected invalid position notice, got %q ok=%v", n, ok)
	}
	if _, ok := f.ctrl.TakeNotice(); ok {
		t.Error("notice should be delivered exactly once")
	}
}

func TestOpen_Failures(t *testing.T) {
	t.Run("unknown slug redirects", func(t *testing.T) {
		f := newFixture(t)
		Drive(f.ctrl.Open("nope"))
		if f.ctrl.Status() != StatusRedirect {
			t.Errorf("expected redirect, got %s", f.ctrl.Status())
		}
		if f.ctrl.Err() != nil {
			t.Errorf("redirect is not an error, got %v", f.ctrl.Err())
		}
		if len(f.urls) != 0 {
			t.Error("engine should not be opened")
		}
	})

	t.Run("manifest error", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.err = errCatalogDown
		Drive(f.ctrl.Open("moby"))
		if f.ctrl.Status() != StatusFailed || !errors.Is(f.ctrl.Err(), errCatalogDown) {
			t.Errorf("expected failed with catalog error, got %s / %v", f.ctrl.Status(), f.ctrl.Err())
		}
	})

	t.Run("engine open error", func(t *testing.T) {
		f := newFixture(t)
		f.openErr = errors.New("corrupt archive")
		Drive(f.ctrl.Open("moby"))
		if f.ctrl.Status() != StatusFailed || !errors.Is(f.ctrl.Err(), ErrEngineInit) {
			t.Errorf("expected ErrEngineInit, got %s / %v", f.ctrl.Status(), f.ctrl.Err())
		}
	})

	t.Run("default start fails", func(t *testing.T) {
		f := newFixture(t)
		f.fail[""] = true
		Drive(f.ctrl.Open("moby"))
		if f.ctrl.Status() != StatusFailed || !errors.Is(f.ctrl.Err(), ErrEngineInit) {
			t.Errorf("expected ErrEngineInit, got %s / %v", f.ctrl.Status(), f.ctrl.Err())
		}
	})
}

func TestOpen_StaleEngineIsClosed(t *testing.T) {
	f := newFixture(t)
	first := f.ctrl.Open("moby")

	// run the first chain up to the point where its engine exists
	toPosition := first()()
	toEngine := toPosition()()
	finish := toEngine()
	if len(f.engines) != 1 {
		t.Fatalf("expected the first engine to be opened, got %d", len(f.engines))
	}
	stale := f.engines[0]

	Drive(f.ctrl.Open("petit"))
	finish()

	if !stale.closed {
		t.Error("engine from the abandoned open should be closed")
	}
	if f.ctrl.Book().Slug != "petit" || f.ctrl.Status() != StatusReady {
		t.Errorf("expected petit ready, got %q %s", f.ctrl.Book().Slug, f.ctrl.Status())
	}
	if f.ctrl.Engine() == stale {
		t.Error("stale engine must not become current")
	}
	if len(stale.displays) != 0 {
		t.Errorf("stale engine should never display, got %v", stale.displays)
	}
	if f.urls[1] != "/epubs/petit prince.epub" {
		t.Errorf("unexpected url %q", f.urls[1])
	}
}

func TestRelocation_UpdatesBreadcrumbAndPosition(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)

	e.relocate(models.PageLocation{Href: "ch1.xhtml#s2", PositionID: "cfi-a1", Page: 3, TotalPages: 10, Percentage: 0.25})

	loc, ok := f.ctrl.Location()
	if !ok || loc.Page != 3 || loc.Percentage != 0.25 {
		t.Errorf("unexpected location %+v", loc)
	}
	crumbs := f.ctrl.NavPath()
	if len(crumbs) != 2 || crumbs[0].Label != "A" || crumbs[1].Label != "A.1" {
		t.Errorf("expected [A A.1], got %+v", crumbs)
	}
	if id, _, _ := f.store.Load("moby"); id != "cfi-a1" {
		t.Errorf("expected position saved, got %q", id)
	}
}

func TestLinkActivation_ReturnToPrevious(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)

	e.followLink("ch 2.xhtml#note1")
	prev, ok := f.ctrl.PrevPosition()
	if !ok || prev != "pos:cover.xhtml" {
		t.Fatalf("expected previous position recorded, got %q ok=%v", prev, ok)
	}

	if err := f.ctrl.ReturnToPrevious(); err != nil {
		t.Fatalf("ReturnToPrevious: %v", err)
	}
	if last := e.displays[len(e.displays)-1]; last != "pos:cover.xhtml" {
		t.Errorf("expected return to saved position, got %q", last)
	}
	if _, ok := f.ctrl.PrevPosition(); ok {
		t.Error("previous position should be cleared after returning")
	}

	e.followLink("ch1.xhtml")
	f.ctrl.DismissReturn()
	if _, ok := f.ctrl.PrevPosition(); ok {
		t.Error("dismiss should clear the previous position")
	}
	n := len(e.displays)
	if err := f.ctrl.ReturnToPrevious(); err != nil || len(e.displays) != n {
		t.Error("returning without a saved position should do nothing")
	}
}

func TestFollowLink_FailedJumpKeepsReturnSlot(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)
	e.pageLinks = []string{"missing.xhtml", "ch1.xhtml"}
	f.fail["missing.xhtml"] = true

	if err := f.ctrl.FollowLink(0); err == nil {
		t.Fatal("expected the jump to fail")
	}
	if prev, ok := f.ctrl.PrevPosition(); ok {
		t.Errorf("expected no return slot after a failed jump, got %q", prev)
	}

	if err := f.ctrl.FollowLink(1); err != nil {
		t.Fatalf("FollowLink: %v", err)
	}
	if err := f.ctrl.FollowLink(0); err == nil {
		t.Fatal("expected the jump to fail")
	}
	if prev, _ := f.ctrl.PrevPosition(); prev != "pos:cover.xhtml" {
		t.Errorf("expected the earlier return slot kept, got %q", prev)
	}
	if err := f.ctrl.FollowLink(5); err == nil {
		t.Error("expected error for a missing link")
	}
}

func TestNavigateToc(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)

	f.ctrl.NavigateToc("ch%202.xhtml#b1")
	if last := e.displays[len(e.displays)-1]; last != "ch 2.xhtml#b1" {
		t.Errorf("expected decoded spine href, got %q", last)
	}

	f.fail["missing.xhtml"] = true
	f.ctrl.NavigateToc("missing.xhtml")
	if n, ok := f.ctrl.TakeNotice(); !ok || n != NoticeSectionUnavailable {
		t.Errorf("expected section notice, got %q ok=%v", n, ok)
	}
}

func TestInputRoutesToEngine(t *testing.T) {
	f := newFixture(t)
	if err := f.ctrl.Next(); err == nil {
		t.Error("expected error without a book")
	}

	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)
	f.ctrl.Input().Key(input.KeyArrowRight, false)
	f.ctrl.Input().Key(input.KeySpace, true)
	f.ctrl.Input().Wheel(1)
	if e.nexts != 2 || e.prevs != 1 {
		t.Errorf("expected 2 next / 1 prev, got %d / %d", e.nexts, e.prevs)
	}
}

func TestClose_IgnoresLateEvents(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	e := f.engine(t)

	if err := f.ctrl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !e.closed {
		t.Error("engine should be closed")
	}
	if f.ctrl.Status() != StatusIdle || f.ctrl.Engine() != nil {
		t.Errorf("expected idle session, got %s", f.ctrl.Status())
	}

	before, _, _ := f.store.Load("moby")
	for _, fn := range e.allRelocated {
		fn(models.PageLocation{Href: "ch1.xhtml", PositionID: "late"})
	}
	if _, ok := f.ctrl.Location(); ok {
		t.Error("late relocation should be ignored")
	}
	if after, _, _ := f.store.Load("moby"); after != before {
		t.Errorf("late relocation saved a position: %q", after)
	}
}

func TestOpen_ResetsDisplayState(t *testing.T) {
	f := newFixture(t)
	Drive(f.ctrl.Open("moby"))
	f.ctrl.Display().IncreaseFont()
	if f.engine(t).font != 110 {
		t.Fatalf("font change not pushed, got %d", f.engine(t).font)
	}

	Drive(f.ctrl.Open("petit"))
	if got := f.ctrl.Display().State(); got != models.DefaultDisplayState() {
		t.Errorf("expected defaults on open, got %+v", got)
	}
	if f.engine(t).font != models.DefaultFontSize {
		t.Errorf("new engine font = %d", f.engine(t).font)
	}
}
