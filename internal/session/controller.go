// Package session composes everything needed to read one book: catalog
// lookup, position memory, the rendering engine, display state, input and
// table of contents navigation.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/display"
	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/internal/input"
	"github.com/justyntemme/jianyue/internal/spine"
	"github.com/justyntemme/jianyue/internal/toc"
	"github.com/justyntemme/jianyue/pkg/models"
)

// ErrEngineInit marks failures to bring up the rendering engine
var ErrEngineInit = errors.New("could not open book")

var (
	errNoBook  = errors.New("no book open")
	errNoLinks = errors.New("links not supported")
)

// Status of the current session
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	// StatusRedirect means the slug is not in the catalog; the host should
	// go back to the library.
	StatusRedirect
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusRedirect:
		return "redirect"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Notice is a transient message for the reader
type Notice string

const (
	NoticeInvalidPosition    Notice = "last position invalid, reset to start"
	NoticeSectionUnavailable Notice = "could not open section"
)

// Catalog lists books and locates their files
type Catalog interface {
	FetchManifest(ctx context.Context) ([]models.BookRef, error)
	DocumentURL(b models.BookRef) string
}

// PositionStore remembers one position id per slug
type PositionStore interface {
	Save(slug, id string) error
	Load(slug string) (string, bool, error)
	Clear(slug string) error
}

// resizer is implemented by engines that follow the host viewport
type resizer interface {
	Resize(width, height int)
}

// linkFollower is implemented by engines that expose the links on the page
type linkFollower interface {
	FollowLink(i int) error
}

// Controller owns the reading session for one book at a time. All methods
// must be called from the control thread.
type Controller struct {
	ctx       context.Context
	catalog   Catalog
	positions PositionStore
	opener    engine.Opener
	display   *display.Machine
	input     *input.Dispatcher
	baseLog   *zap.Logger
	log       *zap.Logger

	width, height int

	gen    uint64
	cancel context.CancelFunc
	status Status
	err    error

	book      models.BookRef
	eng       engine.Engine
	unsub     []func()
	matcher   *spine.Matcher
	toc       []models.TocNode
	expand    *toc.ExpandState
	restoring string

	location    models.PageLocation
	hasLocation bool
	navPath     models.NavPath
	prevPos     string
	notices     []Notice
}

// New creates a controller. ctx bounds every background fetch.
func New(ctx context.Context, catalog Catalog, positions PositionStore, opener engine.Opener, host display.Host, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		ctx:       ctx,
		catalog:   catalog,
		positions: positions,
		opener:    opener,
		display:   display.NewMachine(host, log.Named("display")),
		baseLog:   log,
		log:       log,
		expand:    toc.NewExpandState(),
	}
	c.input = input.NewDispatcher(c, log.Named("input"))
	return c
}

// SetViewport records the reading area and passes it to the engine
func (c *Controller) SetViewport(width, height int) {
	c.width, c.height = width, height
	if r, ok := c.eng.(resizer); ok {
		r.Resize(width, height)
	}
}

// Open starts a session for slug, abandoning any previous one
func (c *Controller) Open(slug string) Task {
	if err := c.teardown(); err != nil {
		c.log.Warn("closing previous session", zap.Error(err))
	}
	c.gen++
	gen := c.gen

	c.log = c.baseLog.With(zap.String("session", uuid.NewString()), zap.String("slug", slug))
	c.status = StatusLoading
	c.err = nil
	c.book = models.BookRef{Slug: slug}
	c.display.Reset()

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	catalog := c.catalog

	c.log.Debug("opening book")
	return func() Resume {
		books, err := catalog.FetchManifest(ctx)
		return func() Task {
			return c.onManifest(ctx, gen, books, err)
		}
	}
}

func (c *Controller) stale(gen uint64) bool {
	return gen != c.gen
}

func (c *Controller) fail(err error) Task {
	c.status = StatusFailed
	c.err = err
	c.log.Error("session failed", zap.Error(err))
	return nil
}

func (c *Controller) onManifest(ctx context.Context, gen uint64, books []models.BookRef, err error) Task {
	if c.stale(gen) {
		return nil
	}
	if err != nil {
		return c.fail(err)
	}

	slug := c.book.Slug
	b, found := models.FindBook(books, slug)
	if !found {
		c.log.Info("book not in catalog")
		c.status = StatusRedirect
		return nil
	}
	c.book = b

	positions := c.positions
	return func() Resume {
		id, ok, err := positions.Load(slug)
		return func() Task {
			return c.onPosition(ctx, gen, id, ok, err)
		}
	}
}

func (c *Controller) onPosition(ctx context.Context, gen uint64, id string, ok bool, err error) Task {
	if c.stale(gen) {
		return nil
	}
	if err != nil {
		c.log.Warn("reading saved position", zap.Error(err))
		ok = false
	}
	if ok {
		c.restoring = id
	}

	url := c.catalog.DocumentURL(c.book)
	state := c.display.State()
	opts := engine.Options{Flow: state.Flow, Spread: state.Spread, Width: c.width, Height: c.height}
	opener := c.opener
	return func() Resume {
		eng, err := opener.Open(ctx, url, opts)
		return func() Task {
			c.onEngine(gen, eng, err)
			return nil
		}
	}
}

func (c *Controller) onEngine(gen uint64, eng engine.Engine, err error) {
	if c.stale(gen) {
		if eng != nil {
			if err := eng.Close(); err != nil {
				c.log.Debug("closing abandoned engine", zap.Error(err))
			}
		}
		return
	}
	if err != nil {
		c.fail(fmt.Errorf("%w: %w", ErrEngineInit, err))
		return
	}

	c.eng = eng
	c.display.Attach(eng)
	c.unsub = append(c.unsub,
		eng.OnRelocated(func(loc models.PageLocation) { c.onRelocated(gen, loc) }),
		eng.OnLinkActivated(func(href string) { c.onLinkActivated(gen, href) }),
	)
	c.toc = eng.Navigation()
	c.matcher = spine.NewMatcher(eng.Spine(), c.log.Named("spine"))
	if c.width > 0 && c.height > 0 {
		if r, ok := eng.(resizer); ok {
			r.Resize(c.width, c.height)
		}
	}

	restoring := c.restoring
	c.restoring = ""
	if restoring != "" {
		err := eng.Display(restoring)
		if err == nil {
			c.status = StatusReady
			return
		}
		c.log.Warn("saved position rejected", zap.String("position", restoring), zap.Error(err))
		if err := c.positions.Clear(c.book.Slug); err != nil {
			c.log.Warn("clearing saved position", zap.Error(err))
		}
		c.notices = append(c.notices, NoticeInvalidPosition)
	}
	if err := eng.Display(""); err != nil {
		c.fail(fmt.Errorf("%w: %w", ErrEngineInit, err))
		return
	}
	c.status = StatusReady
}

func (c *Controller) onRelocated(gen uint64, loc models.PageLocation) {
	if c.stale(gen) || c.eng == nil {
		return
	}
	c.location = loc
	c.hasLocation = true
	c.navPath = toc.FindPath(c.toc, loc.Href)
	if err := c.positions.Save(c.book.Slug, loc.PositionID); err != nil {
		c.log.Warn("saving position", zap.Error(err))
	}
}

func (c *Controller) onLinkActivated(gen uint64, href string) {
	if c.stale(gen) || !c.hasLocation {
		return
	}
	c.prevPos = c.location.PositionID
	c.log.Debug("link activated", zap.String("href", href), zap.String("from", c.prevPos))
}

// NavigateToc shows the target of a table of contents entry
func (c *Controller) NavigateToc(href string) {
	if c.eng == nil {
		return
	}
	target := c.matcher.Resolve(href)
	if err := c.eng.Display(target); err != nil {
		c.log.Warn("toc navigation failed", zap.String("href", href), zap.String("target", target), zap.Error(err))
		c.notices = append(c.notices, NoticeSectionUnavailable)
	}
}

// FollowLink follows the i-th link on the current page. A jump that fails
// leaves the return slot as it was before the link was activated.
func (c *Controller) FollowLink(i int) error {
	f, ok := c.eng.(linkFollower)
	if !ok {
		return errNoLinks
	}
	saved := c.prevPos
	if err := f.FollowLink(i); err != nil {
		c.prevPos = saved
		return err
	}
	return nil
}

// ReturnToPrevious jumps back to where the reader was before following a link
func (c *Controller) ReturnToPrevious() error {
	if c.eng == nil || c.prevPos == "" {
		return nil
	}
	target := c.prevPos
	c.prevPos = ""
	if err := c.eng.Display(target); err != nil {
		c.notices = append(c.notices, NoticeSectionUnavailable)
		return fmt.Errorf("return to previous position: %w", err)
	}
	return nil
}

// DismissReturn forgets the position saved before following a link
func (c *Controller) DismissReturn() {
	c.prevPos = ""
}

// Prev turns one page back
func (c *Controller) Prev() error {
	if c.eng == nil {
		return errNoBook
	}
	return c.eng.Prev()
}

// Next turns one page forward
func (c *Controller) Next() error {
	if c.eng == nil {
		return errNoBook
	}
	return c.eng.Next()
}

// TakeNotice pops the oldest pending notice
func (c *Controller) TakeNotice() (Notice, bool) {
	if len(c.notices) == 0 {
		return "", false
	}
	n := c.notices[0]
	c.notices = c.notices[1:]
	return n, true
}

func (c *Controller) teardown() error {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for _, fn := range c.unsub {
		fn()
	}
	c.unsub = nil

	var err error
	if c.eng != nil {
		err = c.eng.Close()
		c.eng = nil
	}
	c.display.Detach()

	c.matcher = nil
	c.toc = nil
	c.expand = toc.NewExpandState()
	c.restoring = ""
	c.location = models.PageLocation{}
	c.hasLocation = false
	c.navPath = nil
	c.prevPos = ""
	c.notices = nil
	return err
}

// Close ends the session. Work still in flight is discarded when it returns.
func (c *Controller) Close() error {
	c.gen++
	if c.display.State().Immersive {
		c.display.ToggleImmersive()
	}
	err := c.teardown()
	c.status = StatusIdle
	c.err = nil
	c.book = models.BookRef{}
	return err
}

// Status returns the session status
func (c *Controller) Status() Status { return c.status }

// Err returns the error that failed the session
func (c *Controller) Err() error { return c.err }

// Book returns the catalog entry of the open book
func (c *Controller) Book() models.BookRef { return c.book }

// Location returns the last reported location
func (c *Controller) Location() (models.PageLocation, bool) { return c.location, c.hasLocation }

// NavPath returns the breadcrumb for the current location
func (c *Controller) NavPath() models.NavPath { return c.navPath }

// TOC returns the book's table of contents
func (c *Controller) TOC() []models.TocNode { return c.toc }

// Expand returns the table of contents expand/collapse state
func (c *Controller) Expand() *toc.ExpandState { return c.expand }

// PrevPosition returns the position saved before the last followed link
func (c *Controller) PrevPosition() (string, bool) { return c.prevPos, c.prevPos != "" }

// Engine returns the current engine, or nil
func (c *Controller) Engine() engine.Engine { return c.eng }

// Display returns the display state machine
func (c *Controller) Display() *display.Machine { return c.display }

// Input returns the input dispatcher bound to this controller
func (c *Controller) Input() *input.Dispatcher { return c.input }
