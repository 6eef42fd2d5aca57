// Package textengine renders EPUB books as wrapped text pages for the
// terminal. It implements engine.Engine.
package textengine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/internal/epub"
	"github.com/justyntemme/jianyue/pkg/models"
)

var (
	errClosed       = errors.New("textengine: closed")
	errNotDisplayed = errors.New("textengine: nothing displayed")
)

// Default viewport when the host has not reported a size yet
const (
	DefaultWidth  = 80
	DefaultHeight = 24
)

// Fetcher loads book files
type Fetcher interface {
	FetchBook(ctx context.Context, url string) ([]byte, error)
}

// NewOpener returns an engine.Opener that fetches and parses books
func NewOpener(f Fetcher, log *zap.Logger) engine.Opener {
	return engine.OpenerFunc(func(ctx context.Context, url string, opts engine.Options) (engine.Engine, error) {
		data, err := f.FetchBook(ctx, url)
		if err != nil {
			return nil, err
		}
		book, err := epub.Open(data)
		if err != nil {
			return nil, err
		}
		return New(book, opts, log), nil
	})
}

type subscription[T any] struct {
	id int
	fn T
}

// mark is a table of contents anchor inside a section
type mark struct {
	block int
	id    string
}

// pin keeps the fragment of an explicit jump while the page stays put
type pin struct {
	section int
	offset  int
	id      string
}

// Engine shows one book
type Engine struct {
	book  *epub.Book
	spine *spine
	docs  map[int]*epub.Document
	marks map[int][]mark
	log   *zap.Logger

	flow   models.FlowMode
	spread models.SpreadMode
	font   int
	width  int
	height int
	themes map[string]engine.Theme
	theme  string

	geo       geometry
	lines     []line
	section   int
	offset    int
	pin       pin
	displayed bool
	closed    bool

	nextID    int
	relocated []subscription[func(models.PageLocation)]
	linkFns   []subscription[func(string)]
}

var _ engine.Engine = (*Engine)(nil)

// New creates an engine for an opened book
func New(book *epub.Book, opts engine.Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		book:   book,
		spine:  newSpine(book),
		docs:   make(map[int]*epub.Document),
		marks:  make(map[int][]mark),
		log:    log,
		flow:   opts.Flow,
		spread: opts.Spread,
		font:   models.DefaultFontSize,
		width:  opts.Width,
		height: opts.Height,
		themes: make(map[string]engine.Theme),
	}
	if e.flow == "" {
		e.flow = models.FlowPaginated
	}
	if e.spread == "" {
		e.spread = models.SpreadAuto
	}
	if e.width <= 0 {
		e.width = DefaultWidth
	}
	if e.height <= 0 {
		e.height = DefaultHeight
	}
	e.geo = e.computeGeometry()
	return e
}

func (e *Engine) computeGeometry() geometry {
	spread := e.spread
	if e.flow == models.FlowScrolled {
		spread = models.SpreadNone
	}
	return computeGeometry(e.width, e.height, e.font, spread)
}

func (e *Engine) spaced() bool {
	return e.themes[e.theme].LineHeight >= 1.5
}

func (e *Engine) document(section int) (*epub.Document, error) {
	if doc, ok := e.docs[section]; ok {
		return doc, nil
	}
	href := e.spine.items[section].Href
	data, err := e.book.ReadItem(href)
	if err != nil {
		return nil, fmt.Errorf("load section %s: %w", href, err)
	}
	doc, err := epub.ParseContent(data)
	if err != nil {
		return nil, fmt.Errorf("load section %s: %w", href, err)
	}
	e.docs[section] = doc
	return doc, nil
}

func (e *Engine) load(section int) error {
	doc, err := e.document(section)
	if err != nil {
		return err
	}
	e.section = section
	e.lines = layoutDocument(doc, e.geo.wrap, e.spaced())
	return nil
}

// visible is the number of rows on screen at once
func (e *Engine) visible() int {
	if e.flow == models.FlowScrolled {
		return e.geo.height
	}
	return e.geo.pageSize()
}

func (e *Engine) step() int {
	if e.flow == models.FlowScrolled {
		return max(1, e.geo.height/2)
	}
	return e.geo.pageSize()
}

func (e *Engine) align(row int) int {
	if e.flow == models.FlowScrolled {
		return row
	}
	ps := e.geo.pageSize()
	return row / ps * ps
}

func (e *Engine) lastStart() int {
	if len(e.lines) == 0 {
		return 0
	}
	if e.flow == models.FlowScrolled {
		return max(0, len(e.lines)-e.geo.height)
	}
	return e.align(len(e.lines) - 1)
}

// Display implements engine.Engine
func (e *Engine) Display(target string) error {
	if e.closed {
		return errClosed
	}
	if target == "" {
		return e.moveTo(0, 0, 0, "")
	}

	if isPosition(target) {
		section, block, char, err := parsePosition(target)
		if err != nil {
			return err
		}
		if section >= len(e.spine.items) {
			return fmt.Errorf("%w: section %d out of range", ErrBadPosition, section)
		}
		doc, err := e.document(section)
		if err != nil {
			return err
		}
		if block > 0 && block >= len(doc.Blocks) {
			return fmt.Errorf("%w: block %d out of range", ErrBadPosition, block)
		}
		return e.moveTo(section, block, char, "")
	}

	p, fragment, _ := strings.Cut(target, "#")
	section, ok := e.spine.locate(p)
	if !ok {
		return fmt.Errorf("textengine: no section for %q", target)
	}
	doc, err := e.document(section)
	if err != nil {
		return err
	}
	block, id := 0, ""
	if fragment != "" {
		if b, ok := doc.Anchor(fragment); ok {
			block, id = b, fragment
		} else {
			e.log.Debug("unknown fragment, showing section start", zap.String("target", target))
		}
	}
	return e.moveTo(section, block, 0, id)
}

// moveTo shows the page holding block and char. A non-empty fragment is
// reported with the location until the page changes.
func (e *Engine) moveTo(section, block, char int, fragment string) error {
	if section >= len(e.spine.items) {
		return fmt.Errorf("textengine: section %d out of range", section)
	}
	if err := e.load(section); err != nil {
		return err
	}
	e.offset = e.align(rowFor(e.lines, block, char))
	e.pin = pin{section: section, offset: e.offset, id: fragment}
	e.displayed = true
	e.emitRelocated()
	return nil
}

// Next implements engine.Engine
func (e *Engine) Next() error {
	if e.closed {
		return errClosed
	}
	if !e.displayed {
		return errNotDisplayed
	}
	if e.offset+e.visible() < len(e.lines) {
		e.offset = min(e.offset+e.step(), e.lastStart())
		e.emitRelocated()
		return nil
	}
	if e.section+1 >= len(e.spine.items) {
		return nil
	}
	if err := e.load(e.section + 1); err != nil {
		return err
	}
	e.offset = 0
	e.emitRelocated()
	return nil
}

// Prev implements engine.Engine
func (e *Engine) Prev() error {
	if e.closed {
		return errClosed
	}
	if !e.displayed {
		return errNotDisplayed
	}
	if e.offset > 0 {
		e.offset = max(0, e.offset-e.step())
		e.emitRelocated()
		return nil
	}
	if e.section == 0 {
		return nil
	}
	if err := e.load(e.section - 1); err != nil {
		return err
	}
	e.offset = e.lastStart()
	e.emitRelocated()
	return nil
}

// relayout rewraps the current section and keeps the first visible text in view
func (e *Engine) relayout() {
	e.geo = e.computeGeometry()
	if !e.displayed || e.closed {
		return
	}
	block, char := anchorAt(e.lines, e.offset)
	if err := e.load(e.section); err != nil {
		e.log.Warn("relayout failed", zap.Error(err))
		return
	}
	e.offset = e.align(rowFor(e.lines, block, char))
	e.emitRelocated()
}

// SetFlow implements engine.Engine
func (e *Engine) SetFlow(mode models.FlowMode) {
	if e.flow == mode {
		return
	}
	e.flow = mode
	e.relayout()
}

// SetSpread implements engine.Engine
func (e *Engine) SetSpread(mode models.SpreadMode) {
	if e.spread == mode {
		return
	}
	e.spread = mode
	e.relayout()
}

// RegisterTheme implements engine.Engine
func (e *Engine) RegisterTheme(name string, theme engine.Theme) {
	e.themes[name] = theme
}

// SelectTheme implements engine.Engine
func (e *Engine) SelectTheme(name string) {
	if e.theme == name {
		return
	}
	wasSpaced := e.spaced()
	e.theme = name
	if e.spaced() != wasSpaced {
		e.relayout()
	}
}

// SetFontSize implements engine.Engine
func (e *Engine) SetFontSize(percent int) {
	if e.font == percent {
		return
	}
	e.font = percent
	e.relayout()
}

// Resize changes the viewport in terminal cells
func (e *Engine) Resize(width, height int) {
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	e.relayout()
}

// OnRelocated implements engine.Engine
func (e *Engine) OnRelocated(fn func(models.PageLocation)) func() {
	e.nextID++
	id := e.nextID
	e.relocated = append(e.relocated, subscription[func(models.PageLocation)]{id: id, fn: fn})
	return func() {
		e.relocated = removeSub(e.relocated, id)
	}
}

// OnLinkActivated implements engine.Engine
func (e *Engine) OnLinkActivated(fn func(string)) func() {
	e.nextID++
	id := e.nextID
	e.linkFns = append(e.linkFns, subscription[func(string)]{id: id, fn: fn})
	return func() {
		e.linkFns = removeSub(e.linkFns, id)
	}
}

func removeSub[T any](subs []subscription[T], id int) []subscription[T] {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) emitRelocated() {
	loc, ok := e.CurrentLocation()
	if !ok {
		return
	}
	for _, s := range e.relocated {
		s.fn(loc)
	}
}

// Spine implements engine.Engine
func (e *Engine) Spine() engine.Spine {
	return e.spine
}

// Navigation implements engine.Engine
func (e *Engine) Navigation() []models.TocNode {
	return e.book.TOC
}

// Title returns the book's own title
func (e *Engine) Title() string {
	return e.book.Title
}

// CurrentLocation implements engine.Engine
func (e *Engine) CurrentLocation() (models.PageLocation, bool) {
	if !e.displayed || e.closed {
		return models.PageLocation{}, false
	}
	ps := e.visible()
	total := max(1, int(math.Ceil(float64(len(e.lines))/float64(ps))))
	page := min(total, e.offset/ps+1)

	frac := 0.0
	if len(e.lines) > 0 {
		frac = float64(e.offset) / float64(len(e.lines))
	}
	pct := (float64(e.section) + frac) / float64(len(e.spine.items))
	pct = math.Max(0, math.Min(1, pct))

	block, char := anchorAt(e.lines, e.offset)
	href := e.spine.items[e.section].Href
	if id := e.fragment(block); id != "" {
		href += "#" + id
	}
	return models.PageLocation{
		Href:       href,
		PositionID: formatPosition(e.section, block, char),
		Page:       page,
		TotalPages: total,
		Percentage: pct,
	}, true
}

// fragment names the anchor the top row reads under: the target of the
// last jump while its page is shown, otherwise the nearest table of
// contents anchor at or above the top block.
func (e *Engine) fragment(top int) string {
	if e.pin.id != "" && e.pin.section == e.section && e.pin.offset == e.offset {
		return e.pin.id
	}
	id := ""
	for _, m := range e.sectionMarks(e.section) {
		if m.block > top {
			break
		}
		id = m.id
	}
	return id
}

// sectionMarks returns the table of contents anchors of a loaded section
// ordered by block
func (e *Engine) sectionMarks(section int) []mark {
	if m, ok := e.marks[section]; ok {
		return m
	}
	doc := e.docs[section]
	if doc == nil {
		return nil
	}
	var marks []mark
	seen := make(map[string]bool)
	var visit func(nodes []models.TocNode)
	visit = func(nodes []models.TocNode) {
		for _, n := range nodes {
			p, frag, ok := strings.Cut(n.Href, "#")
			frag = unescape(frag)
			if ok && frag != "" && !seen[frag] {
				if i, found := e.locateNav(p); found && i == section {
					if b, ok := doc.Anchor(frag); ok {
						seen[frag] = true
						marks = append(marks, mark{block: b, id: frag})
					}
				}
			}
			visit(n.Children)
		}
	}
	visit(e.book.TOC)
	slices.SortStableFunc(marks, func(a, b mark) int { return cmp.Compare(a.block, b.block) })
	e.marks[section] = marks
	return marks
}

// locateNav finds the section of a navigation document href
func (e *Engine) locateNav(p string) (int, bool) {
	if p == "" {
		return 0, false
	}
	if i, ok := e.spine.locate(e.spine.Canonical(p)); ok {
		return i, true
	}
	return e.spine.locate(p)
}

// Close implements engine.Engine
func (e *Engine) Close() error {
	e.closed = true
	e.relocated = nil
	e.linkFns = nil
	e.docs = nil
	e.marks = nil
	e.lines = nil
	return nil
}

// visibleBlocks returns the distinct block indexes on screen, in order
func (e *Engine) visibleBlocks() []int {
	var blocks []int
	end := min(len(e.lines), e.offset+e.visible())
	for i := e.offset; i < end; i++ {
		l := e.lines[i]
		if l.text == "" {
			continue
		}
		if len(blocks) == 0 || blocks[len(blocks)-1] != l.block {
			blocks = append(blocks, l.block)
		}
	}
	return blocks
}

// PageLinks returns the links inside the blocks currently on screen
func (e *Engine) PageLinks() []epub.Link {
	if !e.displayed || e.closed {
		return nil
	}
	doc := e.docs[e.section]
	if doc == nil {
		return nil
	}
	var links []epub.Link
	for _, b := range e.visibleBlocks() {
		links = append(links, doc.Blocks[b].Links...)
	}
	return links
}

// FollowLink activates the i-th link of PageLinks. Link listeners run
// before the engine moves.
func (e *Engine) FollowLink(i int) error {
	links := e.PageLinks()
	if i < 0 || i >= len(links) {
		return fmt.Errorf("textengine: no link %d on this page", i)
	}
	target, err := e.resolveLink(links[i].Href)
	if err != nil {
		return err
	}
	for _, s := range e.linkFns {
		s.fn(target)
	}
	return e.Display(target)
}

// resolveLink turns a content-relative href into a package-relative one
func (e *Engine) resolveLink(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("textengine: bad link %q: %w", href, err)
	}
	if u.IsAbs() {
		return "", fmt.Errorf("textengine: external link %q", href)
	}
	current := e.spine.items[e.section].Href
	p, fragment, hasFragment := strings.Cut(href, "#")
	if p == "" {
		p = current
	} else {
		p = path.Join(path.Dir(current), p)
	}
	if hasFragment {
		return p + "#" + fragment, nil
	}
	return p, nil
}

// Render draws the current page with the selected theme
func (e *Engine) Render() string {
	if !e.displayed || e.closed {
		return ""
	}
	th := e.themes[e.theme]
	base := lipgloss.NewStyle().Width(e.geo.colWidth)
	if th.Background != "" {
		base = base.Background(lipgloss.Color(th.Background))
	}
	if th.Foreground != "" {
		base = base.Foreground(lipgloss.Color(th.Foreground))
	}
	heading := base.Bold(true)

	cols := e.geo.columns
	if e.flow == models.FlowScrolled {
		cols = 1
	}
	rendered := make([]string, 0, cols*2-1)
	for c := 0; c < cols; c++ {
		if c > 0 {
			gap := base.Width(columnGap).Render(strings.Repeat(" ", columnGap))
			rendered = append(rendered, strings.TrimRight(strings.Repeat(gap+"\n", e.geo.height), "\n"))
		}
		var rows []string
		start := e.offset + c*e.geo.height
		for r := 0; r < e.geo.height; r++ {
			i := start + r
			switch {
			case i >= len(e.lines):
				rows = append(rows, base.Render(""))
			case e.lines[i].heading:
				rows = append(rows, heading.Render(e.lines[i].text))
			default:
				rows = append(rows, base.Render(e.lines[i].text))
			}
		}
		rendered = append(rendered, strings.Join(rows, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
