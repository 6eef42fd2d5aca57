package textengine

import (
	"net/url"
	"path"

	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/internal/epub"
)

// spine indexes the book's reading order by href
type spine struct {
	items  []engine.SpineItem
	byHref map[string]int
	navDir string
}

func newSpine(b *epub.Book) *spine {
	s := &spine{byHref: make(map[string]int, len(b.Spine)), navDir: b.NavDir}
	for i, it := range b.Spine {
		s.items = append(s.items, engine.SpineItem{Index: i, ID: it.ID, Href: it.Href})
		s.byHref[it.Href] = i
	}
	return s
}

// Get implements engine.Spine
func (s *spine) Get(href string) (engine.SpineItem, bool) {
	i, ok := s.byHref[href]
	if !ok {
		return engine.SpineItem{}, false
	}
	return s.items[i], true
}

// Items implements engine.Spine
func (s *spine) Items() []engine.SpineItem {
	return s.items
}

// Canonical resolves a navigation-relative path against the navigation
// document's directory.
func (s *spine) Canonical(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(path.Join(s.navDir, p))
}

// locate finds the section for a document path, comparing decoded forms so
// that "ch%202.xhtml" and "ch 2.xhtml" address the same document.
func (s *spine) locate(p string) (int, bool) {
	if i, ok := s.byHref[p]; ok {
		return i, true
	}
	want := unescape(path.Clean(p))
	for i, it := range s.items {
		if unescape(path.Clean(it.Href)) == want {
			return i, true
		}
	}
	return 0, false
}

func unescape(s string) string {
	if dec, err := url.PathUnescape(s); err == nil {
		return dec
	}
	return s
}
