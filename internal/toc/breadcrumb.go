// Package toc walks a book's table of contents: breadcrumb paths for the
// current location and the expand/collapse state of the TOC tree.
package toc

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/justyntemme/jianyue/pkg/models"
)

// FindPath returns the chain of TOC entries leading to currentHref.
//
// The walk is depth-first pre-order. A node matches when its decoded href
// contains the decoded current href or is contained by it, so fragment-only
// entries and path+fragment locations can still meet. The first matching
// sibling wins and the walk continues into its children to extend the path.
// While extending, a child must be contained by the current href: a bare
// chapter location stops at the chapter instead of its first subsection.
// An empty result means nothing matched, e.g. on a cover page.
func FindPath(nodes []models.TocNode, currentHref string) models.NavPath {
	current := decode(currentHref)
	if current == "" {
		return models.NavPath{}
	}
	path, _ := walk(nodes, current, nil, false)
	if path == nil {
		return models.NavPath{}
	}
	return path
}

func walk(nodes []models.TocNode, current string, stack models.NavPath, extending bool) (models.NavPath, bool) {
	for _, n := range nodes {
		next := make(models.NavPath, len(stack), len(stack)+1)
		copy(next, stack)
		next = append(next, models.NavEntry{Label: n.Label, Href: n.Href})

		h := decode(n.Href)
		if (extending && within(h, current)) || (!extending && contains(h, current)) {
			if deeper, ok := walk(n.Children, current, next, true); ok {
				return deeper, true
			}
			return next, true
		}
		if extending {
			continue
		}
		if deeper, ok := walk(n.Children, current, next, false); ok {
			return deeper, true
		}
	}
	return nil, false
}

// Matches reports whether a TOC href and a location href refer to the same
// place under the containment rule.
func Matches(tocHref, currentHref string) bool {
	return contains(decode(tocHref), decode(currentHref))
}

func contains(h, c string) bool {
	if h == "" || c == "" {
		return false
	}
	return strings.Contains(c, h) || strings.Contains(h, c)
}

func within(h, c string) bool {
	return h != "" && c != "" && strings.Contains(c, h)
}

// decode percent-decodes and NFC-normalizes an href. Malformed escapes leave
// the href as written.
func decode(href string) string {
	if d, err := url.PathUnescape(href); err == nil {
		href = d
	}
	return norm.NFC.String(href)
}
