// Package spine resolves table-of-contents hrefs to targets the rendering
// engine can display.
//
// Navigation documents and package manifests routinely disagree about
// relative paths, percent-encoding and Unicode normalization, so a TOC href
// is tried against the spine through an ordered list of strategies. The first
// strategy that produces a candidate wins. The suffix strategy can pick the
// wrong item when several spine hrefs share a trailing path; that is accepted
// in exchange for never failing outright.
package spine

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/justyntemme/jianyue/internal/engine"
)

// request is a raw href split into its parts
type request struct {
	raw      string
	path     string
	fragment string // includes the leading '#', empty when absent
}

func newRequest(raw string) request {
	r := request{raw: raw, path: raw}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		r.path = raw[:i]
		r.fragment = raw[i:]
	}
	return r
}

// strategy produces a target for r, or reports that it has none
type strategy struct {
	name string
	fn   func(r request, s engine.Spine) (string, bool)
}

var strategies = []strategy{
	{"direct", matchDirect},
	{"decoded", matchDecoded},
	{"suffix", matchSuffix},
}

// Matcher resolves hrefs against one engine's spine
type Matcher struct {
	spine engine.Spine
	log   *zap.Logger
}

// NewMatcher creates a matcher for the given spine
func NewMatcher(s engine.Spine, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{spine: s, log: log}
}

// Resolve returns the best target for rawHref. It never fails: when nothing
// in the spine matches, the engine-canonical form of the path is returned
// with the fragment re-attached.
func (m *Matcher) Resolve(rawHref string) string {
	r := newRequest(rawHref)
	if m.spine != nil {
		for _, st := range strategies {
			if target, ok := st.fn(r, m.spine); ok {
				m.log.Debug("href resolved", zap.String("href", rawHref), zap.String("strategy", st.name), zap.String("target", target))
				return target
			}
		}
	}
	target := matchCanonical(r, m.spine)
	m.log.Debug("href resolved", zap.String("href", rawHref), zap.String("strategy", "canonical"), zap.String("target", target))
	return target
}

// withFragment re-attaches the fragment unless the candidate already has one
func withFragment(candidate, fragment string) string {
	if strings.Contains(candidate, "#") {
		return candidate
	}
	return candidate + fragment
}

func matchDirect(r request, s engine.Spine) (string, bool) {
	for _, cand := range []string{r.raw, r.path} {
		if cand == "" {
			continue
		}
		if _, ok := s.Get(cand); ok {
			return withFragment(cand, r.fragment), true
		}
	}
	return "", false
}

func matchDecoded(r request, s engine.Spine) (string, bool) {
	for _, cand := range decodedVariants(r) {
		if cand == "" {
			continue
		}
		if _, ok := s.Get(cand); ok {
			return withFragment(cand, r.fragment), true
		}
	}
	return "", false
}

func matchSuffix(r request, s engine.Spine) (string, bool) {
	decoded, _ := url.PathUnescape(r.path)
	for _, item := range s.Items() {
		if item.Href == "" {
			continue
		}
		if strings.HasSuffix(r.path, item.Href) || (decoded != "" && strings.HasSuffix(decoded, item.Href)) {
			return withFragment(item.Href, r.fragment), true
		}
	}
	return "", false
}

func matchCanonical(r request, s engine.Spine) string {
	target := r.path
	if s != nil {
		if c := s.Canonical(r.path); c != "" {
			target = c
		}
	}
	return withFragment(target, r.fragment)
}

// decodedVariants lists the percent-decoded forms of r in the order they are
// tried. Malformed escapes are skipped rather than reported.
func decodedVariants(r request) []string {
	var out []string
	add := func(s string) {
		for _, v := range out {
			if v == s {
				return
			}
		}
		out = append(out, s)
	}
	if d, err := url.PathUnescape(r.raw); err == nil && d != r.raw {
		add(d)
	}
	if d, err := url.PathUnescape(r.path); err == nil {
		if d != r.path {
			add(d)
		}
		add(norm.NFC.String(d))
		add(norm.NFD.String(d))
	}
	return out
}
