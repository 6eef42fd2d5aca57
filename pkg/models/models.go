package models

import "fmt"

// BookRef represents a book listed in the catalog manifest
type BookRef struct {
	Slug   string `json:"slug" yaml:"slug"`
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	File   string `json:"file" yaml:"file"`
}

// DisplayTitle returns the title or a placeholder for untitled books
func (b BookRef) DisplayTitle() string {
	if b.Title == "" {
		return "Untitled"
	}
	return b.Title
}

// FindBook returns the book with the given slug
func FindBook(books []BookRef, slug string) (BookRef, bool) {
	for _, b := range books {
		if b.Slug == slug {
			return b, true
		}
	}
	return BookRef{}, false
}

// DisplayAuthor returns the author or a placeholder
func (b BookRef) DisplayAuthor() string {
	if b.Author == "" {
		return "Unknown"
	}
	return b.Author
}

// TocNode is one entry of a book's table of contents.
// Href is kept exactly as the navigation document wrote it.
type TocNode struct {
	Label    string    `json:"label"`
	Href     string    `json:"href"`
	Children []TocNode `json:"subitems,omitempty"`
}

// NavEntry is one step of a breadcrumb path
type NavEntry struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// NavPath is the chain of TOC entries from the root to the current location
type NavPath []NavEntry

// Last returns the deepest entry of the path
func (p NavPath) Last() (NavEntry, bool) {
	if len(p) == 0 {
		return NavEntry{}, false
	}
	return p[len(p)-1], true
}

// PageLocation is a location reported by the rendering engine
type PageLocation struct {
	Href       string  `json:"href"`
	PositionID string  `json:"position_id"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Percentage float64 `json:"percentage"`
}

// Theme names
type ThemeName string

const (
	ThemeLight ThemeName = "light"
	ThemeSepia ThemeName = "sepia"
	ThemeDark  ThemeName = "dark"
)

// Themes lists the reading themes in cycle order
var Themes = []ThemeName{ThemeLight, ThemeSepia, ThemeDark}

// ParseThemeName validates a theme name
func ParseThemeName(s string) (ThemeName, error) {
	for _, t := range Themes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// FlowMode controls how content is laid out
type FlowMode string

const (
	FlowPaginated FlowMode = "paginated"
	FlowScrolled  FlowMode = "scrolled"
)

// ParseFlowMode validates a flow mode
func ParseFlowMode(s string) (FlowMode, error) {
	switch FlowMode(s) {
	case FlowPaginated, FlowScrolled:
		return FlowMode(s), nil
	}
	return "", fmt.Errorf("unknown flow mode %q", s)
}

// SpreadMode controls single or side-by-side pages
type SpreadMode string

const (
	SpreadAuto   SpreadMode = "auto"
	SpreadNone   SpreadMode = "none"
	SpreadAlways SpreadMode = "always"
)

// Spreads lists the spread modes in cycle order
var Spreads = []SpreadMode{SpreadAuto, SpreadNone, SpreadAlways}

// ParseSpreadMode validates a spread mode
func ParseSpreadMode(s string) (SpreadMode, error) {
	for _, m := range Spreads {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown spread mode %q", s)
}

// Font size bounds, in percent
const (
	MinFontSize     = 80
	MaxFontSize     = 160
	FontSizeStep    = 10
	DefaultFontSize = 100
)

// ReadingDisplayState holds the reader's presentation settings for one session
type ReadingDisplayState struct {
	FontSizePercent int        `json:"font_size_percent"`
	Theme           ThemeName  `json:"theme"`
	Flow            FlowMode   `json:"flow"`
	Spread          SpreadMode `json:"spread"`
	Immersive       bool       `json:"immersive"`
}

// DefaultDisplayState returns the state every session starts with
func DefaultDisplayState() ReadingDisplayState {
	return ReadingDisplayState{
		FontSizePercent: DefaultFontSize,
		Theme:           ThemeLight,
		Flow:            FlowPaginated,
		Spread:          SpreadAuto,
	}
}
