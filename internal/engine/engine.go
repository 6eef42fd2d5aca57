// Package engine defines the contract between the reading session and a
// rendering engine. The session never reaches past these interfaces.
package engine

import (
	"context"

	"github.com/justyntemme/jianyue/pkg/models"
)

// SpineItem is one content document in reading order
type SpineItem struct {
	Index int
	ID    string
	Href  string
}

// Spine gives access to the book's reading order
type Spine interface {
	// Get looks up a spine item by its exact href
	Get(href string) (SpineItem, bool)
	Items() []SpineItem
	// Canonical normalizes a navigation-relative path the way the engine
	// addresses its own documents.
	Canonical(path string) string
}

// Theme is a palette registered with the engine under a name
type Theme struct {
	Background string
	Foreground string
	LineHeight float64
}

// Options configure a newly opened engine
type Options struct {
	Flow   models.FlowMode
	Spread models.SpreadMode
	Width  int
	Height int
}

// Engine renders one book and reports where the reader is
type Engine interface {
	// Display shows target, which is a position id issued by this engine or
	// an href with optional fragment. An empty target shows the default start.
	Display(target string) error
	Prev() error
	Next() error

	SetFlow(mode models.FlowMode)
	SetSpread(mode models.SpreadMode)
	RegisterTheme(name string, theme Theme)
	SelectTheme(name string)
	SetFontSize(percent int)

	// OnRelocated subscribes to location changes. The returned func cancels.
	OnRelocated(fn func(models.PageLocation)) (cancel func())
	// OnLinkActivated is called before the engine follows a link inside content.
	OnLinkActivated(fn func(href string)) (cancel func())

	Spine() Spine
	Navigation() []models.TocNode
	CurrentLocation() (models.PageLocation, bool)

	Close() error
}

// Opener initializes engines for document URLs
type Opener interface {
	Open(ctx context.Context, url string, opts Options) (Engine, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context, url string, opts Options) (Engine, error)

// Open implements Opener
func (f OpenerFunc) Open(ctx context.Context, url string, opts Options) (Engine, error) {
	return f(ctx, url, opts)
}
