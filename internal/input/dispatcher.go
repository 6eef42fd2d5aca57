// Package input turns keyboard, touch, click and wheel events into page
// turns.
package input

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Command is a pagination request
type Command int

const (
	None Command = iota
	Previous
	Next
)

// String returns the name of the command
func (c Command) String() string {
	switch c {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return "none"
	}
}

// Key identifies a navigation key
type Key int

const (
	KeyOther Key = iota
	KeyArrowLeft
	KeyArrowUp
	KeyArrowRight
	KeyArrowDown
	KeySpace
)

// Pager receives the commands. Calls are fire-and-forget: the pager is
// responsible for its own debouncing while a transition is in progress.
type Pager interface {
	Prev() error
	Next() error
}

// Thresholds bound what counts as a swipe
type Thresholds struct {
	Distance    float64       // minimum horizontal travel
	MaxVertical float64       // vertical travel at or above this rejects the swipe
	MaxDuration time.Duration // gestures at or above this are slow drags
}

// DefaultThresholds are tuned for touch screens, in CSS pixels
var DefaultThresholds = Thresholds{
	Distance:    50,
	MaxVertical: 40,
	MaxDuration: 600 * time.Millisecond,
}

// Click zone edges as fractions of the viewport width
const (
	prevZone = 0.3
	nextZone = 0.7
)

type touchPoint struct {
	x, y float64
	at   time.Time
}

// Dispatcher normalizes input sources into Previous/Next.
// The sources are independent; nothing suppresses one because of another.
type Dispatcher struct {
	pager      Pager
	thresholds Thresholds
	log        *zap.Logger

	touch *touchPoint
}

// NewDispatcher creates a dispatcher issuing commands to pager
func NewDispatcher(pager Pager, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{pager: pager, thresholds: DefaultThresholds, log: log}
}

// SetThresholds replaces the swipe thresholds
func (d *Dispatcher) SetThresholds(t Thresholds) {
	d.thresholds = t
}

// Key handles a key press
func (d *Dispatcher) Key(k Key, shift bool) Command {
	switch k {
	case KeyArrowLeft, KeyArrowUp:
		return d.issue(Previous)
	case KeyArrowRight, KeyArrowDown:
		return d.issue(Next)
	case KeySpace:
		if shift {
			return d.issue(Previous)
		}
		return d.issue(Next)
	}
	return None
}

// TouchStart records where a gesture began
func (d *Dispatcher) TouchStart(x, y float64, at time.Time) {
	d.touch = &touchPoint{x: x, y: y, at: at}
}

// TouchEnd finishes a gesture and turns the page for a quick horizontal swipe
func (d *Dispatcher) TouchEnd(x, y float64, at time.Time) Command {
	start := d.touch
	d.touch = nil
	if start == nil {
		return None
	}
	return d.issue(classifySwipe(x-start.x, y-start.y, at.Sub(start.at), d.thresholds))
}

func classifySwipe(dx, dy float64, dt time.Duration, t Thresholds) Command {
	if dt < 0 || dt >= t.MaxDuration || math.Abs(dy) >= t.MaxVertical {
		return None
	}
	switch {
	case dx < -t.Distance:
		return Next
	case dx > t.Distance:
		return Previous
	}
	return None
}

// Click handles a click at x in a viewport of the given width. The middle
// of the viewport belongs to the content (links, selection).
func (d *Dispatcher) Click(x, width float64) Command {
	if width <= 0 {
		return None
	}
	switch frac := x / width; {
	case frac < prevZone:
		return d.issue(Previous)
	case frac >= nextZone:
		return d.issue(Next)
	}
	return None
}

// Wheel handles a scroll wheel movement
func (d *Dispatcher) Wheel(deltaY float64) Command {
	switch {
	case deltaY < 0:
		return d.issue(Previous)
	case deltaY > 0:
		return d.issue(Next)
	}
	return None
}

func (d *Dispatcher) issue(c Command) Command {
	if c == None || d.pager == nil {
		return c
	}
	var err error
	if c == Previous {
		err = d.pager.Prev()
	} else {
		err = d.pager.Next()
	}
	if err != nil {
		d.log.Debug("page turn failed", zap.Stringer("command", c), zap.Error(err))
	}
	return c
}
