// Package display owns the reader's presentation settings and keeps the
// rendering engine in step with them.
package display

import (
	"go.uber.org/zap"

	"github.com/justyntemme/jianyue/internal/engine"
	"github.com/justyntemme/jianyue/pkg/models"
)

// Renderer is the part of an engine the display state drives
type Renderer interface {
	RegisterTheme(name string, theme engine.Theme)
	SelectTheme(name string)
	SetFlow(mode models.FlowMode)
	SetSpread(mode models.SpreadMode)
	SetFontSize(percent int)
}

// Host grants exclusive (fullscreen) presentation
type Host interface {
	RequestExclusive() error
	ReleaseExclusive() error
}

// Machine holds one ReadingDisplayState. Every change is pushed to the
// attached renderer right away.
type Machine struct {
	state    models.ReadingDisplayState
	renderer Renderer
	host     Host
	held     bool
	log      *zap.Logger

	observers []func(models.ReadingDisplayState)
}

// NewMachine creates a machine in the default state
func NewMachine(host Host, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{state: models.DefaultDisplayState(), host: host, log: log}
}

// State returns a copy of the current state
func (m *Machine) State() models.ReadingDisplayState {
	return m.state
}

// OnChange registers fn to be called after every state change
func (m *Machine) OnChange(fn func(models.ReadingDisplayState)) {
	m.observers = append(m.observers, fn)
}

// Attach binds a renderer and applies the complete state to it.
// Call it again whenever the engine is re-created.
func (m *Machine) Attach(r Renderer) {
	m.renderer = r
	if r == nil {
		return
	}
	for _, name := range models.Themes {
		r.RegisterTheme(string(name), Palettes[name])
	}
	r.SelectTheme(string(m.state.Theme))
	r.SetFlow(m.state.Flow)
	r.SetSpread(m.state.Spread)
	r.SetFontSize(m.state.FontSizePercent)
}

// Detach drops the renderer
func (m *Machine) Detach() {
	m.renderer = nil
}

// Reset restores the defaults. Immersive mode is left through the normal
// release path so the host is not left in exclusive mode.
func (m *Machine) Reset() {
	if m.state.Immersive {
		m.leaveImmersive()
	}
	m.state = models.DefaultDisplayState()
	if m.renderer != nil {
		m.Attach(m.renderer)
	}
	m.notify()
}

// IncreaseFont grows the font by one step
func (m *Machine) IncreaseFont() {
	m.SetFontSize(m.state.FontSizePercent + models.FontSizeStep)
}

// DecreaseFont shrinks the font by one step
func (m *Machine) DecreaseFont() {
	m.SetFontSize(m.state.FontSizePercent - models.FontSizeStep)
}

// SetFontSize clamps percent to the allowed range and snaps it to the step
func (m *Machine) SetFontSize(percent int) {
	percent = clampFont(percent)
	if percent == m.state.FontSizePercent {
		return
	}
	m.state.FontSizePercent = percent
	if m.renderer != nil {
		m.renderer.SetFontSize(percent)
	}
	m.notify()
}

func clampFont(p int) int {
	if p < models.MinFontSize {
		return models.MinFontSize
	}
	if p > models.MaxFontSize {
		return models.MaxFontSize
	}
	// round to the nearest step
	off := (p - models.MinFontSize) % models.FontSizeStep
	if off*2 >= models.FontSizeStep {
		return p - off + models.FontSizeStep
	}
	return p - off
}

// SetTheme switches the palette
func (m *Machine) SetTheme(name string) error {
	theme, err := models.ParseThemeName(name)
	if err != nil {
		return err
	}
	m.state.Theme = theme
	if m.renderer != nil {
		m.renderer.SelectTheme(string(theme))
	}
	m.notify()
	return nil
}

// CycleTheme moves to the next palette
func (m *Machine) CycleTheme() {
	next := models.Themes[0]
	for i, t := range models.Themes {
		if t == m.state.Theme {
			next = models.Themes[(i+1)%len(models.Themes)]
			break
		}
	}
	_ = m.SetTheme(string(next))
}

// SetFlow switches between paginated and scrolled layout
func (m *Machine) SetFlow(mode string) error {
	flow, err := models.ParseFlowMode(mode)
	if err != nil {
		return err
	}
	m.state.Flow = flow
	if m.renderer != nil {
		m.renderer.SetFlow(flow)
	}
	m.notify()
	return nil
}

// ToggleFlow flips the flow mode
func (m *Machine) ToggleFlow() {
	if m.state.Flow == models.FlowPaginated {
		_ = m.SetFlow(string(models.FlowScrolled))
		return
	}
	_ = m.SetFlow(string(models.FlowPaginated))
}

// SetSpread sets the spread mode
func (m *Machine) SetSpread(mode string) error {
	spread, err := models.ParseSpreadMode(mode)
	if err != nil {
		return err
	}
	m.state.Spread = spread
	if m.renderer != nil {
		m.renderer.SetSpread(spread)
	}
	m.notify()
	return nil
}

// CycleSpread moves to the next spread mode
func (m *Machine) CycleSpread() {
	next := models.Spreads[0]
	for i, s := range models.Spreads {
		if s == m.state.Spread {
			next = models.Spreads[(i+1)%len(models.Spreads)]
			break
		}
	}
	_ = m.SetSpread(string(next))
}

// ToggleImmersive enters or leaves immersive mode. The state flips even
// when the host refuses; host failures are only logged.
func (m *Machine) ToggleImmersive() {
	if m.state.Immersive {
		m.leaveImmersive()
	} else {
		m.enterImmersive()
	}
	m.notify()
}

func (m *Machine) enterImmersive() {
	m.state.Immersive = true
	if m.host == nil {
		return
	}
	if err := m.host.RequestExclusive(); err != nil {
		m.log.Warn("exclusive presentation refused", zap.Error(err))
		return
	}
	m.held = true
}

func (m *Machine) leaveImmersive() {
	m.state.Immersive = false
	if !m.held {
		return
	}
	m.held = false
	if err := m.host.ReleaseExclusive(); err != nil {
		m.log.Warn("exclusive presentation release failed", zap.Error(err))
	}
}

// ExternalExit reconciles the state after the host left exclusive mode on
// its own (for example through the terminal's escape gesture).
func (m *Machine) ExternalExit() {
	m.held = false
	if !m.state.Immersive {
		return
	}
	m.state.Immersive = false
	m.notify()
}

func (m *Machine) notify() {
	for _, fn := range m.observers {
		fn(m.state)
	}
}
