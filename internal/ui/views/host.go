package views

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNoTerminal is returned when the program has no terminal to take over
var ErrNoTerminal = errors.New("no interactive terminal")

// TerminalHost maps exclusive presentation onto the terminal's alternate
// screen. Requests are queued as commands and handed to the program by
// the reader view after each update.
type TerminalHost struct {
	interactive bool
	pending     []tea.Cmd
}

// NewTerminalHost creates a host. A non-interactive host refuses every
// request.
func NewTerminalHost(interactive bool) *TerminalHost {
	return &TerminalHost{interactive: interactive}
}

// RequestExclusive implements display.Host
func (h *TerminalHost) RequestExclusive() error {
	if !h.interactive {
		return ErrNoTerminal
	}
	h.pending = append(h.pending, tea.EnterAltScreen)
	return nil
}

// ReleaseExclusive implements display.Host
func (h *TerminalHost) ReleaseExclusive() error {
	if !h.interactive {
		return ErrNoTerminal
	}
	h.pending = append(h.pending, tea.ExitAltScreen)
	return nil
}

// leave exits the alternate screen without going through the display
// machine. Used for the terminal's own escape gesture.
func (h *TerminalHost) leave() {
	if h.interactive {
		h.pending = append(h.pending, tea.ExitAltScreen)
	}
}

// Take returns and clears the queued commands
func (h *TerminalHost) Take() tea.Cmd {
	if len(h.pending) == 0 {
		return nil
	}
	cmds := h.pending
	h.pending = nil
	if len(cmds) == 1 {
		return cmds[0]
	}
	return tea.Sequence(cmds...)
}
