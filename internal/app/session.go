package app

import (
	"wave1d/internal/render"
	"wave1d/internal/wave"
)

// Viewer frame rates. Distributed runs pay two broadcasts per frame.
const (
	FPSSingle      = 24
	FPSDistributed = 21
)

// Session turns viewer input into frame directives.
type Session struct {
	Paused bool
	Held   int

	reset bool
	quit  bool
}

// NewSession returns a running session with no held point.
func NewSession() *Session {
	return &Session{Held: wave.NoHold}
}

// TogglePause flips between running and paused.
func (s *Session) TogglePause() { s.Paused = !s.Paused }

// RequestReset restarts the wave on the next frame, resuming a paused run
// and releasing the held point.
func (s *Session) RequestReset() {
	s.reset = true
	s.Paused = false
	s.Held = wave.NoHold
}

// RequestQuit ends the run on the next frame.
func (s *Session) RequestQuit() { s.quit = true }

// Click releases the held point, or holds the point drawn under (x, y).
func (s *Session) Click(p render.Plot, values []float64, z float64, x, y int) {
	if s.Held != wave.NoHold {
		s.Held = wave.NoHold
		return
	}
	if i, ok := p.Hit(values, z, x, y); ok {
		s.Held = i
	}
}

// Pending reports whether a directive must be sent regardless of pacing.
func (s *Session) Pending() bool { return s.reset || s.quit }

// Directive returns the next frame's directive and clears one-shot requests.
func (s *Session) Directive() wave.Directive {
	d := wave.Directive{Pause: s.Paused, Reset: s.reset, Held: s.Held, Quit: s.quit}
	s.reset = false
	return d
}

// FPS returns the frame rate for a run of the given worker count.
func FPS(workers int) int {
	if workers > 1 {
		return FPSDistributed
	}
	return FPSSingle
}
