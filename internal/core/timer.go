package core

import "time"

// FrameClock paces viewer frames at a steady rate. Frames that fall due while
// the caller is busy are not replayed; at most one frame is due per call.
type FrameClock struct {
	period time.Duration
	last   time.Time
}

// NewFrameClock targets fps frames per second.
func NewFrameClock(fps int) *FrameClock {
	f := &FrameClock{}
	f.SetFPS(fps)
	return f
}

// SetFPS changes the frame rate.
func (f *FrameClock) SetFPS(fps int) {
	if fps <= 0 {
		fps = 60
	}
	f.period = time.Second / time.Duration(fps)
}

// Period returns the time between frames.
func (f *FrameClock) Period() time.Duration { return f.period }

// Due reports whether a frame should run at now.
func (f *FrameClock) Due(now time.Time) bool {
	if f.last.IsZero() || now.Sub(f.last) >= f.period {
		f.last = now
		return true
	}
	return false
}
