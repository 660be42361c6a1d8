// Package render rasterises a wave snapshot into a paletted canvas and, in
// the ebiten build, uploads it to the screen.
package render

import (
	"math"

	"wave1d/internal/core"
)

// Plot geometry defaults.
const (
	DefaultWidth  = 1024
	DefaultHeight = 720
	Margin        = 20
	AxisLength    = 256
	HitTolerance  = 20
)

// Plot maps grid indices and values to canvas pixels. Values are drawn
// around the vertical centre, scaled by the damping factor; index 0 sits at
// the left margin and the last index at the right margin.
type Plot struct {
	Size     core.Size
	ShowAxis bool
}

// NewPlot returns a plot of w x h pixels.
func NewPlot(w, h int) Plot {
	return Plot{Size: core.Size{W: w, H: h}}
}

func (p Plot) span() int {
	s := p.Size.W - 2*Margin
	if s < 1 {
		s = 1
	}
	return s
}

// X returns the column of index i out of n points.
func (p Plot) X(i, n int) int {
	if n <= 1 {
		return Margin
	}
	if n-1 <= p.span() {
		return Margin + i
	}
	return Margin + i*p.span()/(n-1)
}

// Y returns the row of value v under damping z, limited to one row beyond
// either edge of the canvas. Non-finite values map to the row above the top.
func (p Plot) Y(v, z float64) int {
	y := math.Round(v*z) + float64(p.Size.H/2)
	switch {
	case math.IsNaN(y):
		return -1
	case y < -1:
		return -1
	case y > float64(p.Size.H):
		return p.Size.H
	}
	return int(y)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// IndexAt returns the grid index drawn at column x.
func (p Plot) IndexAt(x, n int) (int, bool) {
	if n < 1 || x < Margin {
		return 0, false
	}
	var i int
	if n-1 <= p.span() {
		i = x - Margin
	} else {
		i = int(math.Round(float64(x-Margin) * float64(n-1) / float64(p.span())))
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// Hit returns the index under the pointer at (x, y) when the drawn value is
// within HitTolerance pixels vertically.
func (p Plot) Hit(values []float64, z float64, x, y int) (int, bool) {
	i, ok := p.IndexAt(x, len(values))
	if !ok {
		return 0, false
	}
	if !finite(values[i]) {
		return 0, false
	}
	if d := p.Y(values[i], z) - y; d > -HitTolerance && d < HitTolerance {
		return i, true
	}
	return 0, false
}

// Rasterize draws the trace, the optional axes and the held marker into c.
func (p Plot) Rasterize(c *core.Canvas, values []float64, z float64, held int) {
	c.Clear()
	mid := p.Size.H / 2
	if p.ShowAxis {
		c.Line(Margin, mid-AxisLength, Margin, mid+AxisLength, Axis)
		c.Line(Margin, mid, p.Size.W-Margin, mid, Axis)
	}
	n := len(values)
	for i := 1; i < n; i++ {
		if !finite(values[i-1]) || !finite(values[i]) {
			continue
		}
		c.Line(p.X(i-1, n), p.Y(values[i-1], z), p.X(i, n), p.Y(values[i], z), Trace)
	}
	if held >= 0 && held < n && finite(values[held]) {
		x, y := p.X(held, n), p.Y(values[held], z)
		for d := -3; d <= 3; d++ {
			c.Set(x+d, y, Marker)
			c.Set(x, y+d, Marker)
		}
	}
}
