package core

// Canvas stores a 2D grid of palette indices in row-major order.
type Canvas struct {
	W, H int
	data []uint8
}

// NewCanvas allocates a canvas with the given dimensions.
func NewCanvas(w, h int) *Canvas {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &Canvas{W: w, H: h, data: make([]uint8, w*h)}
}

// Cells exposes the backing slice.
func (c *Canvas) Cells() []uint8 { return c.data }

// Index returns the linear slice index for coordinates (x, y).
func (c *Canvas) Index(x, y int) int { return y*c.W + x }

// At returns the value at (x, y), or 0 outside the canvas.
func (c *Canvas) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return 0
	}
	return c.data[c.Index(x, y)]
}

// Set writes v at (x, y); points outside the canvas are dropped.
func (c *Canvas) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return
	}
	c.data[c.Index(x, y)] = v
}

// Line draws a straight segment from (x0, y0) to (x1, y1) inclusive. The
// segment is clipped to the canvas first, so endpoints far outside it cost
// nothing.
func (c *Canvas) Line(x0, y0, x1, y1 int, v uint8) {
	var ok bool
	if x0, y0, x1, y1, ok = c.clip(x0, y0, x1, y1); !ok {
		return
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.Set(x0, y0, v)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

const (
	outLeft = 1 << iota
	outRight
	outTop
	outBottom
)

func (c *Canvas) outcode(x, y float64) int {
	code := 0
	switch {
	case x < 0:
		code |= outLeft
	case x > float64(c.W-1):
		code |= outRight
	}
	switch {
	case y < 0:
		code |= outTop
	case y > float64(c.H-1):
		code |= outBottom
	}
	return code
}

// clip is Cohen-Sutherland against the canvas bounds. It reports false when
// the segment misses the canvas entirely.
func (c *Canvas) clip(x0, y0, x1, y1 int) (int, int, int, int, bool) {
	fx0, fy0, fx1, fy1 := float64(x0), float64(y0), float64(x1), float64(y1)
	xmax, ymax := float64(c.W-1), float64(c.H-1)
	c0, c1 := c.outcode(fx0, fy0), c.outcode(fx1, fy1)
	for {
		if c0|c1 == 0 {
			break
		}
		if c0&c1 != 0 {
			return 0, 0, 0, 0, false
		}
		out := c0
		if out == 0 {
			out = c1
		}
		var x, y float64
		switch {
		case out&outBottom != 0:
			x, y = fx0+(fx1-fx0)*(ymax-fy0)/(fy1-fy0), ymax
		case out&outTop != 0:
			x, y = fx0+(fx1-fx0)*(0-fy0)/(fy1-fy0), 0
		case out&outRight != 0:
			x, y = xmax, fy0+(fy1-fy0)*(xmax-fx0)/(fx1-fx0)
		default:
			x, y = 0, fy0+(fy1-fy0)*(0-fx0)/(fx1-fx0)
		}
		if out == c0 {
			fx0, fy0 = x, y
			c0 = c.outcode(fx0, fy0)
		} else {
			fx1, fy1 = x, y
			c1 = c.outcode(fx1, fy1)
		}
	}
	return round(fx0, xmax), round(fy0, ymax), round(fx1, xmax), round(fy1, ymax), true
}

func round(v, limit float64) int {
	r := int(v + 0.5)
	if r < 0 {
		return 0
	}
	if float64(r) > limit {
		return int(limit)
	}
	return r
}

// Clear fills the canvas with zeros.
func (c *Canvas) Clear() {
	clear(c.data)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
