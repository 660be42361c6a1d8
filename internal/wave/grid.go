package wave

import "fmt"

// Grid holds the three time layers of one worker's segment. Local index i
// maps to global index Start+i of the owning Partition.
type Grid struct {
	prev []float64
	cur  []float64
	next []float64
}

// NewGrid allocates three layers of n values.
func NewGrid(n int) (*Grid, error) {
	if n < 1 || n > MaxPoints {
		return nil, fmt.Errorf("wave.NewGrid: %d cells: %w", n, ErrResource)
	}
	return &Grid{
		prev: make([]float64, n),
		cur:  make([]float64, n),
		next: make([]float64, n),
	}, nil
}

// Len returns the number of cells per layer.
func (g *Grid) Len() int { return len(g.cur) }

// Previous returns the layer at t-1.
func (g *Grid) Previous() []float64 { return g.prev }

// Current returns the layer at t.
func (g *Grid) Current() []float64 { return g.cur }

// Next returns the layer being computed for t+1.
func (g *Grid) Next() []float64 { return g.next }

// Rotate advances the layer roles. The old previous layer is reused as the
// next scratch layer; no values are copied.
func (g *Grid) Rotate() {
	g.prev, g.cur, g.next = g.cur, g.next, g.prev
}

// Fill sets the previous and current layers to f(i) and zeroes next.
func (g *Grid) Fill(f func(i int) float64) {
	for i := range g.cur {
		v := f(i)
		g.prev[i] = v
		g.cur[i] = v
		g.next[i] = 0
	}
}
