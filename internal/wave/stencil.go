package wave

import "sync"

// DefaultMinChunk is the smallest interior range handed to a separate
// goroutine.
const DefaultMinChunk = 1 << 14

// Interior applies the leapfrog update to local indices [lo, hi]. Disjoint
// ranges may run concurrently; each reads prev and cur and writes only its
// own slice of next.
func Interior(prev, cur, next []float64, lo, hi int, c2 float64) {
	for i := lo; i <= hi; i++ {
		next[i] = 2*cur[i] - prev[i] + c2*(cur[i-1]-2*cur[i]+cur[i+1])
	}
}

// Integrator computes the interior of a grid, optionally split across
// goroutines.
type Integrator struct {
	Threads  int
	MinChunk int
}

// Apply updates every interior cell of g. All goroutines have returned
// before Apply does.
func (in Integrator) Apply(g *Grid, c2 float64) {
	lo, hi := 1, g.Len()-2
	if hi < lo {
		return
	}
	n := hi - lo + 1
	size := in.MinChunk
	if size <= 0 {
		size = DefaultMinChunk
	}
	workers := in.Threads
	if limit := n / size; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		Interior(g.prev, g.cur, g.next, lo, hi, c2)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := lo; start <= hi; start += chunk {
		end := start + chunk - 1
		if end > hi {
			end = hi
		}
		wg.Add(1)
		go func(a, b int) {
			defer wg.Done()
			Interior(g.prev, g.cur, g.next, a, b, c2)
		}(start, end)
	}
	wg.Wait()
}
