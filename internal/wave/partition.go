package wave

import "fmt"

// Partition is one worker's contiguous slice of the global grid. Start and
// End are inclusive global indices; a non-first worker's Start is shifted
// left by one to hold the halo cell of its left neighbour.
type Partition struct {
	Rank  int
	Size  int
	Start int
	End   int
	Count int
}

func boundary(r, size, points int) int {
	return r * (points - 1) / size
}

// NewPartition computes the segment of worker rank among size workers.
func NewPartition(rank, size, points int) (Partition, error) {
	switch {
	case size < 1:
		return Partition{}, fmt.Errorf("wave.NewPartition: size %d: %w", size, ErrTopology)
	case rank < 0 || rank >= size:
		return Partition{}, fmt.Errorf("wave.NewPartition: rank %d of %d: %w", rank, size, ErrTopology)
	case points < 1:
		return Partition{}, fmt.Errorf("wave.NewPartition: %d points: %w", points, ErrTopology)
	case size > 1 && points-1 < size:
		return Partition{}, fmt.Errorf("wave.NewPartition: %d points cannot feed %d workers: %w", points, size, ErrTopology)
	}
	p := Partition{
		Rank:  rank,
		Size:  size,
		Start: boundary(rank, size, points),
		End:   boundary(rank+1, size, points),
	}
	if rank > 0 {
		p.Start--
	}
	p.Count = p.End - p.Start + 1
	return p, nil
}

// Partitions returns the segments of every worker ordered by rank.
func Partitions(size, points int) ([]Partition, error) {
	if size < 1 {
		return nil, fmt.Errorf("wave.Partitions: size %d: %w", size, ErrTopology)
	}
	out := make([]Partition, size)
	for r := range out {
		p, err := NewPartition(r, size, points)
		if err != nil {
			return nil, err
		}
		out[r] = p
	}
	return out, nil
}

// RequireDistributed rejects a distributed layout without a single exchange
// pair.
func RequireDistributed(size int) error {
	if size < 2 {
		return fmt.Errorf("wave.RequireDistributed: %d workers: %w", size, ErrTopology)
	}
	return nil
}

// First reports whether the worker holds the left global endpoint.
func (p Partition) First() bool { return p.Rank == 0 }

// Last reports whether the worker holds the right global endpoint.
func (p Partition) Last() bool { return p.Rank == p.Size-1 }

// Owned returns the inclusive global range this worker writes. Halo cells
// belong to the neighbour, so owned ranges of all workers tile the grid.
func (p Partition) Owned() (lo, hi int) {
	lo, hi = p.Start+1, p.End-1
	if p.First() {
		lo = p.Start
	}
	if p.Last() {
		hi = p.End
	}
	return lo, hi
}

// Contains reports whether global index g lies in the segment.
func (p Partition) Contains(g int) bool { return g >= p.Start && g <= p.End }

// Local converts a global index to a local one.
func (p Partition) Local(g int) int { return g - p.Start }

// Global converts a local index to a global one.
func (p Partition) Global(i int) int { return p.Start + i }
