package wave

import (
	"errors"
	"testing"
)

func TestPartitionsTileGrid(t *testing.T) {
	for _, points := range []int{3, 5, 17, 100, 1000, 1001} {
		for size := 2; size <= 8 && size <= points-1; size++ {
			parts, err := Partitions(size, points)
			if err != nil {
				t.Fatalf("Partitions(%d, %d): %v", size, points, err)
			}
			seen := make([]int, points)
			for _, p := range parts {
				if p.Count != p.End-p.Start+1 {
					t.Fatalf("rank %d count %d for [%d,%d]", p.Rank, p.Count, p.Start, p.End)
				}
				lo, hi := p.Owned()
				for g := lo; g <= hi; g++ {
					seen[g]++
				}
			}
			for g, n := range seen {
				if n != 1 {
					t.Fatalf("size %d points %d: index %d owned %d times", size, points, g, n)
				}
			}
		}
	}
}

func TestPartitionsShareHaloCells(t *testing.T) {
	parts, err := Partitions(4, 100)
	if err != nil {
		t.Fatalf("Partitions: %v", err)
	}
	if parts[0].Start != 0 || parts[3].End != 99 {
		t.Fatalf("outer bounds [%d, %d]", parts[0].Start, parts[3].End)
	}
	for r := 0; r+1 < len(parts); r++ {
		left, right := parts[r], parts[r+1]
		// The right worker's first cell is the left worker's last interior
		// cell and vice versa.
		if right.Start != left.End-1 {
			t.Fatalf("rank %d start %d, rank %d end %d", r+1, right.Start, r, left.End)
		}
	}
}

func TestPartitionSingleWorker(t *testing.T) {
	p, err := NewPartition(0, 1, 10)
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	if p.Start != 0 || p.End != 9 || p.Count != 10 {
		t.Fatalf("got %+v", p)
	}
	if !p.First() || !p.Last() {
		t.Fatal("single worker must hold both endpoints")
	}
	lo, hi := p.Owned()
	if lo != 0 || hi != 9 {
		t.Fatalf("owned [%d, %d]", lo, hi)
	}
}

func TestPartitionIndexConversion(t *testing.T) {
	p, err := NewPartition(2, 4, 101)
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	if p.Start != 49 || p.End != 75 {
		t.Fatalf("got [%d, %d], want [49, 75]", p.Start, p.End)
	}
	if p.Global(p.Local(60)) != 60 || p.Local(p.Start) != 0 {
		t.Fatal("index conversion is not an inverse")
	}
	if !p.Contains(49) || p.Contains(76) {
		t.Fatal("Contains disagrees with bounds")
	}
}

func TestPartitionErrors(t *testing.T) {
	cases := []struct{ rank, size, points int }{
		{0, 0, 10},
		{-1, 2, 10},
		{2, 2, 10},
		{0, 1, 0},
		{0, 4, 4},
	}
	for _, tc := range cases {
		if _, err := NewPartition(tc.rank, tc.size, tc.points); !errors.Is(err, ErrTopology) {
			t.Fatalf("NewPartition(%d, %d, %d) = %v, want ErrTopology", tc.rank, tc.size, tc.points, err)
		}
	}
}

func TestRequireDistributed(t *testing.T) {
	if err := RequireDistributed(1); !errors.Is(err, ErrTopology) {
		t.Fatalf("one worker: %v", err)
	}
	if err := RequireDistributed(2); err != nil {
		t.Fatalf("two workers: %v", err)
	}
}
