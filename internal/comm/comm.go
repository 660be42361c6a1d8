// Package comm carries the point-to-point traffic of a distributed wave run:
// halo values between neighbouring workers, segments gathered at the
// coordinator and the control signals broadcast by the coordinator while a
// viewer drives the run.
//
// Every worker holds one Endpoint. Endpoints are created either by an
// in-process Mesh (one goroutine per worker) or by a NATS connection (one OS
// process per worker). Both satisfy the same ordering guarantees: messages
// between a given pair of ranks are delivered in the order they were sent and
// a send never waits for the matching receive, so the fixed left-then-right
// exchange order used by the integrator cannot deadlock.
package comm

import (
	"context"
	"errors"
	"fmt"
)

// Coordinator is the rank that assembles the global snapshot.
const Coordinator = 0

// MaxSegmentLen bounds the number of values a received segment may announce.
const MaxSegmentLen = 10_000_000

// ErrCommunication classifies every transport failure. A failed exchange
// invalidates all later steps, so callers treat it as fatal.
var ErrCommunication = errors.New("comm: communication failure")

// Segment is a contiguous run of grid values starting at a global index.
type Segment struct {
	Start  int
	Values []float64
}

// Signal is the control word the coordinator broadcasts to all workers.
type Signal struct {
	Pause bool
	Reset bool
	Quit  bool
	Held  int
}

// Endpoint is one worker's view of the message fabric.
type Endpoint interface {
	// Rank returns the worker index, 0 <= Rank < Size.
	Rank() int
	// Size returns the number of workers in the run.
	Size() int
	// Exchange sends out to the neighbour and returns the value the
	// neighbour sent back for the same step.
	Exchange(ctx context.Context, neighbor int, out float64) (float64, error)
	// SendSegment ships a segment to the coordinator.
	SendSegment(ctx context.Context, seg Segment) error
	// RecvSegment receives the next segment sent by rank from. Only the
	// coordinator calls it.
	RecvSegment(ctx context.Context, from int) (Segment, error)
	// Broadcast distributes the coordinator's signal. The coordinator's
	// argument is returned unchanged; every other rank ignores its argument
	// and returns the coordinator's.
	Broadcast(ctx context.Context, sig Signal) (Signal, error)
	// Close releases the endpoint.
	Close() error
}

// LinkError describes a failed operation between two ranks.
type LinkError struct {
	Op   string
	Rank int
	Peer int
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("comm: %s rank %d <-> %d: %v", e.Op, e.Rank, e.Peer, e.Err)
}

func (e *LinkError) Unwrap() []error {
	return []error{ErrCommunication, e.Err}
}

func linkErr(op string, rank, peer int, err error) error {
	return &LinkError{Op: op, Rank: rank, Peer: peer, Err: err}
}

// checkPeer validates a peer rank against the run size.
func checkPeer(op string, rank, size, peer int) error {
	if peer < 0 || peer >= size || peer == rank {
		return linkErr(op, rank, peer, fmt.Errorf("invalid peer for size %d", size))
	}
	return nil
}
