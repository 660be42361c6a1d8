package comm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// linkDepth bounds the number of in-flight messages per directed link. A
// worker can run at most one step ahead of its neighbour, so two halo values
// per direction are the most that are ever queued.
const linkDepth = 4

var errMeshClosed = errors.New("mesh shut down")

// Mesh connects a fixed number of in-process endpoints with buffered
// channels, one per directed pair and message kind.
type Mesh struct {
	size    int
	timeout time.Duration

	halo    [][]chan float64
	segment []chan Segment
	signal  []chan Signal

	done     chan struct{}
	shutdown sync.Once
	eps      []*MeshEndpoint
}

// MeshOption configures a Mesh.
type MeshOption func(*Mesh)

// WithReceiveTimeout fails any receive that waits longer than d. Zero waits
// forever.
func WithReceiveTimeout(d time.Duration) MeshOption {
	return func(m *Mesh) { m.timeout = d }
}

// NewMesh builds a mesh of size endpoints.
func NewMesh(size int, opts ...MeshOption) (*Mesh, error) {
	if size < 1 {
		return nil, fmt.Errorf("comm.NewMesh: size %d: %w", size, ErrCommunication)
	}
	m := &Mesh{
		size:    size,
		halo:    make([][]chan float64, size),
		segment: make([]chan Segment, size),
		signal:  make([]chan Signal, size),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	for src := 0; src < size; src++ {
		m.halo[src] = make([]chan float64, size)
		for dst := 0; dst < size; dst++ {
			if src-dst == 1 || dst-src == 1 {
				m.halo[src][dst] = make(chan float64, linkDepth)
			}
		}
		m.segment[src] = make(chan Segment, linkDepth)
		m.signal[src] = make(chan Signal, linkDepth)
	}
	m.eps = make([]*MeshEndpoint, size)
	for r := range m.eps {
		m.eps[r] = &MeshEndpoint{mesh: m, rank: r}
	}
	return m, nil
}

// Endpoint returns the endpoint for rank.
func (m *Mesh) Endpoint(rank int) *MeshEndpoint { return m.eps[rank] }

// Endpoints returns all endpoints ordered by rank.
func (m *Mesh) Endpoints() []*MeshEndpoint { return m.eps }

// Size returns the number of endpoints.
func (m *Mesh) Size() int { return m.size }

// Shutdown unblocks every pending and future operation with an error.
func (m *Mesh) Shutdown() {
	m.shutdown.Do(func() { close(m.done) })
}

// MeshEndpoint is a single rank attached to a Mesh.
type MeshEndpoint struct {
	mesh *Mesh
	rank int
}

// Rank returns the endpoint's rank.
func (e *MeshEndpoint) Rank() int { return e.rank }

// Size returns the mesh size.
func (e *MeshEndpoint) Size() int { return e.mesh.size }

// Exchange sends out to neighbor and waits for the neighbour's value.
func (e *MeshEndpoint) Exchange(ctx context.Context, neighbor int, out float64) (float64, error) {
	if err := checkPeer("exchange", e.rank, e.mesh.size, neighbor); err != nil {
		return 0, err
	}
	link := e.mesh.halo[e.rank][neighbor]
	if link == nil {
		return 0, linkErr("exchange", e.rank, neighbor, errors.New("ranks are not neighbours"))
	}
	if err := send(ctx, e.mesh, link, out); err != nil {
		return 0, linkErr("exchange send", e.rank, neighbor, err)
	}
	in, err := recv(ctx, e.mesh, e.mesh.halo[neighbor][e.rank])
	if err != nil {
		return 0, linkErr("exchange recv", e.rank, neighbor, err)
	}
	return in, nil
}

// SendSegment queues a copy of seg for the coordinator.
func (e *MeshEndpoint) SendSegment(ctx context.Context, seg Segment) error {
	if e.rank == Coordinator {
		return linkErr("send segment", e.rank, Coordinator, errors.New("coordinator gathers locally"))
	}
	out := Segment{Start: seg.Start, Values: append([]float64(nil), seg.Values...)}
	if err := send(ctx, e.mesh, e.mesh.segment[e.rank], out); err != nil {
		return linkErr("send segment", e.rank, Coordinator, err)
	}
	return nil
}

// RecvSegment receives the next segment from rank from.
func (e *MeshEndpoint) RecvSegment(ctx context.Context, from int) (Segment, error) {
	if err := checkPeer("recv segment", e.rank, e.mesh.size, from); err != nil {
		return Segment{}, err
	}
	seg, err := recv(ctx, e.mesh, e.mesh.segment[from])
	if err != nil {
		return Segment{}, linkErr("recv segment", e.rank, from, err)
	}
	return seg, nil
}

// Broadcast fans the coordinator's signal out to every other rank.
func (e *MeshEndpoint) Broadcast(ctx context.Context, sig Signal) (Signal, error) {
	if e.rank == Coordinator {
		for r := 1; r < e.mesh.size; r++ {
			if err := send(ctx, e.mesh, e.mesh.signal[r], sig); err != nil {
				return Signal{}, linkErr("broadcast", e.rank, r, err)
			}
		}
		return sig, nil
	}
	got, err := recv(ctx, e.mesh, e.mesh.signal[e.rank])
	if err != nil {
		return Signal{}, linkErr("broadcast", e.rank, Coordinator, err)
	}
	return got, nil
}

// Close is a no-op; the mesh owns the channels.
func (e *MeshEndpoint) Close() error { return nil }

func send[T any](ctx context.Context, m *Mesh, ch chan T, v T) error {
	select {
	case <-m.done:
		return errMeshClosed
	default:
	}
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return errMeshClosed
	}
}

func recv[T any](ctx context.Context, m *Mesh, ch chan T) (T, error) {
	var zero T
	var expired <-chan time.Time
	if m.timeout > 0 {
		t := time.NewTimer(m.timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-m.done:
		return zero, errMeshClosed
	case <-expired:
		return zero, fmt.Errorf("no message within %s", m.timeout)
	}
}
