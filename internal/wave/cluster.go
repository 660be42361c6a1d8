package wave

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"wave1d/internal/comm"
)

// Cluster runs a whole distributed computation inside one process: one
// goroutine per worker connected by a channel mesh.
type Cluster struct {
	Size    int
	Params  Params
	Timeout time.Duration
	Options []Option
}

// Run initializes a controller per worker and calls fn on each of them
// concurrently. The first failure cancels the context of every other
// worker, so a broken exchange aborts the whole run.
func (cl Cluster) Run(ctx context.Context, fn func(ctx context.Context, c *Controller) error) error {
	if cl.Size < 1 {
		return fmt.Errorf("wave.Cluster.Run: size %d: %w", cl.Size, ErrTopology)
	}
	mesh, err := comm.NewMesh(cl.Size, comm.WithReceiveTimeout(cl.Timeout))
	if err != nil {
		return fmt.Errorf("wave.Cluster.Run: %w", err)
	}
	defer mesh.Shutdown()

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range mesh.Endpoints() {
		ep := ep
		g.Go(func() error {
			part, err := NewPartition(ep.Rank(), cl.Size, cl.Params.Points)
			if err != nil {
				return err
			}
			c := NewController(ep, cl.Options...)
			if err := c.Initialize(cl.Params, part); err != nil {
				return err
			}
			defer c.Teardown()
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", ep.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// RunCluster is Cluster{Size: size, Params: p, Options: opts}.Run(ctx, fn).
func RunCluster(ctx context.Context, size int, p Params, fn func(ctx context.Context, c *Controller) error, opts ...Option) error {
	return Cluster{Size: size, Params: p, Options: opts}.Run(ctx, fn)
}

// Detached is an in-process run whose coordinator is driven by the caller,
// typically from the main goroutine of a windowed viewer.
type Detached struct {
	// Ctx is cancelled when any background worker fails.
	Ctx         context.Context
	Coordinator *Controller

	g    *errgroup.Group
	mesh *comm.Mesh
}

// Detach initializes every worker, runs fn for all but the coordinator in
// the background and hands the coordinator back to the caller.
func (cl Cluster) Detach(ctx context.Context, fn func(ctx context.Context, c *Controller) error) (*Detached, error) {
	if cl.Size < 1 {
		return nil, fmt.Errorf("wave.Cluster.Detach: size %d: %w", cl.Size, ErrTopology)
	}
	mesh, err := comm.NewMesh(cl.Size, comm.WithReceiveTimeout(cl.Timeout))
	if err != nil {
		return nil, fmt.Errorf("wave.Cluster.Detach: %w", err)
	}
	ctrls := make([]*Controller, cl.Size)
	for _, ep := range mesh.Endpoints() {
		part, err := NewPartition(ep.Rank(), cl.Size, cl.Params.Points)
		if err != nil {
			return nil, fmt.Errorf("wave.Cluster.Detach: %w", err)
		}
		c := NewController(ep, cl.Options...)
		if err := c.Initialize(cl.Params, part); err != nil {
			return nil, fmt.Errorf("wave.Cluster.Detach: %w", err)
		}
		ctrls[ep.Rank()] = c
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range ctrls[1:] {
		c := c
		g.Go(func() error {
			defer c.Teardown()
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return &Detached{Ctx: gctx, Coordinator: ctrls[0], g: g, mesh: mesh}, nil
}

// Abort unblocks every background worker with a communication error.
func (d *Detached) Abort() { d.mesh.Shutdown() }

// Wait blocks until the background workers return and releases the
// coordinator.
func (d *Detached) Wait() error {
	err := d.g.Wait()
	d.mesh.Shutdown()
	if d.Coordinator.State() != TornDown {
		d.Coordinator.Teardown()
	}
	return err
}
