package wave

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"wave1d/internal/bench"
	"wave1d/internal/comm"
	"wave1d/internal/metrics"
)

// NoHold means no grid point is pinned.
const NoHold = -1

// State is the lifecycle phase of a Controller.
type State int

const (
	Uninitialized State = iota
	Ready
	Running
	TornDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case TornDown:
		return "torn down"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records steps, exchanges and gathers into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithThreads fans the interior update out over n goroutines.
func WithThreads(n int) Option {
	return func(c *Controller) { c.integ.Threads = n }
}

// WithChunkSize sets the smallest interior range worth a goroutine.
func WithChunkSize(n int) Option {
	return func(c *Controller) { c.integ.MinChunk = n }
}

// Controller drives one worker of a run: it owns the worker's grid and, on
// the coordinator, the global assembly buffer.
type Controller struct {
	ep      comm.Endpoint
	logger  *slog.Logger
	metrics *metrics.Metrics
	obs     *metrics.Rank
	integ   Integrator

	params  Params
	derived Derived
	part    Partition
	layout  []Partition
	grid    *Grid
	global  []float64

	step  int
	held  int
	state State
}

// NewController binds a controller to a message endpoint.
func NewController(ep comm.Endpoint, opts ...Option) *Controller {
	c := &Controller{
		ep:     ep,
		logger: slog.Default(),
		held:   NoHold,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("rank", ep.Rank())
	c.obs = c.metrics.ForRank(ep.Rank())
	return c
}

// Initialize allocates the grid for part and fills it with the initial
// condition. p must already be validated.
func (c *Controller) Initialize(p Params, part Partition) error {
	if c.state != Uninitialized {
		return fmt.Errorf("wave.Controller.Initialize: %s: %w", c.state, ErrState)
	}
	if part.Rank != c.ep.Rank() || part.Size != c.ep.Size() {
		return fmt.Errorf("wave.Controller.Initialize: partition %d/%d on endpoint %d/%d: %w",
			part.Rank, part.Size, c.ep.Rank(), c.ep.Size(), ErrTopology)
	}
	want, err := NewPartition(part.Rank, part.Size, p.Points)
	if err != nil {
		return fmt.Errorf("wave.Controller.Initialize: %w", err)
	}
	if want != part {
		return fmt.Errorf("wave.Controller.Initialize: partition %+v does not match %d points: %w", part, p.Points, ErrTopology)
	}
	grid, err := NewGrid(part.Count)
	if err != nil {
		return fmt.Errorf("wave.Controller.Initialize: %w", err)
	}
	if part.Rank == comm.Coordinator {
		if p.Points > MaxPoints {
			return fmt.Errorf("wave.Controller.Initialize: global buffer of %d: %w", p.Points, ErrResource)
		}
		c.layout, err = Partitions(part.Size, p.Points)
		if err != nil {
			return fmt.Errorf("wave.Controller.Initialize: %w", err)
		}
		c.global = make([]float64, p.Points)
	}
	c.params = p
	c.derived = p.Derive()
	c.part = part
	c.grid = grid
	c.fill()
	c.state = Ready
	c.logger.Debug("initialized", "start", part.Start, "end", part.End, "courant", c.derived.Courant)
	return nil
}

func (c *Controller) fill() {
	c.grid.Fill(func(i int) float64 { return c.derived.Initial(c.part.Global(i)) })
	for g := range c.global {
		c.global[g] = c.derived.Initial(g)
	}
	c.step = 1
	c.held = NoHold
}

func (c *Controller) active(op string) error {
	if c.state != Ready && c.state != Running {
		return fmt.Errorf("wave.Controller.%s: %s: %w", op, c.state, ErrState)
	}
	return nil
}

// Step advances the worker by one time step: interior update, held point,
// halo exchange and layer rotation.
func (c *Controller) Step(ctx context.Context) error {
	if err := c.active("Step"); err != nil {
		return err
	}
	c.state = Running
	begin := time.Now()

	c.integ.Apply(c.grid, c.derived.CourantSquared)
	if c.held != NoHold && c.held > c.part.Start && c.held < c.part.End {
		h := c.part.Local(c.held)
		c.grid.next[h] = c.grid.cur[h]
	}
	if err := c.exchange(ctx); err != nil {
		return err
	}
	c.grid.Rotate()
	c.step++
	c.obs.Step(time.Since(begin))
	return nil
}

// exchange resolves both halo cells of the next layer: left first, then
// right. Edge workers clamp the global endpoints instead.
func (c *Controller) exchange(ctx context.Context) error {
	next := c.grid.next
	n := len(next)
	if c.part.First() {
		next[0] = 0
	} else {
		begin := time.Now()
		v, err := c.ep.Exchange(ctx, c.part.Rank-1, next[1])
		if err != nil {
			return fmt.Errorf("wave.Controller.Step: left halo at step %d: %w", c.step, err)
		}
		next[0] = v
		c.obs.Halo(true, time.Since(begin))
	}
	if c.part.Last() {
		next[n-1] = 0
	} else {
		begin := time.Now()
		v, err := c.ep.Exchange(ctx, c.part.Rank+1, next[n-2])
		if err != nil {
			return fmt.Errorf("wave.Controller.Step: right halo at step %d: %w", c.step, err)
		}
		next[n-1] = v
		c.obs.Halo(false, time.Since(begin))
	}
	return nil
}

// Gather assembles the current layer of every worker in the coordinator's
// global buffer. Other workers send their segment and return.
func (c *Controller) Gather(ctx context.Context) error {
	if err := c.active("Gather"); err != nil {
		return err
	}
	begin := time.Now()
	if c.part.Rank != comm.Coordinator {
		seg := comm.Segment{Start: c.part.Start, Values: c.grid.cur}
		if err := c.ep.SendSegment(ctx, seg); err != nil {
			return fmt.Errorf("wave.Controller.Gather: %w", err)
		}
		c.obs.Gather(time.Since(begin))
		return nil
	}
	copy(c.global[c.part.Start:], c.grid.cur)
	for r := 1; r < c.part.Size; r++ {
		seg, err := c.ep.RecvSegment(ctx, r)
		if err != nil {
			return fmt.Errorf("wave.Controller.Gather: %w", err)
		}
		want := c.layout[r]
		if seg.Start != want.Start || len(seg.Values) != want.Count {
			return fmt.Errorf("wave.Controller.Gather: rank %d sent [%d,+%d), expected [%d,+%d): %w",
				r, seg.Start, len(seg.Values), want.Start, want.Count, ErrCommunication)
		}
		copy(c.global[seg.Start:], seg.Values)
	}
	c.obs.Gather(time.Since(begin))
	return nil
}

// Advance runs steps-1 integrator steps from the current state, gathers and
// returns the elapsed wall-clock time. steps == 0 uses Params.TimeSteps.
func (c *Controller) Advance(ctx context.Context, steps int) (time.Duration, error) {
	if err := c.active("Advance"); err != nil {
		return 0, err
	}
	if steps == 0 {
		steps = c.params.TimeSteps
	}
	c.state = Running
	begin := time.Now()
	for i := 1; i < steps; i++ {
		if err := c.Step(ctx); err != nil {
			return time.Since(begin), fmt.Errorf("wave.Controller.Advance: %w", err)
		}
	}
	if err := c.Gather(ctx); err != nil {
		return time.Since(begin), fmt.Errorf("wave.Controller.Advance: %w", err)
	}
	return time.Since(begin), nil
}

// Hold pins global index g on subsequent steps.
func (c *Controller) Hold(g int) {
	if g < 0 || g >= c.params.Points {
		g = NoHold
	}
	c.held = g
}

// Release unpins the held point.
func (c *Controller) Release() { c.held = NoHold }

// Held returns the pinned global index or NoHold.
func (c *Controller) Held() int { return c.held }

// Reset restores the initial condition without reallocating. The step
// counter returns to 1 and the held point is released. On the coordinator
// the global buffer is refilled too, so Snapshot reflects the reset without a
// gather.
func (c *Controller) Reset() error {
	if err := c.active("Reset"); err != nil {
		return err
	}
	c.fill()
	c.state = Ready
	c.obs.Reset()
	return nil
}

// RunBenchmark runs trials rounds of Advance followed by Reset. Every worker
// takes part; the coordinator reports each trial and the summary to sink.
func (c *Controller) RunBenchmark(ctx context.Context, trials int, sink bench.Sink) (bench.Summary, error) {
	if err := c.active("RunBenchmark"); err != nil {
		return bench.Summary{}, err
	}
	if trials <= 0 {
		trials = bench.DefaultTrials
	}
	if sink == nil {
		sink = bench.Discard
	}
	times := make([]float64, 0, trials)
	for i := 0; i < trials; i++ {
		d, err := c.Advance(ctx, 0)
		if err != nil {
			return bench.Summary{}, fmt.Errorf("wave.Controller.RunBenchmark: trial %d: %w", i, err)
		}
		if err := c.Reset(); err != nil {
			return bench.Summary{}, fmt.Errorf("wave.Controller.RunBenchmark: %w", err)
		}
		times = append(times, d.Seconds())
		if c.part.Rank == comm.Coordinator {
			c.obs.Trial(d)
		}
		c.logger.Debug("benchmark trial", "trial", i, "seconds", d.Seconds())
	}
	sum := bench.Summarize(c.params.TimeSteps, c.params.Points, times)
	if c.part.Rank != comm.Coordinator {
		return sum, nil
	}
	for i, t := range sum.Times {
		if err := sink.Trial(i, t); err != nil {
			return sum, fmt.Errorf("wave.Controller.RunBenchmark: write trial: %w", err)
		}
	}
	if err := sink.Summary(sum); err != nil {
		return sum, fmt.Errorf("wave.Controller.RunBenchmark: write summary: %w", err)
	}
	c.obs.Benchmark(sum.Mean, sum.StdDev)
	c.logger.Info("benchmark finished", "trials", sum.Trials(), "mean", sum.Mean, "stddev", sum.StdDev)
	return sum, nil
}

// Teardown releases the grid and the global buffer.
func (c *Controller) Teardown() error {
	if c.state == TornDown {
		return fmt.Errorf("wave.Controller.Teardown: %w", ErrState)
	}
	c.grid = nil
	c.global = nil
	c.layout = nil
	c.state = TornDown
	return nil
}

// Snapshot returns the coordinator's global buffer as of the last gather or
// reset. It is nil on other workers. Callers must not modify it.
func (c *Controller) Snapshot() []float64 { return c.global }

// Local returns the worker's current layer.
func (c *Controller) Local() []float64 {
	if c.grid == nil {
		return nil
	}
	return c.grid.cur
}

// Name identifies the simulation.
func (c *Controller) Name() string { return "wave" }

// PointCount returns the global number of points.
func (c *Controller) PointCount() int { return c.params.Points }

// StepCount returns the 1-based step counter.
func (c *Controller) StepCount() int { return c.step }

// DampingFactor returns exp(-StepCount*Lambda), used to scale the display.
func (c *Controller) DampingFactor() float64 {
	return math.Exp(-float64(c.step) * c.params.Lambda)
}

// Params returns the run configuration.
func (c *Controller) Params() Params { return c.params }

// Derived returns the quantities computed at initialization.
func (c *Controller) Derived() Derived { return c.derived }

// Partition returns the worker's segment.
func (c *Controller) Partition() Partition { return c.part }

// Rank returns the worker index.
func (c *Controller) Rank() int { return c.ep.Rank() }

// State returns the lifecycle phase.
func (c *Controller) State() State { return c.state }
