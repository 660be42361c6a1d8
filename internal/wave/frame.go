package wave

import (
	"context"
	"fmt"

	"wave1d/internal/comm"
)

// Directive is the viewer's request for one frame.
type Directive struct {
	Pause bool
	Reset bool
	Held  int
	Quit  bool
}

// Frame runs one viewer frame on the coordinator and reports whether the run
// continues. Two broadcasts keep every worker in lock-step: the first
// carries pause, reset and the held point, the second the quit decision.
func (c *Controller) Frame(ctx context.Context, d Directive) (bool, error) {
	if c.ep.Rank() != comm.Coordinator {
		return false, fmt.Errorf("wave.Controller.Frame: rank %d is not the coordinator: %w", c.ep.Rank(), ErrState)
	}
	return c.frame(ctx, d)
}

// Follow mirrors the coordinator's frames on a non-coordinator worker until
// the coordinator broadcasts quit.
func (c *Controller) Follow(ctx context.Context) error {
	if c.ep.Rank() == comm.Coordinator {
		return fmt.Errorf("wave.Controller.Follow: coordinator drives frames: %w", ErrState)
	}
	for {
		running, err := c.frame(ctx, Directive{Held: NoHold})
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
}

func (c *Controller) frame(ctx context.Context, d Directive) (bool, error) {
	if err := c.active("Frame"); err != nil {
		return false, err
	}
	sig, err := c.ep.Broadcast(ctx, comm.Signal{Pause: d.Pause, Reset: d.Reset, Held: d.Held})
	if err != nil {
		return false, fmt.Errorf("wave.Controller.Frame: control: %w", err)
	}
	if sig.Reset {
		if err := c.Reset(); err != nil {
			return false, err
		}
	}
	c.Hold(sig.Held)
	if !sig.Pause {
		if err := c.Step(ctx); err != nil {
			return false, fmt.Errorf("wave.Controller.Frame: %w", err)
		}
		if err := c.Gather(ctx); err != nil {
			return false, fmt.Errorf("wave.Controller.Frame: %w", err)
		}
	}
	quit := d.Quit || (c.params.TimeSteps > 0 && c.step >= c.params.TimeSteps)
	sig, err = c.ep.Broadcast(ctx, comm.Signal{Quit: quit, Held: NoHold})
	if err != nil {
		return false, fmt.Errorf("wave.Controller.Frame: quit: %w", err)
	}
	return !sig.Quit, nil
}
