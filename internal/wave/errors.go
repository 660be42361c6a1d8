package wave

import (
	"errors"

	"wave1d/internal/comm"
)

// Error classes. Every failure is fatal for the run; callers classify with
// errors.Is and report.
var (
	// ErrConfig marks an invalid parameter set.
	ErrConfig = errors.New("wave: invalid configuration")
	// ErrTopology marks an unusable worker layout.
	ErrTopology = errors.New("wave: invalid topology")
	// ErrCommunication marks a failed halo exchange, gather or broadcast.
	ErrCommunication = comm.ErrCommunication
	// ErrState marks a controller call made in the wrong lifecycle state.
	ErrState = errors.New("wave: invalid controller state")
	// ErrResource marks a refused grid allocation.
	ErrResource = errors.New("wave: resource exhausted")
)
