// Package wave integrates the 1-D wave equation with an explicit leapfrog
// scheme on a line split across cooperating workers. Each worker owns a
// contiguous segment with one halo cell per live neighbour, exchanges halo
// values after every step and ships its segment to the coordinator when a
// snapshot is gathered.
package wave

import (
	"fmt"
	"math"
	"strconv"

	"wave1d/internal/comm"
	"wave1d/internal/core"
)

const (
	// MaxPoints bounds the global grid size.
	MaxPoints = comm.MaxSegmentLen
	// MaxLambda bounds the damping coefficient.
	MaxLambda = 0.1
)

// Params is the validated scalar configuration of a run.
type Params struct {
	WaveSpeed   float64
	TimeSteps   int
	IntervalEnd int
	Points      int
	Periods     int
	Amplitude   float64
	Lambda      float64
}

// DefaultParams returns the standard configuration.
func DefaultParams() Params {
	return Params{
		WaveSpeed:   0.9,
		TimeSteps:   1000,
		IntervalEnd: 1000,
		Points:      1000,
		Periods:     5,
		Amplitude:   250,
		Lambda:      0,
	}
}

// Validate reports the first invalid value. interactive allows TimeSteps == 0,
// which means "run until the viewer quits".
func (p Params) Validate(interactive bool) error {
	switch {
	case !(p.WaveSpeed > 0 && p.WaveSpeed < 1):
		return fmt.Errorf("wave.Params.Validate: speed %v outside (0, 1): %w", p.WaveSpeed, ErrConfig)
	case p.TimeSteps < 0:
		return fmt.Errorf("wave.Params.Validate: negative steps %d: %w", p.TimeSteps, ErrConfig)
	case p.TimeSteps == 0 && !interactive:
		return fmt.Errorf("wave.Params.Validate: zero steps requires the viewer: %w", ErrConfig)
	case p.IntervalEnd < 1:
		return fmt.Errorf("wave.Params.Validate: interval end %d below 1: %w", p.IntervalEnd, ErrConfig)
	case p.Points <= 0 || p.Points > MaxPoints:
		return fmt.Errorf("wave.Params.Validate: points %d outside [1, %d]: %w", p.Points, MaxPoints, ErrConfig)
	case p.Periods < 1:
		return fmt.Errorf("wave.Params.Validate: periods %d below 1: %w", p.Periods, ErrConfig)
	case !(p.Amplitude >= 1):
		return fmt.Errorf("wave.Params.Validate: amplitude %v below 1: %w", p.Amplitude, ErrConfig)
	case !(p.Lambda >= 0 && p.Lambda <= MaxLambda):
		return fmt.Errorf("wave.Params.Validate: lambda %v outside [0, %v]: %w", p.Lambda, MaxLambda, ErrConfig)
	}
	return nil
}

// Derived holds the quantities computed once from Params. The time step is 1.
type Derived struct {
	DeltaX         float64
	Courant        float64
	CourantSquared float64

	amplitude float64
	wavenum   float64
}

// Derive computes the grid spacing, Courant number and initial-condition
// constants.
func (p Params) Derive() Derived {
	dx := float64(p.IntervalEnd) / float64(p.Points)
	c := (1.0 / dx) * p.WaveSpeed
	span := float64(p.IntervalEnd - 1)
	if span == 0 {
		span = 1
	}
	return Derived{
		DeltaX:         dx,
		Courant:        c,
		CourantSquared: c * c,
		amplitude:      p.Amplitude,
		wavenum:        2 * math.Pi * float64(p.Periods) / span,
	}
}

// Initial evaluates the initial condition at global index g.
func (d Derived) Initial(g int) float64 {
	x := float64(g) * d.DeltaX
	return d.amplitude * math.Sin(d.wavenum*x)
}

// FromMap applies key=value overrides on top of p.
func (p Params) FromMap(cfg map[string]string) (Params, error) {
	for key, v := range cfg {
		var err error
		switch key {
		case "speed":
			p.WaveSpeed, err = strconv.ParseFloat(v, 64)
		case "steps":
			p.TimeSteps, err = strconv.Atoi(v)
		case "interval_end":
			p.IntervalEnd, err = strconv.Atoi(v)
		case "points":
			p.Points, err = strconv.Atoi(v)
		case "periods":
			p.Periods, err = strconv.Atoi(v)
		case "amplitude":
			p.Amplitude, err = strconv.ParseFloat(v, 64)
		case "lambda":
			p.Lambda, err = strconv.ParseFloat(v, 64)
		default:
			return p, fmt.Errorf("wave.Params.FromMap: unknown key %q: %w", key, ErrConfig)
		}
		if err != nil {
			return p, fmt.Errorf("wave.Params.FromMap: %s=%q: %w", key, v, ErrConfig)
		}
	}
	return p, nil
}

// Parameters exposes the run configuration to the HUD.
func (p Params) Parameters() core.ParameterSnapshot {
	d := p.Derive()
	return core.ParameterSnapshot{
		Groups: []core.ParameterGroup{
			{
				Name: "Wave",
				Params: []core.Parameter{
					floatParam("speed", "Wave speed", p.WaveSpeed),
					floatParam("amplitude", "Amplitude", p.Amplitude),
					intParam("periods", "Periods", p.Periods),
					floatParam("lambda", "Damping", p.Lambda),
				},
			},
			{
				Name: "Grid",
				Params: []core.Parameter{
					intParam("points", "Points", p.Points),
					intParam("interval_end", "Interval end", p.IntervalEnd),
					intParam("steps", "Time steps", p.TimeSteps),
				},
			},
			{
				Name:    "Derived",
				Summary: "Computed once per run",
				Params: []core.Parameter{
					floatParam("delta_x", "Delta x", d.DeltaX),
					floatParam("courant", "Courant", d.Courant),
				},
			},
		},
	}
}

func intParam(key, label string, v int) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeInt, Value: strconv.Itoa(v)}
}

func floatParam(key, label string, v float64) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeFloat, Value: strconv.FormatFloat(v, 'g', 6, 64)}
}
