package wave

import (
	"errors"
	"math"
	"testing"
)

func TestDeriveDefaults(t *testing.T) {
	d := DefaultParams().Derive()
	if d.DeltaX != 1 {
		t.Fatalf("DeltaX = %v, want 1", d.DeltaX)
	}
	if math.Abs(d.Courant-0.9) > 1e-15 {
		t.Fatalf("Courant = %v, want 0.9", d.Courant)
	}
	if math.Abs(d.CourantSquared-0.81) > 1e-15 {
		t.Fatalf("CourantSquared = %v, want 0.81", d.CourantSquared)
	}
}

func TestDeriveUsesRealDivision(t *testing.T) {
	p := DefaultParams()
	p.IntervalEnd = 10
	p.Points = 4
	d := p.Derive()
	if d.DeltaX != 2.5 {
		t.Fatalf("DeltaX = %v, want 2.5", d.DeltaX)
	}
	want := (p.WaveSpeed / 2.5) * (p.WaveSpeed / 2.5)
	if math.Abs(d.CourantSquared-want) > 1e-15 {
		t.Fatalf("CourantSquared = %v, want %v", d.CourantSquared, want)
	}
}

func TestInitialCondition(t *testing.T) {
	p := DefaultParams()
	d := p.Derive()
	if got := d.Initial(0); got != 0 {
		t.Fatalf("f(0) = %v, want 0", got)
	}
	for _, g := range []int{1, 50, 333, 998} {
		x := float64(g) * d.DeltaX
		want := p.Amplitude * math.Sin(2*math.Pi*x*float64(p.Periods)/float64(p.IntervalEnd-1))
		if got := d.Initial(g); math.Abs(got-want) > 1e-9 {
			t.Fatalf("f(%d) = %v, want %v", g, got, want)
		}
		if math.Abs(d.Initial(g)) > p.Amplitude {
			t.Fatalf("f(%d) exceeds amplitude", g)
		}
	}
}

func TestInitialConditionUnitInterval(t *testing.T) {
	p := DefaultParams()
	p.IntervalEnd = 1
	p.Points = 10
	d := p.Derive()
	for g := 0; g < p.Points; g++ {
		if v := d.Initial(g); math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("f(%d) = %v", g, v)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name        string
		mutate      func(*Params)
		interactive bool
		ok          bool
	}{
		{"defaults", func(*Params) {}, false, true},
		{"speed zero", func(p *Params) { p.WaveSpeed = 0 }, false, false},
		{"speed one", func(p *Params) { p.WaveSpeed = 1 }, false, false},
		{"speed nan", func(p *Params) { p.WaveSpeed = math.NaN() }, false, false},
		{"negative steps", func(p *Params) { p.TimeSteps = -1 }, true, false},
		{"zero steps batch", func(p *Params) { p.TimeSteps = 0 }, false, false},
		{"zero steps viewer", func(p *Params) { p.TimeSteps = 0 }, true, true},
		{"interval end", func(p *Params) { p.IntervalEnd = 0 }, false, false},
		{"no points", func(p *Params) { p.Points = 0 }, false, false},
		{"too many points", func(p *Params) { p.Points = MaxPoints + 1 }, false, false},
		{"max points", func(p *Params) { p.Points = MaxPoints }, false, true},
		{"periods", func(p *Params) { p.Periods = 0 }, false, false},
		{"amplitude", func(p *Params) { p.Amplitude = 0.5 }, false, false},
		{"negative lambda", func(p *Params) { p.Lambda = -0.01 }, false, false},
		{"large lambda", func(p *Params) { p.Lambda = MaxLambda + 0.01 }, false, false},
		{"max lambda", func(p *Params) { p.Lambda = MaxLambda }, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			err := p.Validate(tc.interactive)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrConfig) {
				t.Fatalf("got %v, want ErrConfig", err)
			}
		})
	}
}

func TestFromMap(t *testing.T) {
	p, err := DefaultParams().FromMap(map[string]string{
		"speed":        "0.5",
		"steps":        "20",
		"interval_end": "50",
		"points":       "64",
		"periods":      "2",
		"amplitude":    "10",
		"lambda":       "0.01",
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	want := Params{WaveSpeed: 0.5, TimeSteps: 20, IntervalEnd: 50, Points: 64, Periods: 2, Amplitude: 10, Lambda: 0.01}
	if p != want {
		t.Fatalf("got %+v, want %+v", p, want)
	}
}

func TestFromMapRejectsBadInput(t *testing.T) {
	if _, err := DefaultParams().FromMap(map[string]string{"points": "many"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("bad value: got %v", err)
	}
	if _, err := DefaultParams().FromMap(map[string]string{"colour": "red"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("unknown key: got %v", err)
	}
}

func TestParametersSnapshot(t *testing.T) {
	snap := DefaultParams().Parameters()
	keys := map[string]string{}
	for _, g := range snap.Groups {
		for _, p := range g.Params {
			keys[p.Key] = p.Value
		}
	}
	for key, want := range map[string]string{"speed": "0.9", "points": "1000", "courant": "0.9", "delta_x": "1"} {
		if keys[key] != want {
			t.Fatalf("%s = %q, want %q", key, keys[key], want)
		}
	}
}
