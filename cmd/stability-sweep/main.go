// Command stability-sweep runs the integrator over a grid of wave speeds and
// point counts and reports which combinations diverge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"wave1d/internal/comm"
	"wave1d/internal/wave"
)

// divergenceFactor is how far above the initial amplitude a value may grow
// before the run counts as unstable.
const divergenceFactor = 10

type scenario struct {
	speed       float64
	points      int
	intervalEnd int
}

func (s scenario) String() string {
	return fmt.Sprintf("speed=%.3f points=%d interval_end=%d", s.speed, s.points, s.intervalEnd)
}

type scenarioResult struct {
	scenario
	courant  float64
	peak     float64
	diverged bool
	elapsed  time.Duration
}

func main() {
	steps := flag.Int("steps", 5000, "time steps per scenario")
	workers := flag.Int("workers", runtime.NumCPU(), "scenarios evaluated in parallel")
	ranks := flag.Int("ranks", 2, "in-process workers per scenario")
	speeds := flag.String("speeds", "0.5,0.9,0.99", "comma-separated wave speeds")
	points := flag.String("points", "100,1000,10000", "comma-separated point counts")
	intervalEnd := flag.Int("interval-end", 0, "right edge of the line (0 uses the point count)")
	flag.Parse()

	speedList, err := parseFloats(*speeds)
	if err != nil {
		log.Fatalf("-speeds: %v", err)
	}
	pointList, err := parseInts(*points)
	if err != nil {
		log.Fatalf("-points: %v", err)
	}

	var sets []scenario
	for _, s := range speedList {
		for _, n := range pointList {
			end := *intervalEnd
			if end <= 0 {
				end = n
			}
			sets = append(sets, scenario{speed: s, points: n, intervalEnd: end})
		}
	}

	fmt.Printf("Sweeping %d scenarios (%d workers, %d ranks, %d steps)\n", len(sets), *workers, *ranks, *steps)

	jobs := make(chan scenario)
	results := make(chan scenarioResult)
	g, ctx := errgroup.WithContext(context.Background())

	for i := 0; i < *workers; i++ {
		g.Go(func() error {
			for sc := range jobs {
				res, err := runScenario(ctx, sc, *ranks, *steps)
				if err != nil {
					return fmt.Errorf("%s: %w", sc, err)
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, sc := range sets {
			select {
			case jobs <- sc:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	start := time.Now()
	var all []scenarioResult
	for res := range results {
		all = append(all, res)
		if res.diverged {
			fmt.Printf("Diverged: %s (courant %.3f, peak %.3g)\n", res.scenario, res.courant, res.peak)
		}
	}
	if err := <-done; err != nil {
		log.Fatalf("sweep: %v", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].speed != all[j].speed {
			return all[i].speed < all[j].speed
		}
		return all[i].points < all[j].points
	})
	fmt.Printf("\n%-8s %-8s %-10s %-12s %-10s %s\n", "speed", "points", "courant", "peak", "stable", "time")
	unstable := 0
	for _, res := range all {
		if res.diverged {
			unstable++
		}
		fmt.Printf("%-8.3f %-8d %-10.4f %-12.4g %-10t %s\n",
			res.speed, res.points, res.courant, res.peak, !res.diverged, res.elapsed.Round(time.Millisecond))
	}
	fmt.Printf("\n%d of %d scenarios diverged in %s\n", unstable, len(all), time.Since(start).Round(time.Millisecond))
}

func runScenario(ctx context.Context, sc scenario, ranks, steps int) (scenarioResult, error) {
	p := wave.DefaultParams()
	p.WaveSpeed = sc.speed
	p.Points = sc.points
	p.IntervalEnd = sc.intervalEnd
	p.TimeSteps = steps
	if err := p.Validate(false); err != nil {
		return scenarioResult{}, err
	}
	if ranks > sc.points-1 {
		ranks = 1
	}

	res := scenarioResult{scenario: sc, courant: p.Derive().Courant}
	err := wave.RunCluster(ctx, ranks, p, func(ctx context.Context, c *wave.Controller) error {
		elapsed, err := c.Advance(ctx, 0)
		if err != nil {
			return err
		}
		if c.Rank() == comm.Coordinator {
			res.elapsed = elapsed
			res.peak = floats.Norm(c.Snapshot(), math.Inf(1))
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	res.diverged = math.IsNaN(res.peak) || res.peak > divergenceFactor*p.Amplitude
	return res, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
