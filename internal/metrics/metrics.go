// Package metrics exposes Prometheus instrumentation for wave runs. A nil
// *Metrics is valid and records nothing, so the integrator can be used
// without a registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wave"

// Metrics holds the collectors updated by the integrator and controller.
type Metrics struct {
	StepsTotal      *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	HaloDuration    *prometheus.HistogramVec
	GathersTotal    *prometheus.CounterVec
	GatherDuration  *prometheus.HistogramVec
	ResetsTotal     *prometheus.CounterVec
	TrialSeconds    prometheus.Histogram
	BenchmarkMean   prometheus.Gauge
	BenchmarkStdDev prometheus.Gauge
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "integrator",
				Name:      "steps_total",
				Help:      "Leapfrog steps completed, including the halo exchange",
			},
			[]string{"rank"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "integrator",
				Name:      "step_duration_seconds",
				Help:      "Wall-clock time of one step",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"rank"},
		),
		HaloDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "halo",
				Name:      "exchange_duration_seconds",
				Help:      "Time spent blocked in one neighbour exchange",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"rank", "side"},
		),
		GathersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gather",
				Name:      "total",
				Help:      "Gathers completed",
			},
			[]string{"rank"},
		),
		GatherDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gather",
				Name:      "duration_seconds",
				Help:      "Time to send or assemble one gather",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"rank"},
		),
		ResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "controller",
				Name:      "resets_total",
				Help:      "Grid resets to the initial condition",
			},
			[]string{"rank"},
		),
		TrialSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "benchmark",
				Name:      "trial_seconds",
				Help:      "Elapsed time of each benchmark trial",
				Buckets:   prometheus.ExponentialBuckets(1e-4, 2, 16),
			},
		),
		BenchmarkMean: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "benchmark",
				Name:      "mean_seconds",
				Help:      "Mean trial time of the last benchmark",
			},
		),
		BenchmarkStdDev: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "benchmark",
				Name:      "stddev_seconds",
				Help:      "Population standard deviation of the last benchmark",
			},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.StepsTotal, m.StepDuration, m.HaloDuration,
		m.GathersTotal, m.GatherDuration, m.ResetsTotal,
		m.TrialSeconds, m.BenchmarkMean, m.BenchmarkStdDev,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Rank is a bound view of Metrics for a single worker, so the hot path does
// not format label values.
type Rank struct {
	steps     prometheus.Counter
	step      prometheus.Observer
	haloLeft  prometheus.Observer
	haloRight prometheus.Observer
	gathers   prometheus.Counter
	gather    prometheus.Observer
	resets    prometheus.Counter
	m         *Metrics
}

// ForRank binds the per-rank children. It returns nil when m is nil.
func (m *Metrics) ForRank(rank int) *Rank {
	if m == nil {
		return nil
	}
	label := strconv.Itoa(rank)
	return &Rank{
		steps:     m.StepsTotal.WithLabelValues(label),
		step:      m.StepDuration.WithLabelValues(label),
		haloLeft:  m.HaloDuration.WithLabelValues(label, "left"),
		haloRight: m.HaloDuration.WithLabelValues(label, "right"),
		gathers:   m.GathersTotal.WithLabelValues(label),
		gather:    m.GatherDuration.WithLabelValues(label),
		resets:    m.ResetsTotal.WithLabelValues(label),
		m:         m,
	}
}

// Step records one completed step.
func (r *Rank) Step(d time.Duration) {
	if r == nil {
		return
	}
	r.steps.Inc()
	r.step.Observe(d.Seconds())
}

// Halo records one neighbour exchange; left selects the side.
func (r *Rank) Halo(left bool, d time.Duration) {
	if r == nil {
		return
	}
	if left {
		r.haloLeft.Observe(d.Seconds())
		return
	}
	r.haloRight.Observe(d.Seconds())
}

// Gather records one gather.
func (r *Rank) Gather(d time.Duration) {
	if r == nil {
		return
	}
	r.gathers.Inc()
	r.gather.Observe(d.Seconds())
}

// Reset records one reset.
func (r *Rank) Reset() {
	if r == nil {
		return
	}
	r.resets.Inc()
}

// Trial records one benchmark trial.
func (r *Rank) Trial(d time.Duration) {
	if r == nil {
		return
	}
	r.m.TrialSeconds.Observe(d.Seconds())
}

// Benchmark records the summary of a finished benchmark.
func (r *Rank) Benchmark(mean, stddev float64) {
	if r == nil {
		return
	}
	r.m.BenchmarkMean.Set(mean)
	r.m.BenchmarkStdDev.Set(stddev)
}
