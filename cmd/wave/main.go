// Command wave runs the 1-D wave integrator headless: a single run, the
// benchmark, or one worker of a NATS-distributed run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wave1d/internal/bench"
	"wave1d/internal/comm"
	"wave1d/internal/config"
	"wave1d/internal/metrics"
	"wave1d/internal/report"
	"wave1d/internal/wave"
)

func main() {
	cfg := config.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	if err := cfg.Resolve(flag.CommandLine); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(logger)
	for _, key := range cfg.Unknown() {
		logger.Info("unrecognized settings key", "key", key)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.GUI && (cfg.Transport != config.TransportNATS || cfg.Rank == comm.Coordinator) {
		log.Fatalf("the viewer runs in wave-view; wave only serves as a NATS follower with -gui")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, m, err := metrics.NewRegistry()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Serve(cfg.MetricsAddr, reg)
		if err != nil {
			log.Fatal(err)
		}
		logger.Info("serving metrics", "addr", srv.Addr())
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	opts := []wave.Option{
		wave.WithLogger(logger.With("run", cfg.RunID)),
		wave.WithMetrics(m),
		wave.WithThreads(cfg.Threads),
	}
	r := &runner{cfg: cfg, logger: logger}

	switch cfg.Transport {
	case config.TransportNATS:
		err = runNATS(ctx, cfg, logger, opts, r.run)
	default:
		cl := wave.Cluster{Size: cfg.Workers, Params: cfg.Params, Timeout: cfg.CommTimeout, Options: opts}
		err = cl.Run(ctx, r.run)
	}
	if err != nil {
		stop()
		log.Fatalf("wave: %v", err)
	}
}

type runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func (r *runner) run(ctx context.Context, c *wave.Controller) error {
	coordinator := c.Rank() == comm.Coordinator
	switch {
	case r.cfg.GUI:
		return c.Follow(ctx)
	case r.cfg.Bench:
		return r.benchmark(ctx, c, coordinator)
	}

	p := c.Params()
	if coordinator {
		d := c.Derived()
		r.logger.Info("simulating",
			"points", p.Points, "steps", p.TimeSteps, "workers", r.cfg.Workers,
			"damped", p.Lambda != 0, "lambda", p.Lambda, "courant", d.Courant)
	}
	elapsed, err := c.Advance(ctx, 0)
	if err != nil {
		return err
	}
	if !coordinator {
		return nil
	}
	r.logger.Info("finished", "seconds", elapsed.Seconds())
	return r.output(c)
}

func (r *runner) benchmark(ctx context.Context, c *wave.Controller, coordinator bool) error {
	var sink bench.Sink = bench.Discard
	if coordinator {
		l, err := bench.OpenLog(r.cfg.BenchFile)
		if err != nil {
			return err
		}
		defer l.Close()
		sink = bench.Multi{l, bench.NewConsole(os.Stdout)}
	}
	_, err := c.RunBenchmark(ctx, r.cfg.Trials, sink)
	return err
}

func (r *runner) output(c *wave.Controller) error {
	snap := c.Snapshot()
	if r.cfg.Print {
		if err := report.PrintValues(os.Stdout, snap); err != nil {
			return err
		}
	}
	if r.cfg.Plot {
		caption := fmt.Sprintf("step %d, %d points", c.StepCount(), c.PointCount())
		if err := report.Plot(os.Stdout, snap, report.PlotOptions{Caption: caption}); err != nil {
			return err
		}
	}
	return nil
}

// runNATS runs this process's single worker of a distributed run.
func runNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts []wave.Option, fn func(context.Context, *wave.Controller) error) error {
	if cfg.Rank == comm.Coordinator {
		logger.Info("waiting for workers", "run", cfg.RunID, "workers", cfg.Workers-1)
	}
	ep, err := comm.DialNATS(ctx, comm.NATSConfig{
		URL:     cfg.NATSURL,
		RunID:   cfg.RunID,
		Rank:    cfg.Rank,
		Size:    cfg.Workers,
		Timeout: cfg.CommTimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer ep.Close()

	part, err := wave.NewPartition(cfg.Rank, cfg.Workers, cfg.Params.Points)
	if err != nil {
		return err
	}
	c := wave.NewController(ep, opts...)
	if err := c.Initialize(cfg.Params, part); err != nil {
		return err
	}
	defer c.Teardown()
	if err := fn(ctx, c); err != nil {
		if errors.Is(err, wave.ErrCommunication) {
			logger.Error("run aborted", "rank", cfg.Rank, "err", err)
		}
		return err
	}
	return nil
}
