//go:build ebiten

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"wave1d/internal/app"
	"wave1d/internal/comm"
	"wave1d/internal/config"
	"wave1d/internal/render"
	"wave1d/internal/wave"
)

func main() {
	cfg := config.NewConfig()
	cfg.GUI = true
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	if err := cfg.Resolve(flag.CommandLine); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.GUI = true
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := []wave.Option{wave.WithLogger(logger), wave.WithThreads(cfg.Threads)}
	ctx := context.Background()

	var coord *wave.Controller
	var wait func() error
	switch cfg.Transport {
	case config.TransportNATS:
		if cfg.Rank != comm.Coordinator {
			log.Fatalf("wave-view drives rank 0; start followers with wave -gui -rank N")
		}
		logger.Info("waiting for workers", "run", cfg.RunID, "workers", cfg.Workers-1)
		ep, err := comm.DialNATS(ctx, comm.NATSConfig{
			URL: cfg.NATSURL, RunID: cfg.RunID, Rank: cfg.Rank, Size: cfg.Workers,
			Timeout: cfg.CommTimeout, Logger: logger,
		})
		if err != nil {
			log.Fatalf("wave-view: %v", err)
		}
		defer ep.Close()
		part, err := wave.NewPartition(cfg.Rank, cfg.Workers, cfg.Params.Points)
		if err != nil {
			log.Fatalf("wave-view: %v", err)
		}
		coord = wave.NewController(ep, opts...)
		if err := coord.Initialize(cfg.Params, part); err != nil {
			log.Fatalf("wave-view: %v", err)
		}
		wait = coord.Teardown
	default:
		d, err := wave.Cluster{Size: cfg.Workers, Params: cfg.Params, Timeout: cfg.CommTimeout, Options: opts}.
			Detach(ctx, func(ctx context.Context, c *wave.Controller) error { return c.Follow(ctx) })
		if err != nil {
			log.Fatalf("wave-view: %v", err)
		}
		ctx = d.Ctx
		coord = d.Coordinator
		wait = d.Wait
		defer d.Abort()
	}

	game := app.New(ctx, coord, render.DefaultWidth, render.DefaultHeight, app.FPS(cfg.Workers))
	ebiten.SetWindowTitle("wave1d: " + coord.Name())
	ebiten.SetWindowSize(render.DefaultWidth, render.DefaultHeight)
	ebiten.SetWindowClosingHandled(true)

	runErr := ebiten.RunGame(game)
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		log.Fatalf("wave-view: %v", runErr)
	}
	if err := wait(); err != nil {
		log.Fatalf("wave-view: %v", err)
	}
}
