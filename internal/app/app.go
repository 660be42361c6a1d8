//go:build ebiten

package app

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"wave1d/internal/core"
	"wave1d/internal/render"
	"wave1d/internal/ui"
	"wave1d/internal/wave"
)

// Driver is the coordinator side of a run as seen by the viewer.
type Driver interface {
	core.Viewable
	Frame(ctx context.Context, d wave.Directive) (bool, error)
	Params() wave.Params
}

// Game adapts a coordinator to the ebiten.Game interface.
type Game struct {
	ctx     context.Context
	drv     Driver
	session *Session
	clock   *core.FrameClock

	plot    render.Plot
	canvas  *core.Canvas
	painter *render.Painter
	hud     *ui.HUD
	overlay *ui.Overlay
}

// New constructs a Game of w x h pixels that runs fps frames per second.
func New(ctx context.Context, drv Driver, w, h, fps int) *Game {
	return &Game{
		ctx:     ctx,
		drv:     drv,
		session: NewSession(),
		clock:   core.NewFrameClock(fps),
		plot:    render.NewPlot(w, h),
		canvas:  core.NewCanvas(w, h),
		painter: render.NewPainter(w, h),
		hud:     ui.NewHUD("wave1d", drv.Params().Parameters()),
		overlay: ui.NewOverlay(),
	}
}

// Update handles input and, when a frame is due, advances every worker.
func (g *Game) Update() error {
	if ebiten.IsWindowBeingClosed() ||
		inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.session.RequestQuit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.plot.ShowAxis = !g.plot.ShowAxis
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.session.TogglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.session.RequestReset()
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		g.session.Click(g.plot, g.drv.Snapshot(), g.drv.DampingFactor(), x, y)
	}
	g.overlay.Update()

	if !g.session.Pending() && !g.clock.Due(time.Now()) {
		return nil
	}
	running, err := g.drv.Frame(g.ctx, g.session.Directive())
	if err != nil {
		return err
	}
	g.hud.Update(g.drv, g.session.Paused, g.session.Held)
	if !running {
		return ebiten.Termination
	}
	return nil
}

// Draw renders the current snapshot.
func (g *Game) Draw(screen *ebiten.Image) {
	g.plot.Rasterize(g.canvas, g.drv.Snapshot(), g.drv.DampingFactor(), g.session.Held)
	g.painter.Blit(screen, g.canvas)
	g.hud.Draw(screen)
	g.overlay.Draw(screen)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.plot.Size.W, g.plot.Size.H
}
