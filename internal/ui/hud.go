//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"wave1d/internal/core"
)

const (
	textOffset = 20
	lineHeight = 15
)

var (
	statusColor = color.RGBA{G: 255, A: 255}
	panelColor  = color.RGBA{R: 160, G: 160, B: 170, A: 255}
	titleColor  = color.RGBA{R: 200, G: 200, B: 210, A: 255}
)

// HUD renders the status line in the bottom-right corner and the parameter
// panel in the top-right corner.
type HUD struct {
	title  string
	lines  []string
	status string
}

// NewHUD constructs a HUD showing the given parameter snapshot.
func NewHUD(title string, snapshot core.ParameterSnapshot) *HUD {
	return &HUD{title: title, lines: snapshot.Lines(), status: Status(false)}
}

// Update refreshes the status line.
func (h *HUD) Update(v core.Viewable, paused bool, held int) {
	if h == nil {
		return
	}
	h.status = StatusLine(v, paused, held)
}

// Draw paints the HUD onto screen.
func (h *HUD) Draw(screen *ebiten.Image) {
	if h == nil {
		return
	}
	face := basicfont.Face7x13
	b := screen.Bounds()

	w := text.BoundString(face, h.status).Dx()
	text.Draw(screen, h.status, face, b.Dx()-w-textOffset, b.Dy()-textOffset, statusColor)

	x := b.Dx() - 260
	y := textOffset + lineHeight
	text.Draw(screen, h.title, face, x, y, titleColor)
	for _, line := range h.lines {
		y += lineHeight
		text.Draw(screen, line, face, x, y, panelColor)
	}
}
