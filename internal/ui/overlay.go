//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// Overlay draws the key bindings on top of the plot while toggled on.
type Overlay struct {
	visible bool
	backing *ebiten.Image
}

// NewOverlay constructs a hidden overlay.
func NewOverlay() *Overlay { return &Overlay{} }

// Update toggles the overlay on H.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		o.visible = !o.visible
	}
}

// Draw paints the help box in the top-left corner.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if !o.visible {
		return
	}
	w, h := 260, lineHeight*(len(Controls)+1)+8
	if o.backing == nil {
		o.backing = ebiten.NewImage(w, h)
		o.backing.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 220})
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(textOffset, textOffset)
	screen.DrawImage(o.backing, op)
	y := textOffset + lineHeight
	for _, line := range Controls {
		text.Draw(screen, line, basicfont.Face7x13, textOffset+8, y, color.White)
		y += lineHeight
	}
}
