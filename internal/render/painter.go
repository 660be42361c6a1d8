//go:build ebiten

package render

import (
	"github.com/hajimehoshi/ebiten/v2"

	"wave1d/internal/core"
)

// Painter uploads a paletted canvas into a single RGBA image.
type Painter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewPainter allocates a painter for a canvas of size w*h.
func NewPainter(w, h int) *Painter {
	return &Painter{w: w, h: h, img: ebiten.NewImage(w, h), buf: make([]byte, 4*w*h)}
}

// Blit converts the canvas and draws it at the origin of dst.
func (p *Painter) Blit(dst *ebiten.Image, c *core.Canvas) {
	if c.W != p.w || c.H != p.h {
		return
	}
	fillPaletteRGBA(p.buf, c.Cells(), Palette)
	p.img.WritePixels(p.buf)
	dst.DrawImage(p.img, nil)
}

// Size returns the dimensions of the underlying image.
func (p *Painter) Size() (int, int) { return p.w, p.h }
