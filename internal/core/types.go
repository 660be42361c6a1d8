// Package core holds the contracts shared by the viewer packages: what a
// running simulation exposes for drawing, the parameter snapshot shown on the
// HUD, a paletted canvas and the frame clock.
package core

// Size describes the dimensions of a drawing surface.
type Size struct {
	W int
	H int
}

// Viewable is the read side of a running simulation the viewer draws.
type Viewable interface {
	Name() string
	Snapshot() []float64
	PointCount() int
	StepCount() int
	DampingFactor() float64
}
