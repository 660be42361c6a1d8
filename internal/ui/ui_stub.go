//go:build !ebiten

package ui

import "wave1d/internal/core"

// HUD is a no-op placeholder for headless builds.
type HUD struct{}

// NewHUD returns nil in the headless build.
func NewHUD(string, core.ParameterSnapshot) *HUD { return nil }

// Update is a no-op in the headless build.
func (h *HUD) Update(core.Viewable, bool, int) {}

// Draw is a no-op in the headless build.
func (h *HUD) Draw(any) {}

// Overlay is a no-op placeholder used when the ebiten build tag is absent.
type Overlay struct{}

// NewOverlay constructs a stub overlay.
func NewOverlay() *Overlay { return &Overlay{} }

// Update is a no-op in headless builds.
func (o *Overlay) Update() {}

// Draw is a no-op placeholder.
func (o *Overlay) Draw(any) {}
