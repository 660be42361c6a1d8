// Package ui draws the viewer's status line, parameter panel and help
// overlay.
package ui

import (
	"fmt"

	"wave1d/internal/core"
)

// Controls lists the viewer's key and mouse bindings.
var Controls = []string{
	"A      toggle axis",
	"P      pause / resume",
	"R      reset wave",
	"H      toggle help",
	"Click  hold / release a point",
	"Q Esc  quit",
}

// Status returns the run state shown in the corner of the window.
func Status(paused bool) string {
	if paused {
		return "Paused"
	}
	return "Running"
}

// StatusLine summarises the run for the HUD.
func StatusLine(v core.Viewable, paused bool, held int) string {
	line := fmt.Sprintf("%s  step %d  damping %.4f", Status(paused), v.StepCount(), v.DampingFactor())
	if held >= 0 {
		line += fmt.Sprintf("  held %d", held)
	}
	return line
}
