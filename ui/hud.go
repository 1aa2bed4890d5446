package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pointmorph/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Particles     int
	Frame         uint64
	FPS           int32
	Progress      float64
	PointerActive bool
	Paused        bool
	Err           error // set once the simulation has halted
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | Frame: %d | FPS: %d", data.Particles, data.Frame, data.FPS),
		10, 35, 16, rl.LightGray,
	)

	pointer := "off"
	if data.PointerActive {
		pointer = "on"
	}
	rl.DrawText(fmt.Sprintf("Progress: %.2f | Pointer: %s", data.Progress, pointer), 10, 55, 16, rl.LightGray)

	switch {
	case data.Err != nil:
		rl.DrawText("HALTED: "+data.Err.Error(), 10, 75, 16, h.renderer.Theme.WarnColor)
	case data.Paused:
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the frame phase breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	pad := r.Theme.Padding
	height := r.Theme.LineHeight*8 + pad*2
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + pad
	y := r.DrawSectionHeader(x, p.y+pad, "Frame")

	budget := r.Theme.ValueColor
	if stats.OverBudgetPct > 10 {
		budget = r.Theme.WarnColor
	}
	y = r.DrawLabelValue(x, y, "avg", fmt.Sprintf("%d us", stats.AvgTickDuration.Microseconds()), r.Theme.ValueColor)
	y = r.DrawLabelValue(x, y, "max", fmt.Sprintf("%d us", stats.MaxTickDuration.Microseconds()), r.Theme.ValueColor)
	y = r.DrawLabelValue(x, y, "over budget", fmt.Sprintf("%.0f%%", stats.OverBudgetPct), budget)

	inner := p.width - pad*2
	y = r.DrawBar(x, y, telemetry.PhaseInput, stats.PhasePct[telemetry.PhaseInput], inner)
	y = r.DrawBar(x, y, telemetry.PhaseCompute, stats.PhasePct[telemetry.PhaseCompute], inner)
	y = r.DrawBar(x, y, telemetry.PhaseTelemetry, stats.PhasePct[telemetry.PhaseTelemetry], inner)
	r.DrawBar(x, y, telemetry.PhasePresent, stats.PhasePct[telemetry.PhasePresent], inner)
}
