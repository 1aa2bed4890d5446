package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ProgressAction reports what the user did in the progress panel this frame.
type ProgressAction struct {
	Progress float64 // slider value, always in [0, 1]
	Changed  bool
	Reset    bool
	Pause    bool // pause toggled
}

// ProgressPanel is the morph control: a progress slider and run controls.
type ProgressPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
}

const (
	sliderHeight = 20
	buttonHeight = 24
	buttonWidth  = 80
)

// NewProgressPanel creates a panel anchored at (x, y).
func NewProgressPanel(x, y, width float32) *ProgressPanel {
	return &ProgressPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition moves the panel, e.g. after a window resize.
func (p *ProgressPanel) SetPosition(x, y float32) {
	p.x = x
	p.y = y
}

// Bounds returns the screen rectangle covered by the panel.
func (p *ProgressPanel) Bounds() rl.Rectangle {
	pad := float32(p.renderer.Theme.Padding)
	return rl.Rectangle{
		X:      p.x,
		Y:      p.y,
		Width:  p.width,
		Height: pad*3 + float32(p.renderer.Theme.LineHeight) + sliderHeight + buttonHeight + pad,
	}
}

// Contains reports whether a screen point is over the panel, so pointer
// input there is not forwarded to the camera or the simulation.
func (p *ProgressPanel) Contains(pt rl.Vector2) bool {
	return rl.CheckCollisionPointRec(pt, p.Bounds())
}

// Draw renders the panel and returns the user's input.
func (p *ProgressPanel) Draw(progress float64, paused bool) ProgressAction {
	r := p.renderer
	pad := float32(r.Theme.Padding)
	b := p.Bounds()
	r.DrawPanel(int32(b.X), int32(b.Y), int32(b.Width), int32(b.Height))

	y := float32(r.DrawSectionHeader(int32(p.x+pad), int32(p.y+pad), fmt.Sprintf("Progress %.2f", progress)))

	slider := rl.Rectangle{X: p.x + pad + 45, Y: y, Width: p.width - pad*2 - 90, Height: sliderHeight}
	v := gui.SliderBar(slider, "sphere", "image", float32(progress), 0, 1)
	action := ProgressAction{Progress: float64(v), Changed: float64(v) != progress}
	y += sliderHeight + pad

	if gui.Button(rl.Rectangle{X: p.x + pad, Y: y, Width: buttonWidth, Height: buttonHeight}, "Reset") {
		action.Reset = true
	}
	label := "Pause"
	if paused {
		label = "Resume"
	}
	if gui.Button(rl.Rectangle{X: p.x + pad*2 + buttonWidth, Y: y, Width: buttonWidth, Height: buttonHeight}, label) {
		action.Pause = true
	}
	return action
}
