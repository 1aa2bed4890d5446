// Package inspector shows the state of one selected particle.
package inspector

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/raster"
	"github.com/pthm-cable/pointmorph/renderer/splat"
	"github.com/pthm-cable/pointmorph/sim"
)

// Panel dimensions
const (
	PanelWidth   = 300
	PanelPadding = 10
	HeaderHeight = 30
	lineHeight   = 20
)

// pickDistance is the screen radius in pixels for selecting a particle.
const pickDistance = 8

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorCloseBtn    = rl.Color{R: 180, G: 80, B: 80, A: 255}
	ColorLabel       = rl.Color{R: 150, G: 150, B: 160, A: 255}
	ColorValue       = rl.Color{R: 220, G: 220, B: 230, A: 255}
)

// Inspector manages particle selection and panel rendering.
type Inspector struct {
	selected    int
	hasSelected bool
	panelX      int32
	panelY      int32
}

// NewInspector creates an inspector anchored to the right screen edge.
func NewInspector(screenWidth, screenHeight int32) *Inspector {
	ins := &Inspector{}
	ins.Resize(screenWidth, screenHeight)
	return ins
}

// Resize re-anchors the panel.
func (ins *Inspector) Resize(screenWidth, screenHeight int32) {
	ins.panelX = screenWidth - PanelWidth - 10
	ins.panelY = screenHeight/2 - panelHeight/2
}

// HandleInput selects the particle under the cursor on right click.
// A right click on empty space or the close button deselects, as does
// Backspace. It reports whether the click was consumed by the panel.
func (ins *Inspector) HandleInput(mouseX, mouseY float32, positions *raster.Raster, proj camera.Projector) bool {
	if rl.IsKeyPressed(rl.KeyBackspace) {
		ins.Deselect()
		return false
	}

	if ins.hasSelected && rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		closeX := ins.panelX + PanelWidth - 25
		closeY := ins.panelY + 5
		if int32(mouseX) >= closeX && int32(mouseX) <= closeX+20 &&
			int32(mouseY) >= closeY && int32(mouseY) <= closeY+20 {
			ins.Deselect()
			return true
		}
	}
	if ins.Contains(mouseX, mouseY) {
		return true
	}

	if !rl.IsMouseButtonPressed(rl.MouseButtonRight) {
		return false
	}
	idx, ok := splat.Nearest(positions, proj, mouseX, mouseY, pickDistance)
	if !ok {
		ins.Deselect()
		return false
	}
	ins.selected = idx
	ins.hasSelected = true
	return true
}

// Contains reports whether a screen point is over the open panel.
func (ins *Inspector) Contains(x, y float32) bool {
	if !ins.hasSelected {
		return false
	}
	return int32(x) >= ins.panelX && int32(x) <= ins.panelX+PanelWidth &&
		int32(y) >= ins.panelY && int32(y) <= ins.panelY+panelHeight
}

// Deselect clears the current selection.
func (ins *Inspector) Deselect() {
	ins.hasSelected = false
}

// Selected returns the selected particle index.
func (ins *Inspector) Selected() (int, bool) {
	return ins.selected, ins.hasSelected
}

// panelHeight fits the header plus eight value lines.
const panelHeight = HeaderHeight + PanelPadding + 8*lineHeight + 8 + PanelPadding

// Draw renders the inspector panel if a particle is selected.
func (ins *Inspector) Draw(session *sim.Session) {
	if !ins.hasSelected {
		return
	}
	positions := session.Positions()
	if ins.selected >= positions.Len() {
		ins.Deselect()
		return
	}

	n := session.Size()
	i, j := ins.selected/n, ins.selected%n
	pos := positions.AtIndex(ins.selected)
	vel := session.Velocities().AtIndex(ins.selected)
	sphere := session.SphereTarget().AtIndex(ins.selected)
	image := session.ImageTarget().AtIndex(ins.selected)
	progress := float32(session.Params().Progress())

	var target raster.Vec4
	for a := 0; a < 3; a++ {
		target[a] = sphere[a] + (image[a]-sphere[a])*progress
	}

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, panelHeight, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(ins.panelX), Y: float32(ins.panelY), Width: PanelWidth, Height: panelHeight},
		1,
		ColorPanelBorder,
	)

	rl.DrawRectangle(ins.panelX, ins.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText("PARTICLE", ins.panelX+PanelPadding, ins.panelY+7, 16, ColorHeaderText)

	closeX := ins.panelX + PanelWidth - 25
	closeY := ins.panelY + 5
	rl.DrawRectangle(closeX, closeY, 20, 20, ColorCloseBtn)
	rl.DrawText("X", closeX+6, closeY+3, 14, rl.White)

	x := ins.panelX + PanelPadding
	y := ins.panelY + HeaderHeight + PanelPadding

	y = drawLabel(x, y, "Cell", fmt.Sprintf("(%d, %d)  #%d", i, j, ins.selected))
	rl.DrawLine(x, y, ins.panelX+PanelWidth-PanelPadding, y, ColorPanelBorder)
	y += 8
	y = drawLabel(x, y, "Position", formatVec(pos))
	y = drawLabel(x, y, "Velocity", formatVec(vel))
	y = drawLabel(x, y, "Speed", fmt.Sprintf("%.5f", length3(vel)))
	y = drawLabel(x, y, "Sphere", formatVec(sphere))
	y = drawLabel(x, y, "Image", formatVec(image))
	y = drawLabel(x, y, "Target", formatVec(target))
	drawLabel(x, y, "Distance", fmt.Sprintf("%.5f", distance3(pos, target)))
}

// DrawSelectionHighlight circles the selected particle on screen.
func (ins *Inspector) DrawSelectionHighlight(positions *raster.Raster, proj camera.Projector) {
	if !ins.hasSelected || ins.selected >= positions.Len() {
		return
	}
	p := positions.AtIndex(ins.selected)
	sx, sy, _, ok := proj.Project(p[0], p[1], p[2])
	if !ok {
		return
	}
	rl.DrawCircleLines(int32(sx), int32(sy), 6, rl.Yellow)
}

func drawLabel(x, y int32, label, value string) int32 {
	rl.DrawText(label+":", x, y, 14, ColorLabel)
	rl.DrawText(value, x+80, y, 14, ColorValue)
	return y + lineHeight
}

func formatVec(v raster.Vec4) string {
	return fmt.Sprintf("(%+.3f, %+.3f, %+.3f)", v[0], v[1], v[2])
}

func length3(v raster.Vec4) float64 {
	return math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
}

func distance3(a, b raster.Vec4) float64 {
	return length3(raster.Vec4{a[0] - b[0], a[1] - b[1], a[2] - b[2]})
}
