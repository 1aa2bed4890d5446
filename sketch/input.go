package sketch

import (
	"gonum.org/v1/gonum/spatial/r3"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes keyboard and mouse input.
func (s *Sketch) handleInput() {
	s.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		s.paused = !s.paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		s.reset()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		s.showPerf = !s.showPerf
	}

	// Progress nudges; the slider itself is handled in Draw.
	params := s.session.Params()
	if rl.IsKeyDown(rl.KeyRight) {
		params.SetProgress(params.Progress() + 0.01)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		params.SetProgress(params.Progress() - 0.01)
	}

	mouse := rl.GetMousePosition()
	overUI := s.progress != nil && s.progress.Contains(mouse)
	if s.inspector != nil && s.inspector.HandleInput(mouse.X, mouse.Y, s.session.Positions(), s.camera.Projector()) {
		overUI = true
	}

	if !overUI {
		s.handleCameraInput(mouse)
	}
	s.handlePointer(mouse, overUI)
}

// handleResize checks for window resize and propagates new dimensions.
func (s *Sketch) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == s.screenWidth && h == s.screenHeight {
		return
	}
	s.screenWidth = w
	s.screenHeight = h

	s.camera.Resize(w, h)
	if s.cloud != nil {
		s.cloud.Resize(int32(w), int32(h))
	}
	if s.perfPanel != nil {
		s.perfPanel.SetPosition(int32(w)-230, 10)
	}
	if s.progress != nil {
		s.progress.SetPosition(10, h-130)
	}
	if s.inspector != nil {
		s.inspector.Resize(int32(w), int32(h))
	}
}

// handleCameraInput processes orbit drag and zoom controls.
func (s *Sketch) handleCameraInput(mouse rl.Vector2) {
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			s.camera.Rotate(d.X, d.Y)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		s.camera.ZoomBy(1 - float64(wheel)*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		s.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		s.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyA) {
		s.camera.AutoRotate = !s.camera.AutoRotate
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		s.camera.Reset()
	}
}

// handlePointer casts the mouse ray against the pick sphere and forwards the
// hit to the simulation. A miss parks the pointer out of reach.
func (s *Sketch) handlePointer(mouse rl.Vector2, overUI bool) {
	var hit r3.Vec
	ok := false
	if !overUI && rl.IsCursorOnScreen() {
		hit, ok = s.camera.Pick(mouse.X, mouse.Y, s.cfg.Camera.PickRadius)
	}

	params := s.session.Params()
	if ok {
		params.SetPointer(hit)
	} else if s.pointerActive {
		params.ClearPointer()
	}
	s.pointerActive = ok
}
