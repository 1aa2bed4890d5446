package sketch

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pointmorph/telemetry"
	"github.com/pthm-cable/pointmorph/ui"
)

const controls = "Drag: orbit | Wheel: zoom | Left/Right: progress | Space: pause | R: reset | A: auto-rotate | P: perf | Home: camera | Right click: inspect"

// Draw renders the point cloud and UI, then closes the frame's perf sample.
func (s *Sketch) Draw() {
	s.perfCollector.StartPhase(telemetry.PhasePresent)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	proj := s.camera.Projector()
	if err := s.cloud.Draw(s.session.Positions(), proj); err != nil {
		slog.Error("draw failed", "error", err)
	}
	s.inspector.DrawSelectionHighlight(s.session.Positions(), proj)
	s.drawUI()

	rl.EndDrawing()
	s.perfCollector.EndTick()
}

// drawUI renders the HUD and panels and applies panel actions.
func (s *Sketch) drawUI() {
	params := s.session.Params()

	s.hud.Draw(ui.HUDData{
		Title:         Title,
		Particles:     s.cfg.Derived.ParticleCount,
		Frame:         s.session.Frame(),
		FPS:           rl.GetFPS(),
		Progress:      params.Progress(),
		PointerActive: s.pointerActive,
		Paused:        s.paused,
		Err:           s.err,
	})
	s.hud.DrawControls(int32(s.screenHeight), controls)

	if s.showPerf {
		s.perfPanel.Draw(s.perfCollector.Stats())
	}

	s.inspector.Draw(s.session)

	action := s.progress.Draw(params.Progress(), s.paused)
	if action.Changed {
		params.SetProgress(action.Progress)
	}
	if action.Reset {
		s.reset()
	}
	if action.Pause {
		s.paused = !s.paused
	}
}
