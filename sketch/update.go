package sketch

import (
	"log/slog"

	"github.com/pthm-cable/pointmorph/telemetry"
)

// Update runs one graphical frame: input, camera, simulation step.
// Drawing happens in Draw.
func (s *Sketch) Update() {
	s.perfCollector.StartTick()
	s.perfCollector.StartPhase(telemetry.PhaseInput)
	s.handleInput()
	s.camera.Update()

	if !s.paused {
		s.step()
	}
	s.perfCollector.RecordFrame()
}

// UpdateHeadless runs one frame without window, input or drawing.
func (s *Sketch) UpdateHeadless() {
	s.perfCollector.StartTick()
	s.step()
	s.perfCollector.EndTick()
}

// step advances the simulation by one frame and feeds telemetry.
func (s *Sketch) step() {
	if s.err != nil {
		return
	}
	s.perfCollector.StartPhase(telemetry.PhaseCompute)
	if _, err := s.session.Step(); err != nil {
		s.err = err
		slog.Error("simulation halted", "frame", s.session.Frame(), "error", err)
		return
	}

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.collector.RecordPointer(s.pointerActive)
	s.flushTelemetry()
}

// reset restarts the simulation from its initial rasters.
func (s *Sketch) reset() {
	if err := s.session.Reset(); err != nil {
		slog.Error("reset failed", "error", err)
		return
	}
	s.collector.RecordReset()
	slog.Info("simulation reset")
}
