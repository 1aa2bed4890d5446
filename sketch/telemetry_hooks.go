package sketch

import (
	"log/slog"

	"github.com/pthm-cable/pointmorph/telemetry"
)

// flushTelemetry summarises the window once enough frames have passed.
func (s *Sketch) flushTelemetry() {
	frame := s.session.Frame()
	if !s.collector.ShouldFlush(frame) {
		return
	}

	u := s.session.Params().Snapshot()
	stats := s.collector.Flush(telemetry.Frame{
		Number:     frame,
		Time:       float64(u.Time),
		Progress:   float64(u.Progress),
		Positions:  s.session.Positions(),
		Velocities: s.session.Velocities(),
		Sphere:     s.session.SphereTarget(),
		Image:      s.session.ImageTarget(),
	})
	perfStats := s.perfCollector.Stats()

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
