package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pointmorph/raster"
)

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame uint64  `csv:"-"`
	WindowEndFrame   uint64  `csv:"window_end"`
	SimTime          float64 `csv:"sim_time"` // time uniform at window end

	Progress float64 `csv:"progress"`

	// Inputs during the window
	PointerFrames int `csv:"pointer_frames"` // frames with the pointer over the cloud
	Resets        int `csv:"resets"`

	// Distance of sampled particles to their blended target
	TargetDistMean float64 `csv:"target_dist_mean"`
	TargetDistP50  float64 `csv:"target_dist_p50"`
	TargetDistP90  float64 `csv:"target_dist_p90"`
	TargetDistMax  float64 `csv:"target_dist_max"`

	// Speed of sampled particles
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedMax  float64 `csv:"speed_max"`

	Samples int `csv:"samples"`
}

// Frame is the simulation state a window is summarised from.
type Frame struct {
	Number     uint64
	Time       float64
	Progress   float64
	Positions  *raster.Raster
	Velocities *raster.Raster
	Sphere     *raster.Raster
	Image      *raster.Raster
}

// ParticleSample holds per-particle measurements for a subset of cells.
type ParticleSample struct {
	TargetDist []float64
	Speed      []float64
}

// SampleParticles measures every stride-th particle of f.
func SampleParticles(f Frame, stride int) ParticleSample {
	if stride < 1 {
		stride = 1
	}
	n := f.Positions.Len()
	s := ParticleSample{
		TargetDist: make([]float64, 0, n/stride+1),
		Speed:      make([]float64, 0, n/stride+1),
	}
	t := float32(f.Progress)
	for idx := 0; idx < n; idx += stride {
		p := f.Positions.AtIndex(idx)
		v := f.Velocities.AtIndex(idx)
		a := f.Sphere.AtIndex(idx)
		b := f.Image.AtIndex(idx)

		var d2, s2 float64
		for k := 0; k < 3; k++ {
			target := a[k] + (b[k]-a[k])*t
			d := float64(p[k] - target)
			d2 += d * d
			s2 += float64(v[k]) * float64(v[k])
		}
		s.TargetDist = append(s.TargetDist, math.Sqrt(d2))
		s.Speed = append(s.Speed, math.Sqrt(s2))
	}
	return s
}

// Distribution summarises a set of values.
type Distribution struct {
	Mean, Std     float64
	P50, P90, Max float64
}

// Describe computes mean, standard deviation, median, p90 and maximum.
// values is sorted in place.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sort.Float64s(values)
	mean, std := stat.PopMeanStdDev(values, nil)
	return Distribution{
		Mean: mean,
		Std:  std,
		P50:  stat.Quantile(0.5, stat.LinInterp, values, nil),
		P90:  stat.Quantile(0.9, stat.LinInterp, values, nil),
		Max:  floats.Max(values),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartFrame),
		slog.Uint64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTime),
		slog.Float64("progress", s.Progress),
		slog.Int("pointer_frames", s.PointerFrames),
		slog.Int("resets", s.Resets),
		slog.Float64("target_dist_mean", s.TargetDistMean),
		slog.Float64("target_dist_p50", s.TargetDistP50),
		slog.Float64("target_dist_p90", s.TargetDistP90),
		slog.Float64("target_dist_max", s.TargetDistMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Int("samples", s.Samples),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
