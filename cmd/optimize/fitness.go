package main

import (
	"image"
	"math"
	"sync"

	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/sim"
	"github.com/pthm-cable/pointmorph/telemetry"
)

// Fitness weights.
const (
	weightFinalP90   = 1.0
	weightFinalSpeed = 10.0
	// failedFitness is returned when a run cannot be evaluated.
	failedFitness = 1e6
)

// FitnessEvaluator runs headless morphs and scores how quickly and cleanly
// the cloud settles on the image target.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	img        image.Image
	frames     uint64
	seeds      []int64
	tolerance  float64

	mu         sync.Mutex
	lastSettle float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, img image.Image, frames int, seeds []int64, tolerance float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		img:        img,
		frames:     uint64(frames),
		seeds:      seeds,
		tolerance:  tolerance,
	}
}

// LastSettle returns the mean settle frame of the most recent evaluation.
func (fe *FitnessEvaluator) LastSettle() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSettle
}

// runResult holds the windows of one run.
type runResult struct {
	windows []telemetry.WindowStats
	err     error
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runMorph(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total, settle float64
	for _, r := range results {
		if r.err != nil {
			return failedFitness
		}
		total += computeFitness(r.windows)
		settle += float64(settleFrame(r.windows, fe.tolerance, fe.frames))
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastSettle = settle / n
	fe.mu.Unlock()
	return total / n
}

// runMorph starts on the sphere, switches progress to the image target and
// records one window per collector interval.
func (fe *FitnessEvaluator) runMorph(cfg *config.Config, seed int64) runResult {
	session, err := sim.NewSession(cfg, fe.img, seed)
	if err != nil {
		return runResult{err: err}
	}
	defer session.Close()
	session.Params().SetProgress(1)

	collector := telemetry.NewCollector(cfg.Derived.StatsWindowFrames, cfg.Telemetry.StatsSampleStride)
	var result runResult
	for session.Frame() < fe.frames {
		if _, err := session.Step(); err != nil {
			return runResult{err: err}
		}
		if frame := session.Frame(); collector.ShouldFlush(frame) || frame == fe.frames {
			u := session.Params().Snapshot()
			result.windows = append(result.windows, collector.Flush(telemetry.Frame{
				Number:     frame,
				Time:       float64(u.Time),
				Progress:   float64(u.Progress),
				Positions:  session.Positions(),
				Velocities: session.Velocities(),
				Sphere:     session.SphereTarget(),
				Image:      session.ImageTarget(),
			}))
		}
	}
	return result
}

// copyConfig creates a copy of the base config. Slices are shared; the
// optimizer only writes scalar kernel fields.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness scores a run (lower = better): the mean target distance over
// all windows, plus the final spread and residual motion.
func computeFitness(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return failedFitness
	}
	var sum float64
	for _, w := range windows {
		sum += w.TargetDistMean
	}
	final := windows[len(windows)-1]
	f := sum/float64(len(windows)) + weightFinalP90*final.TargetDistP90 + weightFinalSpeed*final.SpeedMean
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return failedFitness
	}
	return f
}

// settleFrame returns the end frame of the first window whose p90 target
// distance is within tolerance, or limit if the cloud never settled.
func settleFrame(windows []telemetry.WindowStats, tolerance float64, limit uint64) uint64 {
	for _, w := range windows {
		if w.TargetDistP90 <= tolerance {
			return w.WindowEndFrame
		}
	}
	return limit
}
