// Package sim runs the particle morph: it encodes the targets, wires the
// velocity and position kernels into a compute graph, and advances it a frame
// at a time.
package sim

import (
	"errors"
	"fmt"
	"image"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/pointmorph/compute"
	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/encode"
	"github.com/pthm-cable/pointmorph/raster"
)

// ErrNoImage is returned when a session is created without a mask image.
var ErrNoImage = errors.New("sim: no mask image")

// Variable and texture names inside the compute graph.
const (
	VarVelocity   = "velocity"
	VarPosition   = "position"
	TexSphere     = "sphereTarget"
	TexImageMask  = "imageTarget"
	seedSphere    = 0
	seedVelocity  = 1
	seedImageMask = 2
)

// Session owns every raster and parameter of one running simulation.
// Lifecycle: NewSession -> Step per frame -> Close.
type Session struct {
	size     int
	timeStep float32
	params   *Params

	graph    *compute.Graph[Uniforms]
	position *compute.Variable
	velocity *compute.Variable

	sphere    *raster.Raster
	imageMask *raster.Raster
	seed      *raster.Raster
}

// NewSession encodes the targets and builds the compute graph.
// Asset errors (bad image, empty mask) and graph configuration errors are
// returned before any frame can run.
func NewSession(cfg *config.Config, img image.Image, seed int64) (*Session, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	n := cfg.Grid.Size

	kp, err := KernelParamsFromConfig(cfg.Kernels)
	if err != nil {
		return nil, err
	}
	format, err := compute.ParseFormat(cfg.Compute.Format)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	s := &Session{
		size:     n,
		timeStep: float32(cfg.Kernels.TimeStep),
		params:   NewParams(),
	}

	maskOpts := MaskOptionsFromConfig(cfg.Encoder)

	// Each target gets its own generator so the result does not depend on
	// which goroutine finishes first.
	var eg errgroup.Group
	eg.Go(func() error {
		r, err := encode.Sphere(n, rand.New(rand.NewSource(seed+seedSphere)))
		if err != nil {
			return fmt.Errorf("encoding sphere target: %w", err)
		}
		s.sphere = r
		return nil
	})
	eg.Go(func() error {
		r, err := encode.VelocitySeed(n, cfg.Encoder.VelocitySeedAmplitude, rand.New(rand.NewSource(seed+seedVelocity)))
		if err != nil {
			return fmt.Errorf("encoding velocity seed: %w", err)
		}
		s.seed = r
		return nil
	})
	eg.Go(func() error {
		r, err := encode.ImageMask(img, n, rand.New(rand.NewSource(seed+seedImageMask)), maskOpts)
		if err != nil {
			return fmt.Errorf("encoding image target: %w", err)
		}
		s.imageMask = r
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if err := s.buildGraph(kp, format, cfg.Compute.Workers); err != nil {
		return nil, err
	}
	return s, nil
}

// MaskOptionsFromConfig converts the encoder config section.
func MaskOptionsFromConfig(c config.EncoderConfig) encode.MaskOptions {
	return encode.MaskOptions{
		CanvasSize:         c.CanvasSize,
		Threshold:          uint8(c.MaskThreshold),
		Jitter:             c.Jitter,
		DepthJitter:        c.DepthJitter,
		OutlierProbability: c.OutlierProbability,
		OutlierSpread:      c.OutlierSpread,
	}
}

func (s *Session) buildGraph(kp KernelParams, format compute.Format, workers int) error {
	g := compute.New[Uniforms](s.size, s.size,
		compute.WithFormat(format),
		compute.WithWorkers(workers),
	)

	ks := &kernels{k: kp}
	ks.sphere = g.AddTexture(TexSphere, s.sphere)
	ks.target = g.AddTexture(TexImageMask, s.imageMask)
	ks.vel = g.AddVariable(VarVelocity, ks.velocity, s.seed)
	ks.pos = g.AddVariable(VarPosition, ks.position, s.sphere)

	// Both kernels depend on both variables. Velocity runs first and only
	// sees the previous frame; position optionally reads the new velocity.
	g.SetVariableDependencies(ks.vel, compute.Previous(ks.pos), compute.Previous(ks.vel))
	velDep := compute.Current(ks.vel)
	if kp.Integration == Explicit {
		velDep = compute.Previous(ks.vel)
	}
	g.SetVariableDependencies(ks.pos, compute.Previous(ks.pos), velDep)

	if err := g.Init(); err != nil {
		g.Close()
		return fmt.Errorf("sim: building compute graph: %w", err)
	}

	s.graph = g
	s.position = ks.pos
	s.velocity = ks.vel
	return nil
}

// Params returns the input bridge.
func (s *Session) Params() *Params { return s.params }

// Size returns the grid side N.
func (s *Session) Size() int { return s.size }

// Frame returns the number of evaluated frames.
func (s *Session) Frame() uint64 { return s.graph.Frame() }

// Workers returns the compute worker count.
func (s *Session) Workers() int { return s.graph.Workers() }

// Step advances time by one frame and evaluates with the current params.
func (s *Session) Step() (*raster.Raster, error) {
	s.params.AdvanceTime(s.timeStep)
	return s.Evaluate(s.params.Snapshot())
}

// Evaluate runs one full evaluation with explicit uniforms and returns the
// new position raster. The raster is valid until the next evaluation.
func (s *Session) Evaluate(u Uniforms) (*raster.Raster, error) {
	u.Progress = float32(clampProgress(float64(u.Progress)))
	if err := s.graph.Compute(u); err != nil {
		return nil, err
	}
	return s.graph.CurrentRaster(s.position), nil
}

// Positions returns the committed position raster.
func (s *Session) Positions() *raster.Raster { return s.graph.CurrentRaster(s.position) }

// Velocities returns the committed velocity raster.
func (s *Session) Velocities() *raster.Raster { return s.graph.CurrentRaster(s.velocity) }

// SphereTarget returns the immutable sphere target.
func (s *Session) SphereTarget() *raster.Raster { return s.sphere }

// ImageTarget returns the immutable image-mask target.
func (s *Session) ImageTarget() *raster.Raster { return s.imageMask }

// Reset restarts the simulation from the initial rasters and rewinds time.
// Pointer and progress are kept.
func (s *Session) Reset() error {
	if err := s.graph.Reset(); err != nil {
		return err
	}
	s.params.SetTime(0)
	return nil
}

// Close releases the compute workers.
func (s *Session) Close() {
	if s.graph != nil {
		s.graph.Close()
	}
}
