package sim

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/pointmorph/compute"
	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/raster"
)

// Integration selects which velocity the position kernel integrates.
type Integration int

const (
	// Explicit integrates the previous frame's velocity, so both kernels see
	// the same prior-frame snapshot.
	Explicit Integration = iota
	// SemiImplicit integrates the velocity written earlier in the same frame.
	SemiImplicit
)

// ParseIntegration maps a config name to an Integration.
func ParseIntegration(s string) (Integration, error) {
	switch s {
	case "explicit", "":
		return Explicit, nil
	case "semi_implicit":
		return SemiImplicit, nil
	}
	return 0, fmt.Errorf("sim: unknown integration %q", s)
}

// noiseField is a deterministic 3D noise source, safe for concurrent reads.
type noiseField interface {
	Noise3D(x, y, z float64) float64
}

// simplexField adapts opensimplex to noiseField.
type simplexField struct {
	n opensimplex.Noise
}

func (s simplexField) Noise3D(x, y, z float64) float64 {
	// Eval3 is in [-1, 1]; perlin is roughly [-0.5, 0.5].
	return s.n.Eval3(x, y, z) * 0.5
}

// newNoiseField builds the noise source named by kind.
func newNoiseField(kind string, seed int64) (noiseField, error) {
	switch kind {
	case "perlin", "":
		return perlin.NewPerlin(2, 2, 3, seed), nil
	case "simplex":
		return simplexField{n: opensimplex.New(seed)}, nil
	}
	return nil, fmt.Errorf("sim: unknown noise kind %q", kind)
}

// Noise offsets decorrelate the three axes sampled from one noise field.
var noiseOffsets = [3]float64{0, 31.416, 67.125}

// KernelParams holds the constants of the velocity and position kernels.
type KernelParams struct {
	Damping         float32
	Attraction      float32
	PointerRadius   float32
	PointerStrength float32
	MaxSpeed        float32
	NoiseAmplitude  float32
	NoiseFrequency  float64
	Integration     Integration

	noise noiseField
}

// KernelParamsFromConfig converts the kernels config section.
func KernelParamsFromConfig(c config.KernelsConfig) (KernelParams, error) {
	integ, err := ParseIntegration(c.Integration)
	if err != nil {
		return KernelParams{}, err
	}
	k := KernelParams{
		Damping:         float32(c.Damping),
		Attraction:      float32(c.Attraction),
		PointerRadius:   float32(c.PointerRadius),
		PointerStrength: float32(c.PointerStrength),
		MaxSpeed:        float32(c.MaxSpeed),
		NoiseAmplitude:  float32(c.NoiseAmplitude),
		NoiseFrequency:  c.NoiseFrequency,
		Integration:     integ,
	}
	if k.NoiseAmplitude > 0 {
		if k.noise, err = newNoiseField(c.NoiseKind, c.NoiseSeed); err != nil {
			return KernelParams{}, err
		}
	}
	return k, nil
}

// kernels binds the kernel bodies to the graph handles they read.
// Handles are filled in after the variables are declared.
type kernels struct {
	k              KernelParams
	pos, vel       *compute.Variable
	sphere, target *compute.Texture
}

// velocity steers each particle toward the progress-blended target, pushes it
// away from the pointer, and damps it.
func (ks *kernels) velocity(c *compute.Cell, u Uniforms) raster.Vec4 {
	k := &ks.k
	p := c.Read(ks.pos)
	v := c.Read(ks.vel)
	s := c.Sample(ks.sphere)
	m := c.Sample(ks.target)

	var out raster.Vec4
	for a := 0; a < 3; a++ {
		target := s[a] + (m[a]-s[a])*u.Progress
		out[a] = v[a]*k.Damping + (target-p[a])*k.Attraction
	}

	if k.PointerRadius > 0 {
		dx := p[0] - u.Pointer[0]
		dy := p[1] - u.Pointer[1]
		dz := p[2] - u.Pointer[2]
		d2 := dx*dx + dy*dy + dz*dz
		if d2 < k.PointerRadius*k.PointerRadius && d2 > 1e-12 {
			d := float32(math.Sqrt(float64(d2)))
			f := k.PointerStrength * (1 - d/k.PointerRadius) / d
			out[0] += dx * f
			out[1] += dy * f
			out[2] += dz * f
		}
	}

	if k.noise != nil {
		x := float64(p[0]) * k.NoiseFrequency
		y := float64(p[1]) * k.NoiseFrequency
		z := float64(p[2])*k.NoiseFrequency + float64(u.Time)
		for a := 0; a < 3; a++ {
			o := noiseOffsets[a]
			out[a] += k.NoiseAmplitude * float32(k.noise.Noise3D(x+o, y+o, z))
		}
	}

	if k.MaxSpeed > 0 {
		s2 := out[0]*out[0] + out[1]*out[1] + out[2]*out[2]
		if s2 > k.MaxSpeed*k.MaxSpeed {
			scale := k.MaxSpeed / float32(math.Sqrt(float64(s2)))
			out[0] *= scale
			out[1] *= scale
			out[2] *= scale
		}
	}
	return out
}

// position integrates one step: position += velocity.
func (ks *kernels) position(c *compute.Cell, u Uniforms) raster.Vec4 {
	p := c.Read(ks.pos)
	v := c.Read(ks.vel)
	return raster.Vec4{p[0] + v[0], p[1] + v[1], p[2] + v[2], 0}
}
