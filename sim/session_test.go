package sim

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/pointmorph/compute"
	"github.com/pthm-cable/pointmorph/config"
	"github.com/pthm-cable/pointmorph/encode"
	"github.com/pthm-cable/pointmorph/raster"
)

// testConfig returns the defaults shrunk to a small grid.
func testConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Grid.Size = 16
	cfg.Encoder.CanvasSize = 60
	cfg.Compute.Workers = 2
	return cfg
}

// squareMask is white with a black square in the middle.
func squareMask() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(20, 20, 40, 40), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	return img
}

func newTestSession(t testing.TB, cfg *config.Config, seed int64) *Session {
	t.Helper()
	s, err := NewSession(cfg, squareMask(), seed)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func maxDistance(a, b *raster.Raster) float64 {
	var worst float64
	for idx := 0; idx < a.Len(); idx++ {
		p, q := a.AtIndex(idx), b.AtIndex(idx)
		dx := float64(p[0] - q[0])
		dy := float64(p[1] - q[1])
		dz := float64(p[2] - q[2])
		worst = math.Max(worst, math.Sqrt(dx*dx+dy*dy+dz*dz))
	}
	return worst
}

func TestSessionInitialState(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSession(t, cfg, 1)

	if s.Size() != 16 || s.Frame() != 0 {
		t.Errorf("size=%d frame=%d", s.Size(), s.Frame())
	}
	if d := maxDistance(s.Positions(), s.SphereTarget()); d != 0 {
		t.Errorf("positions should start on the sphere, max distance %v", d)
	}
	amp := float32(cfg.Encoder.VelocitySeedAmplitude)
	vel := s.Velocities()
	for idx := 0; idx < vel.Len(); idx++ {
		v := vel.AtIndex(idx)
		for a := 0; a < 3; a++ {
			if v[a] < -amp || v[a] > amp {
				t.Fatalf("seed velocity %v outside ±%v", v, amp)
			}
		}
	}
}

func TestSessionConverges(t *testing.T) {
	tests := []struct {
		name        string
		progress    float64
		integration string
		target      func(s *Session) *raster.Raster
	}{
		{"sphere semi-implicit", 0, "semi_implicit", (*Session).SphereTarget},
		{"image semi-implicit", 1, "semi_implicit", (*Session).ImageTarget},
		{"image explicit", 1, "explicit", (*Session).ImageTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Kernels.Integration = tt.integration
			s := newTestSession(t, cfg, 7)
			s.Params().SetProgress(tt.progress)

			for f := 0; f < 1500; f++ {
				if _, err := s.Step(); err != nil {
					t.Fatalf("Step %d: %v", f, err)
				}
			}
			if d := maxDistance(s.Positions(), tt.target(s)); d > 1e-3 {
				t.Errorf("max distance to target after 1500 frames = %v", d)
			}
		})
	}
}

func TestSessionsAreIsolatedAndDeterministic(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kernels.NoiseAmplitude = 0.001
	a := newTestSession(t, cfg, 3)
	b := newTestSession(t, cfg, 3)
	a.Params().SetProgress(0.6)
	b.Params().SetProgress(0.6)

	for f := 0; f < 50; f++ {
		if _, err := a.Step(); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Step(); err != nil {
			t.Fatal(err)
		}
	}
	pa, pb := a.Positions().Data(), b.Positions().Data()
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("sessions with the same seed diverged at %d: %v vs %v", i, pa[i], pb[i])
		}
	}

	// Advancing one session leaves the other untouched.
	before := b.Positions().Clone()
	if _, err := a.Step(); err != nil {
		t.Fatal(err)
	}
	if d := maxDistance(before, b.Positions()); d != 0 {
		t.Errorf("stepping one session moved another by %v", d)
	}
}

func TestNoiseBackends(t *testing.T) {
	run := func(kind string, amplitude float64) *raster.Raster {
		cfg := testConfig(t)
		cfg.Kernels.NoiseKind = kind
		cfg.Kernels.NoiseAmplitude = amplitude
		s := newTestSession(t, cfg, 5)
		s.Params().SetProgress(0.5)
		for f := 0; f < 20; f++ {
			if _, err := s.Step(); err != nil {
				t.Fatal(err)
			}
		}
		return s.Positions().Clone()
	}

	quiet := run("perlin", 0)
	perlin := run("perlin", 0.002)
	simplex := run("simplex", 0.002)

	if maxDistance(quiet, perlin) == 0 {
		t.Error("perlin noise had no effect")
	}
	if maxDistance(quiet, simplex) == 0 {
		t.Error("simplex noise had no effect")
	}
	if maxDistance(perlin, simplex) == 0 {
		t.Error("perlin and simplex produced the same cloud")
	}
	if d := maxDistance(simplex, run("simplex", 0.002)); d != 0 {
		t.Errorf("simplex runs with the same seed differ by %v", d)
	}

	_, err := KernelParamsFromConfig(config.KernelsConfig{NoiseAmplitude: 1, NoiseKind: "worley"})
	if err == nil {
		t.Error("expected an error for an unknown noise kind")
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	cfg := testConfig(t)
	a := newTestSession(t, cfg, 1)
	b := newTestSession(t, cfg, 2)
	if maxDistance(a.SphereTarget(), b.SphereTarget()) == 0 {
		t.Error("different seeds produced identical sphere targets")
	}
}

func TestPointerRepelsNearbyParticles(t *testing.T) {
	cfg := testConfig(t)
	calm := newTestSession(t, cfg, 5)
	poked := newTestSession(t, cfg, 5)

	const probe = 40
	p := poked.Positions().AtIndex(probe)
	pointer := [3]float32{p[0] + 0.05, p[1], p[2]}

	u := calm.Params().Snapshot()
	if _, err := calm.Evaluate(u); err != nil {
		t.Fatal(err)
	}
	u.Pointer = pointer
	if _, err := poked.Evaluate(u); err != nil {
		t.Fatal(err)
	}

	radius := float32(cfg.Kernels.PointerRadius)
	vc, vp := calm.Velocities(), poked.Velocities()
	for idx := 0; idx < vc.Len(); idx++ {
		a, b := vc.AtIndex(idx), vp.AtIndex(idx)
		pos := calm.SphereTarget().AtIndex(idx)
		var d2, push float32
		for k := 0; k < 3; k++ {
			dk := pos[k] - pointer[k]
			d2 += dk * dk
			push += (b[k] - a[k]) * dk
		}
		inside := d2 < radius*radius
		switch {
		case idx == probe && push <= 0:
			t.Errorf("probe particle was not pushed away, push=%v", push)
		case inside && push < 0:
			t.Errorf("particle %d inside the radius was pulled toward the pointer", idx)
		case !inside && a != b:
			t.Errorf("particle %d outside the radius changed: %v vs %v", idx, a, b)
		}
	}
}

func TestStepOutputIgnoresLaterParamWrites(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSession(t, cfg, 4)
	control := newTestSession(t, cfg, 4)
	s.Params().SetProgress(0.2)
	control.Params().SetProgress(0.2)

	for f := 0; f < 3; f++ {
		if _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
		if _, err := control.Step(); err != nil {
			t.Fatal(err)
		}
	}
	out, err := s.Step()
	if err != nil {
		t.Fatal(err)
	}
	pos := out.Clone()
	vel := s.Velocities().Clone()

	s.Params().SetProgress(1)
	p := pos.AtIndex(0)
	s.Params().SetPointer(r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})

	if d := maxDistance(pos, out); d != 0 {
		t.Errorf("returned positions changed after param writes by %v", d)
	}
	if d := maxDistance(vel, s.Velocities()); d != 0 {
		t.Errorf("committed velocities changed after param writes by %v", d)
	}

	// The same frame computed without the later writes matches.
	if _, err := control.Step(); err != nil {
		t.Fatal(err)
	}
	if d := maxDistance(pos, control.Positions()); d != 0 {
		t.Errorf("output differs from a session without later writes by %v", d)
	}

	// The writes apply to the next frame.
	if _, err := s.Step(); err != nil {
		t.Fatal(err)
	}
	if _, err := control.Step(); err != nil {
		t.Fatal(err)
	}
	if maxDistance(s.Velocities(), control.Velocities()) == 0 {
		t.Error("param writes were not observed by the next frame")
	}
}

func TestEvaluateClampsProgress(t *testing.T) {
	cfg := testConfig(t)
	a := newTestSession(t, cfg, 9)
	b := newTestSession(t, cfg, 9)

	u := a.Params().Snapshot()
	u.Progress = 1
	ra, err := a.Evaluate(u)
	if err != nil {
		t.Fatal(err)
	}
	u.Progress = 42
	rb, err := b.Evaluate(u)
	if err != nil {
		t.Fatal(err)
	}
	if d := maxDistance(ra, rb); d != 0 {
		t.Errorf("progress 42 should behave like 1, distance %v", d)
	}
	if d := maxDistance(a.Velocities(), b.Velocities()); d != 0 {
		t.Errorf("progress 42 velocities differ from progress 1 by %v", d)
	}
}

func TestStepAdvancesTime(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSession(t, cfg, 1)
	for f := 0; f < 4; f++ {
		if _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	want := 4 * float32(cfg.Kernels.TimeStep)
	if got := s.Params().Snapshot().Time; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("time = %v, want %v", got, want)
	}
	if s.Frame() != 4 {
		t.Errorf("frame = %d, want 4", s.Frame())
	}
}

func TestSessionReset(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSession(t, cfg, 1)
	s.Params().SetProgress(1)
	for f := 0; f < 20; f++ {
		if _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Frame() != 0 {
		t.Errorf("frame after reset = %d", s.Frame())
	}
	if u := s.Params().Snapshot(); u.Time != 0 || u.Progress != 1 {
		t.Errorf("params after reset = %+v, want time 0 and progress kept", u)
	}
	if d := maxDistance(s.Positions(), s.SphereTarget()); d != 0 {
		t.Errorf("positions after reset off the sphere by %v", d)
	}
}

func TestNewSessionErrors(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 60, 60))
	draw.Draw(blank, blank.Bounds(), image.White, image.Point{}, draw.Src)

	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		img    image.Image
		want   error
	}{
		{"nil image", nil, nil, ErrNoImage},
		{"empty mask", nil, blank, encode.ErrEmptyMask},
		{"unsupported format", func(c *config.Config) { c.Compute.Format = "rgba16f" }, squareMask(), compute.ErrUnsupportedFormat},
		{"unknown format", func(c *config.Config) { c.Compute.Format = "r11g11b10" }, squareMask(), compute.ErrUnsupportedFormat},
		{"invalid grid", func(c *config.Config) { c.Grid.Size = 0 }, squareMask(), encode.ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			s, err := NewSession(cfg, tt.img, 1)
			if s != nil {
				s.Close()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("NewSession error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseIntegration(t *testing.T) {
	if got, err := ParseIntegration("explicit"); err != nil || got != Explicit {
		t.Errorf("explicit: %v %v", got, err)
	}
	if got, err := ParseIntegration("semi_implicit"); err != nil || got != SemiImplicit {
		t.Errorf("semi_implicit: %v %v", got, err)
	}
	if got, err := ParseIntegration(""); err != nil || got != Explicit {
		t.Errorf("empty: %v %v", got, err)
	}
	if _, err := ParseIntegration("verlet"); err == nil {
		t.Error("expected error for unknown integration")
	}
}
