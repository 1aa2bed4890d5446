package compute

import (
	"errors"
	"testing"

	"github.com/pthm-cable/pointmorph/raster"
)

type testUniforms struct {
	Add   float32
	Scale float32
}

func filled(t testing.TB, w, h int, v raster.Vec4) *raster.Raster {
	t.Helper()
	r, err := raster.New(w, h)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	r.Fill(v)
	return r
}

func identity(c *Cell, u testUniforms) raster.Vec4 { return raster.Vec4{} }

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph[testUniforms]
		want  error
	}{
		{
			name: "unsupported format",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4, WithFormat(FormatRGBA8))
				g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				return g
			},
			want: ErrUnsupportedFormat,
		},
		{
			name:  "no variables",
			build: func() *Graph[testUniforms] { return New[testUniforms](4, 4) },
			want:  ErrNoVariables,
		},
		{
			name: "invalid size",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](0, 4)
				g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				return g
			},
			want: raster.ErrInvalidSize,
		},
		{
			name: "nil kernel",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				g.AddVariable("a", nil, filled(t, 4, 4, raster.Vec4{}))
				return g
			},
			want: ErrInvalidVariable,
		},
		{
			name: "duplicate name",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				return g
			},
			want: ErrInvalidVariable,
		},
		{
			name: "initial size mismatch",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				g.AddVariable("a", identity, filled(t, 5, 4, raster.Vec4{}))
				return g
			},
			want: ErrDimensionMismatch,
		},
		{
			name: "missing initial",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				g.AddVariable("a", identity, nil)
				return g
			},
			want: ErrDimensionMismatch,
		},
		{
			name: "texture size mismatch",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				g.AddTexture("target", filled(t, 2, 2, raster.Vec4{}))
				return g
			},
			want: ErrDimensionMismatch,
		},
		{
			name: "foreign variable",
			build: func() *Graph[testUniforms] {
				other := New[testUniforms](4, 4)
				foreign := other.AddVariable("x", identity, filled(t, 4, 4, raster.Vec4{}))
				g := New[testUniforms](4, 4)
				a := g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				g.SetVariableDependencies(a, Previous(foreign))
				return g
			},
			want: ErrUnknownVariable,
		},
		{
			name: "current self read",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				a := g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				g.SetVariableDependencies(a, Current(a))
				return g
			},
			want: ErrInvalidDependency,
		},
		{
			name: "current forward read",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				a := g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				b := g.AddVariable("b", identity, filled(t, 4, 4, raster.Vec4{}))
				g.SetVariableDependencies(a, Current(b))
				return g
			},
			want: ErrInvalidDependency,
		},
		{
			name: "duplicate dependency",
			build: func() *Graph[testUniforms] {
				g := New[testUniforms](4, 4)
				a := g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
				g.SetVariableDependencies(a, Previous(a), Previous(a))
				return g
			},
			want: ErrInvalidDependency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build()
			defer g.Close()
			err := g.Init()
			if !errors.Is(err, tt.want) {
				t.Errorf("Init() error = %v, want %v", err, tt.want)
			}
			if err := g.Compute(testUniforms{}); !errors.Is(err, ErrNotInitialized) {
				t.Errorf("Compute after failed Init = %v, want ErrNotInitialized", err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("rgba32f"); err != nil || f != FormatRGBA32F {
		t.Errorf("ParseFormat(rgba32f) = %v, %v", f, err)
	}
	if _, err := ParseFormat("r11g11b10"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ParseFormat(unknown) error = %v", err)
	}
}

// buildPair builds the a/b pair used by the feedback tests:
// a' = a + b, b' = a + 1.
func buildPair(t testing.TB, w, h int, bMode ReadMode, opts ...Option) (*Graph[testUniforms], *Variable, *Variable) {
	t.Helper()
	g := New[testUniforms](w, h, opts...)
	var a, b *Variable
	a = g.AddVariable("a", func(c *Cell, u testUniforms) raster.Vec4 {
		av, bv := c.Read(a), c.Read(b)
		return raster.Vec4{av[0] + bv[0]}
	}, filled(t, w, h, raster.Vec4{0}))
	b = g.AddVariable("b", func(c *Cell, u testUniforms) raster.Vec4 {
		av := c.Read(a)
		return raster.Vec4{av[0] + 1}
	}, filled(t, w, h, raster.Vec4{1}))
	g.SetVariableDependencies(a, Previous(a), Previous(b))
	g.SetVariableDependencies(b, Dependency{Var: a, Mode: bMode}, Previous(b))
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return g, a, b
}

func TestComputeReadsPreviousFrame(t *testing.T) {
	g, a, b := buildPair(t, 8, 8, ReadPrevious)
	defer g.Close()

	// (a, b): (0,1) -> (1,1) -> (2,2) -> (4,3) -> (7,5)
	want := [][2]float32{{1, 1}, {2, 2}, {4, 3}, {7, 5}}
	for frame, w := range want {
		if err := g.Compute(testUniforms{}); err != nil {
			t.Fatalf("Compute: %v", err)
		}
		av := g.CurrentRaster(a).AtIndex(0)[0]
		bv := g.CurrentRaster(b).AtIndex(0)[0]
		if av != w[0] || bv != w[1] {
			t.Errorf("frame %d: (a, b) = (%v, %v), want (%v, %v)", frame+1, av, bv, w[0], w[1])
		}
	}
	if g.Frame() != uint64(len(want)) {
		t.Errorf("Frame() = %d, want %d", g.Frame(), len(want))
	}
}

func TestComputeReadsCurrentFrame(t *testing.T) {
	g, a, b := buildPair(t, 8, 8, ReadCurrent)
	defer g.Close()

	// b sees the a written in the same frame: (0,1) -> (1,2) -> (3,4)
	want := [][2]float32{{1, 2}, {3, 4}}
	for frame, w := range want {
		if err := g.Compute(testUniforms{}); err != nil {
			t.Fatalf("Compute: %v", err)
		}
		av := g.CurrentRaster(a).AtIndex(5)[0]
		bv := g.CurrentRaster(b).AtIndex(5)[0]
		if av != w[0] || bv != w[1] {
			t.Errorf("frame %d: (a, b) = (%v, %v), want (%v, %v)", frame+1, av, bv, w[0], w[1])
		}
	}
}

func TestInitialRasterIsNotAliased(t *testing.T) {
	initial := filled(t, 4, 4, raster.Vec4{3})
	g := New[testUniforms](4, 4)
	var v *Variable
	v = g.AddVariable("v", func(c *Cell, u testUniforms) raster.Vec4 {
		return raster.Vec4{c.Read(v)[0] + u.Add}
	}, initial)
	g.SetVariableDependencies(v, Previous(v))
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer g.Close()

	for i := 0; i < 3; i++ {
		if err := g.Compute(testUniforms{Add: 1}); err != nil {
			t.Fatalf("Compute: %v", err)
		}
	}
	if initial.AtIndex(0)[0] != 3 {
		t.Errorf("initial raster was modified: %v", initial.AtIndex(0))
	}
	if got := g.CurrentRaster(v).AtIndex(0)[0]; got != 6 {
		t.Errorf("value after 3 frames = %v, want 6", got)
	}

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := g.CurrentRaster(v).AtIndex(0)[0]; got != 3 || g.Frame() != 0 {
		t.Errorf("after Reset value = %v frame = %d", got, g.Frame())
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	const w, h = 37, 64
	run := func(workers int) []float32 {
		g := New[testUniforms](w, h, WithWorkers(workers))
		tex := g.AddTexture("offset", func() *raster.Raster {
			r := filled(t, w, h, raster.Vec4{})
			for idx := 0; idx < r.Len(); idx++ {
				r.SetIndex(idx, raster.Vec4{float32(idx % 7)})
			}
			return r
		}())
		var v *Variable
		v = g.AddVariable("v", func(c *Cell, u testUniforms) raster.Vec4 {
			prev := c.Read(v)
			uu, vv := c.UV()
			return raster.Vec4{
				prev[0]*u.Scale + c.Sample(tex)[0],
				float32(c.I*w + c.J),
				uu, vv,
			}
		}, filled(t, w, h, raster.Vec4{1}))
		g.SetVariableDependencies(v, Previous(v))
		if err := g.Init(); err != nil {
			t.Fatalf("Init: %v", err)
		}
		defer g.Close()
		for i := 0; i < 5; i++ {
			if err := g.Compute(testUniforms{Scale: 0.5}); err != nil {
				t.Fatalf("Compute: %v", err)
			}
		}
		return append([]float32(nil), g.CurrentRaster(v).Data()...)
	}

	serial := run(1)
	parallel := run(4)
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Fatalf("value %d differs: serial %v, parallel %v", i, serial[i], parallel[i])
		}
	}
	for idx := 0; idx < w*h; idx++ {
		if int(serial[idx*4+1]) != idx {
			t.Fatalf("cell %d saw index %v", idx, serial[idx*4+1])
		}
	}
}

func TestKernelPanicHaltsWithoutCommit(t *testing.T) {
	const w, h = 16, 16
	g := New[testUniforms](w, h, WithWorkers(4))
	var v *Variable
	v = g.AddVariable("v", func(c *Cell, u testUniforms) raster.Vec4 {
		if u.Add < 0 && c.Index == w*h-1 {
			panic("driver lost")
		}
		return raster.Vec4{c.Read(v)[0] + u.Add}
	}, filled(t, w, h, raster.Vec4{}))
	g.SetVariableDependencies(v, Previous(v))
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer g.Close()

	if err := g.Compute(testUniforms{Add: 1}); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	before := append([]float32(nil), g.CurrentRaster(v).Data()...)

	err := g.Compute(testUniforms{Add: -1})
	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatalf("Compute error = %v, want *KernelError", err)
	}
	if kerr.Variable != "v" || kerr.Frame != 1 {
		t.Errorf("KernelError = %+v", kerr)
	}
	if g.Frame() != 1 {
		t.Errorf("frame advanced to %d after failure", g.Frame())
	}
	after := g.CurrentRaster(v).Data()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("committed raster changed at %d after failed frame", i)
		}
	}

	if err2 := g.Compute(testUniforms{Add: 1}); err2 != err {
		t.Errorf("halted graph returned %v, want %v", err2, err)
	}
	if g.Err() != err {
		t.Errorf("Err() = %v", g.Err())
	}
}

func TestUndeclaredReadFails(t *testing.T) {
	g := New[testUniforms](4, 4)
	a := g.AddVariable("a", identity, filled(t, 4, 4, raster.Vec4{}))
	var b *Variable
	b = g.AddVariable("b", func(c *Cell, u testUniforms) raster.Vec4 {
		return c.Read(a)
	}, filled(t, 4, 4, raster.Vec4{}))
	g.SetVariableDependencies(b, Previous(b))
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer g.Close()

	if err := g.Compute(testUniforms{}); !errors.Is(err, ErrUndeclaredRead) {
		t.Errorf("Compute error = %v, want ErrUndeclaredRead", err)
	}
}

func TestLifecycleErrors(t *testing.T) {
	g := New[testUniforms](2, 2)
	g.AddVariable("a", identity, filled(t, 2, 2, raster.Vec4{}))
	if g.CurrentRaster(g.vars[0]) != nil {
		t.Error("CurrentRaster before Init should be nil")
	}
	if err := g.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := g.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init = %v", err)
	}
	g.Close()
	g.Close()
	if err := g.Compute(testUniforms{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Compute after Close = %v", err)
	}
}

func BenchmarkComputeGrid(b *testing.B) {
	const n = 700
	g := New[testUniforms](n, n)
	var pos, vel *Variable
	vel = g.AddVariable("velocity", func(c *Cell, u testUniforms) raster.Vec4 {
		p, v := c.Read(pos), c.Read(vel)
		return raster.Vec4{v[0]*0.9 - p[0]*u.Scale, v[1]*0.9 - p[1]*u.Scale, v[2]*0.9 - p[2]*u.Scale}
	}, filled(b, n, n, raster.Vec4{0.01, 0.01, 0.01}))
	pos = g.AddVariable("position", func(c *Cell, u testUniforms) raster.Vec4 {
		p, v := c.Read(pos), c.Read(vel)
		return raster.Vec4{p[0] + v[0], p[1] + v[1], p[2] + v[2]}
	}, filled(b, n, n, raster.Vec4{1, 0, 0}))
	g.SetVariableDependencies(vel, Previous(pos), Previous(vel))
	g.SetVariableDependencies(pos, Previous(pos), Current(vel))
	if err := g.Init(); err != nil {
		b.Fatalf("Init: %v", err)
	}
	defer g.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := g.Compute(testUniforms{Scale: 0.01}); err != nil {
			b.Fatal(err)
		}
	}
}
