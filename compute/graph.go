// Package compute evaluates per-cell kernels over double-buffered rasters.
//
// A Graph holds variables, each with a kernel and two rasters. Every Compute
// call evaluates all kernels against the previous frame's committed rasters,
// writes into the spare buffers, and commits all variables together once every
// kernel has finished.
package compute

import (
	"fmt"

	"github.com/pthm-cable/pointmorph/raster"
)

// Format is the storage format of the graph's rasters.
type Format int

const (
	FormatRGBA32F Format = iota
	FormatRGBA16F
	FormatRGBA8
)

func (f Format) String() string {
	switch f {
	case FormatRGBA32F:
		return "rgba32f"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGBA8:
		return "rgba8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a config name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "rgba32f", "":
		return FormatRGBA32F, nil
	case "rgba16f":
		return FormatRGBA16F, nil
	case "rgba8":
		return FormatRGBA8, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Kernel computes the next value of one cell. The uniforms are passed by
// value: every cell of a frame sees the same snapshot.
type Kernel[U any] func(c *Cell, u U) raster.Vec4

// ReadMode selects which buffer of a dependency a kernel reads.
type ReadMode int

const (
	// ReadPrevious reads the dependency as committed by the previous frame.
	ReadPrevious ReadMode = iota
	// ReadCurrent reads what the dependency wrote earlier in this frame.
	// The dependency must be declared before the reader.
	ReadCurrent
)

// Dependency is one input of a variable's kernel.
type Dependency struct {
	Var  *Variable
	Mode ReadMode
}

// Previous declares a read of v's previous-frame state.
func Previous(v *Variable) Dependency { return Dependency{Var: v, Mode: ReadPrevious} }

// Current declares a read of v's state written earlier in the same frame.
func Current(v *Variable) Dependency { return Dependency{Var: v, Mode: ReadCurrent} }

// Variable is one simulated quantity with ping-pong storage.
type Variable struct {
	name    string
	id      int
	owner   any
	initial *raster.Raster
	buffers [2]*raster.Raster
	current int
	deps    []Dependency
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Dependencies returns the declared inputs.
func (v *Variable) Dependencies() []Dependency { return v.deps }

// Texture is an immutable per-cell input, such as a target shape.
type Texture struct {
	name string
	r    *raster.Raster
}

// Name returns the texture name.
func (t *Texture) Name() string { return t.name }

// Raster returns the bound raster.
func (t *Texture) Raster() *raster.Raster { return t.r }

// Option configures a Graph.
type Option func(*options)

type options struct {
	format  Format
	workers int
}

// WithFormat sets the raster storage format. Only FormatRGBA32F is supported.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f }
}

// WithWorkers sets the worker count (0 = GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// Graph evaluates a set of mutually dependent variables once per frame.
type Graph[U any] struct {
	width, height int
	opts          options

	vars     []*Variable
	kernels  []Kernel[U]
	textures []*Texture

	pool    *pool
	cells   []Cell        // scratch per worker
	sources [][][]float32 // per variable: dependency data by variable id

	uniforms    U
	frame       uint64
	initialized bool
	closed      bool
	err         error
}

// New creates an empty graph for width×height rasters.
func New[U any](width, height int, opts ...Option) *Graph[U] {
	o := options{format: FormatRGBA32F}
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph[U]{width: width, height: height, opts: o}
}

// Width returns the raster width.
func (g *Graph[U]) Width() int { return g.width }

// Height returns the raster height.
func (g *Graph[U]) Height() int { return g.height }

// Workers returns the worker count used for each pass.
func (g *Graph[U]) Workers() int {
	if g.pool == nil {
		return 0
	}
	return g.pool.numWorkers
}

// Frame returns the number of committed evaluations.
func (g *Graph[U]) Frame() uint64 { return g.frame }

// AddVariable declares a variable. Its kernel runs in declaration order.
// Validation happens in Init.
func (g *Graph[U]) AddVariable(name string, kernel Kernel[U], initial *raster.Raster) *Variable {
	v := &Variable{
		name:    name,
		id:      len(g.vars),
		owner:   g,
		initial: initial,
	}
	g.vars = append(g.vars, v)
	g.kernels = append(g.kernels, kernel)
	return v
}

// AddTexture binds an immutable raster readable by every kernel.
func (g *Graph[U]) AddTexture(name string, r *raster.Raster) *Texture {
	t := &Texture{name: name, r: r}
	g.textures = append(g.textures, t)
	return t
}

// SetVariableDependencies replaces the inputs of v.
func (g *Graph[U]) SetVariableDependencies(v *Variable, deps ...Dependency) {
	v.deps = append([]Dependency(nil), deps...)
}

// Init validates the graph and allocates ping-pong storage.
func (g *Graph[U]) Init() error {
	if g.initialized {
		return ErrAlreadyInitialized
	}
	if g.closed {
		return ErrClosed
	}
	if err := g.validate(); err != nil {
		return fmt.Errorf("compute: init: %w", err)
	}

	for _, v := range g.vars {
		next, err := raster.New(g.width, g.height)
		if err != nil {
			return fmt.Errorf("compute: init %s: %w", v.name, err)
		}
		v.buffers[0] = v.initial.Clone()
		v.buffers[1] = next
		v.current = 0
	}

	g.sources = make([][][]float32, len(g.vars))
	for _, v := range g.vars {
		g.sources[v.id] = make([][]float32, len(g.vars))
	}

	g.pool = newPool(g.opts.workers)
	g.cells = make([]Cell, g.pool.numWorkers)
	for i := range g.cells {
		g.cells[i].width = g.width
		g.cells[i].height = g.height
	}
	g.pool.start()

	g.initialized = true
	return nil
}

func (g *Graph[U]) validate() error {
	if g.width <= 0 || g.height <= 0 {
		return fmt.Errorf("%w: %dx%d", raster.ErrInvalidSize, g.width, g.height)
	}
	if g.opts.format != FormatRGBA32F {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, g.opts.format)
	}
	if len(g.vars) == 0 {
		return ErrNoVariables
	}

	names := make(map[string]bool, len(g.vars))
	for _, v := range g.vars {
		if v.name == "" {
			return fmt.Errorf("%w: variable %d has no name", ErrInvalidVariable, v.id)
		}
		if names[v.name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidVariable, v.name)
		}
		names[v.name] = true

		if g.kernels[v.id] == nil {
			return fmt.Errorf("%w: %s has no kernel", ErrInvalidVariable, v.name)
		}
		if v.initial == nil || v.initial.Width() != g.width || v.initial.Height() != g.height {
			return fmt.Errorf("%w: initial raster of %s", ErrDimensionMismatch, v.name)
		}

		seen := make(map[*Variable]bool, len(v.deps))
		for _, d := range v.deps {
			if d.Var == nil || d.Var.owner != any(g) {
				return fmt.Errorf("%w: in %s", ErrUnknownVariable, v.name)
			}
			if seen[d.Var] {
				return fmt.Errorf("%w: %s depends on %s twice", ErrInvalidDependency, v.name, d.Var.name)
			}
			seen[d.Var] = true
			if d.Mode == ReadCurrent && d.Var.id >= v.id {
				return fmt.Errorf("%w: %s reads %s from the same frame before it is written",
					ErrInvalidDependency, v.name, d.Var.name)
			}
		}
	}

	for _, t := range g.textures {
		if t.r == nil || t.r.Width() != g.width || t.r.Height() != g.height {
			return fmt.Errorf("%w: texture %s", ErrDimensionMismatch, t.name)
		}
	}
	return nil
}

// Compute performs one full evaluation with the given uniforms.
// On error nothing is committed and the graph refuses further frames.
func (g *Graph[U]) Compute(u U) error {
	switch {
	case g.closed:
		return ErrClosed
	case !g.initialized:
		return ErrNotInitialized
	case g.err != nil:
		return g.err
	}

	g.uniforms = u
	for _, v := range g.vars {
		g.resolveSources(v)
		dst := v.buffers[1-v.current]
		err := g.pool.run(g.height, func(worker, start, end int) error {
			g.pass(v, dst, worker, start, end)
			return nil
		})
		if err != nil {
			g.err = &KernelError{Variable: v.name, Frame: g.frame, Err: err}
			return g.err
		}
	}

	for _, v := range g.vars {
		v.current = 1 - v.current
	}
	g.frame++
	return nil
}

// resolveSources points v's dependency table at this frame's buffers.
func (g *Graph[U]) resolveSources(v *Variable) {
	src := g.sources[v.id]
	for _, d := range v.deps {
		switch d.Mode {
		case ReadCurrent:
			src[d.Var.id] = d.Var.buffers[1-d.Var.current].Data()
		default:
			src[d.Var.id] = d.Var.buffers[d.Var.current].Data()
		}
	}
}

// pass evaluates v's kernel for rows [start, end).
func (g *Graph[U]) pass(v *Variable, dst *raster.Raster, worker, start, end int) {
	c := &g.cells[worker]
	c.reader = v.name
	c.sources = g.sources[v.id]
	kernel := g.kernels[v.id]
	u := g.uniforms

	for i := start; i < end; i++ {
		row := i * g.width
		for j := 0; j < g.width; j++ {
			c.I, c.J, c.Index = i, j, row+j
			dst.SetIndex(row+j, kernel(c, u))
		}
	}
}

// CurrentRaster returns the committed state of v. The raster stays valid
// until the next Compute, which reuses it as a write target.
func (g *Graph[U]) CurrentRaster(v *Variable) *raster.Raster {
	if !g.initialized {
		return nil
	}
	return v.buffers[v.current]
}

// Err returns the error that halted the graph, if any.
func (g *Graph[U]) Err() error { return g.err }

// Reset restores every variable to its initial raster.
func (g *Graph[U]) Reset() error {
	if !g.initialized {
		return ErrNotInitialized
	}
	if g.err != nil {
		return g.err
	}
	for _, v := range g.vars {
		v.current = 0
		if err := v.buffers[0].CopyFrom(v.initial); err != nil {
			return err
		}
	}
	g.frame = 0
	return nil
}

// Close stops the worker pool.
func (g *Graph[U]) Close() {
	if g.closed {
		return
	}
	if g.pool != nil {
		g.pool.stop()
	}
	g.closed = true
}
