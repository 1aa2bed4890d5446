// Package raster provides fixed-size RGBA float32 grids used as simulation state.
package raster

import (
	"errors"
	"fmt"
)

// Channels is the number of float32 components stored per cell.
const Channels = 4

var (
	// ErrInvalidSize is returned when a raster is created with non-positive dimensions.
	ErrInvalidSize = errors.New("raster: invalid size")
	// ErrOutOfRange is returned for cell lookups outside the raster extent.
	ErrOutOfRange = errors.New("raster: index out of range")
	// ErrFixedSize is returned when a raster is asked to change its dimensions.
	ErrFixedSize = errors.New("raster: dimensions are fixed")
)

// Vec4 is one cell: xyz plus a reserved w component.
type Vec4 [Channels]float32

// Raster is a width×height array of Vec4 stored row-major.
// Cell (i, j) is row i, column j, at linear index i*width + j.
type Raster struct {
	width  int
	height int
	data   []float32
}

// New allocates a zeroed raster.
func New(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &Raster{
		width:  width,
		height: height,
		data:   make([]float32, width*height*Channels),
	}, nil
}

// NewSquare allocates a zeroed n×n raster.
func NewSquare(n int) (*Raster, error) {
	return New(n, n)
}

// FromData wraps an existing RGBA slice. The slice is used directly, not copied.
func FromData(width, height int, data []float32) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if len(data) != width*height*Channels {
		return nil, fmt.Errorf("%w: %dx%d needs %d values, got %d",
			ErrInvalidSize, width, height, width*height*Channels, len(data))
	}
	return &Raster{width: width, height: height, data: data}, nil
}

// Width returns the number of columns.
func (r *Raster) Width() int { return r.width }

// Height returns the number of rows.
func (r *Raster) Height() int { return r.height }

// Len returns the number of cells.
func (r *Raster) Len() int { return r.width * r.height }

// Data exposes the backing RGBA slice.
func (r *Raster) Data() []float32 { return r.data }

// SameSize reports whether both rasters have identical dimensions.
func (r *Raster) SameSize(o *Raster) bool {
	return o != nil && r.width == o.width && r.height == o.height
}

// At returns cell (i, j).
func (r *Raster) At(i, j int) (Vec4, error) {
	if i < 0 || i >= r.height || j < 0 || j >= r.width {
		return Vec4{}, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfRange, i, j, r.width, r.height)
	}
	return r.AtIndex(i*r.width + j), nil
}

// Set writes cell (i, j).
func (r *Raster) Set(i, j int, v Vec4) error {
	if i < 0 || i >= r.height || j < 0 || j >= r.width {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfRange, i, j, r.width, r.height)
	}
	r.SetIndex(i*r.width+j, v)
	return nil
}

// AtIndex returns the cell at a linear index without bounds reporting.
// Hot path for kernels, which only ever visit valid indices.
func (r *Raster) AtIndex(idx int) Vec4 {
	o := idx * Channels
	d := r.data[o : o+Channels : o+Channels]
	return Vec4{d[0], d[1], d[2], d[3]}
}

// SetIndex writes the cell at a linear index.
func (r *Raster) SetIndex(idx int, v Vec4) {
	o := idx * Channels
	d := r.data[o : o+Channels : o+Channels]
	d[0], d[1], d[2], d[3] = v[0], v[1], v[2], v[3]
}

// SampleUV performs a nearest-cell lookup for texture coordinates in [0,1].
// Coordinates outside the unit square are clamped to the edge.
func (r *Raster) SampleUV(u, v float32) Vec4 {
	j := int(u*float32(r.width-1) + 0.5)
	i := int(v*float32(r.height-1) + 0.5)
	j = clampInt(j, 0, r.width-1)
	i = clampInt(i, 0, r.height-1)
	return r.AtIndex(i*r.width + j)
}

// Resize is not supported: a raster keeps its construction dimensions.
// Asking for the current size is a no-op.
func (r *Raster) Resize(width, height int) error {
	if width == r.width && height == r.height {
		return nil
	}
	return fmt.Errorf("%w: %dx%d -> %dx%d", ErrFixedSize, r.width, r.height, width, height)
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	data := make([]float32, len(r.data))
	copy(data, r.data)
	return &Raster{width: r.width, height: r.height, data: data}
}

// CopyFrom overwrites r with the contents of src.
func (r *Raster) CopyFrom(src *Raster) error {
	if src == nil {
		return fmt.Errorf("%w: copy from nil raster", ErrFixedSize)
	}
	if !r.SameSize(src) {
		return fmt.Errorf("%w: copy %dx%d into %dx%d", ErrFixedSize, src.width, src.height, r.width, r.height)
	}
	copy(r.data, src.data)
	return nil
}

// Fill sets every cell to v.
func (r *Raster) Fill(v Vec4) {
	for idx := 0; idx < r.Len(); idx++ {
		r.SetIndex(idx, v)
	}
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
