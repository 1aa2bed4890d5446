package compute

import (
	"fmt"

	"github.com/pthm-cable/pointmorph/raster"
)

// Cell is the view a kernel gets of one grid cell. It only exposes values at
// its own index, so a kernel cannot depend on neighbouring cells.
type Cell struct {
	I, J  int // row, column
	Index int // I*width + J

	width, height int
	reader        string
	sources       [][]float32 // by variable id; nil when not a dependency
}

// Read returns the value of a declared dependency at this cell.
// Reading a variable that is not a dependency of the running kernel panics;
// the graph turns that into a KernelError.
func (c *Cell) Read(v *Variable) raster.Vec4 {
	if v == nil || v.id >= len(c.sources) || c.sources[v.id] == nil {
		name := "<nil>"
		if v != nil {
			name = v.name
		}
		panic(fmt.Errorf("%w: %s reads %s", ErrUndeclaredRead, c.reader, name))
	}
	o := c.Index * raster.Channels
	d := c.sources[v.id][o : o+raster.Channels : o+raster.Channels]
	return raster.Vec4{d[0], d[1], d[2], d[3]}
}

// Sample returns the value of an immutable texture at this cell.
func (c *Cell) Sample(t *Texture) raster.Vec4 {
	return t.r.AtIndex(c.Index)
}

// UV returns the normalized cell coordinate, matching the vertex UVs used
// by the point renderer.
func (c *Cell) UV() (u, v float32) {
	if c.width > 1 {
		u = float32(c.J) / float32(c.width-1)
	}
	if c.height > 1 {
		v = float32(c.I) / float32(c.height-1)
	}
	return u, v
}
