// Package splat rasterises the particle cloud into a CPU framebuffer.
// It has no raylib dependency so it can be tested headless.
package splat

import (
	"image/color"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/raster"
)

// VertexUVs returns the texture coordinate of every grid vertex.
// Vertex (i, j) maps to (j/(n-1), i/(n-1)), so each vertex samples its own cell.
func VertexUVs(n int) [][2]float32 {
	uvs := make([][2]float32, n*n)
	den := float32(n - 1)
	if n == 1 {
		den = 1
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			uvs[i*n+j] = [2]float32{float32(j) / den, float32(i) / den}
		}
	}
	return uvs
}

// Style sets how points blend into the framebuffer.
type Style struct {
	Point      color.RGBA // point colour; alpha is ignored
	Alpha      float32    // contribution of one point, additive
	Background color.RGBA
}

// RGB converts a config colour triple to an opaque colour.
func RGB(c []int) color.RGBA {
	out := color.RGBA{A: 255}
	if len(c) >= 3 {
		out.R, out.G, out.B = uint8(c[0]), uint8(c[1]), uint8(c[2])
	}
	return out
}

// Framebuffer accumulates point coverage and resolves it to pixels.
type Framebuffer struct {
	Width, Height int
	Pix           []color.RGBA

	// one coverage buffer per worker, summed in Resolve
	accum [][]float32
}

// NewFramebuffer allocates a w×h framebuffer for the given number of workers.
func NewFramebuffer(w, h, workers int) *Framebuffer {
	if workers < 1 {
		workers = 1
	}
	fb := &Framebuffer{accum: make([][]float32, workers)}
	fb.Resize(w, h)
	return fb
}

// Resize reallocates the buffers. Contents are discarded.
func (fb *Framebuffer) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	fb.Width, fb.Height = w, h
	fb.Pix = make([]color.RGBA, w*h)
	for k := range fb.accum {
		fb.accum[k] = make([]float32, w*h)
	}
}

// Coverage returns the summed coverage of pixel (x, y) after Resolve.
func (fb *Framebuffer) Coverage(x, y int) float32 {
	return fb.accum[0][y*fb.Width+x]
}

// Splatter draws a position raster through a camera projection.
type Splatter struct {
	uvs   [][2]float32
	style Style
}

// NewSplatter prepares vertex UVs for an n×n grid.
func NewSplatter(n int, style Style) *Splatter {
	return &Splatter{uvs: VertexUVs(n), style: style}
}

// Draw clears fb, splats every particle of positions and resolves pixels.
// Points outside the clip planes or the viewport are skipped.
func (s *Splatter) Draw(fb *Framebuffer, positions *raster.Raster, proj camera.Projector) error {
	workers := len(fb.accum)
	chunk := (len(s.uvs) + workers - 1) / workers

	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		acc := fb.accum[w]
		start := w * chunk
		end := min(start+chunk, len(s.uvs))
		eg.Go(func() error {
			clear(acc)
			for k := start; k < end; k++ {
				uv := s.uvs[k]
				p := positions.SampleUV(uv[0], uv[1])
				sx, sy, _, ok := proj.Project(p[0], p[1], p[2])
				if !ok {
					continue
				}
				x, y := int(sx), int(sy)
				if sx < 0 || sy < 0 || x >= fb.Width || y >= fb.Height {
					continue
				}
				acc[y*fb.Width+x] += s.style.Alpha
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	s.resolve(fb)
	return nil
}

// resolve sums the worker buffers into accum[0] and writes pixels.
func (s *Splatter) resolve(fb *Framebuffer) {
	total := fb.accum[0]
	for _, acc := range fb.accum[1:] {
		for i, v := range acc {
			total[i] += v
		}
	}

	bg, pt := s.style.Background, s.style.Point
	for i, v := range total {
		if v > 1 {
			v = 1
		}
		fb.Pix[i] = color.RGBA{
			R: blend(bg.R, pt.R, v),
			G: blend(bg.G, pt.G, v),
			B: blend(bg.B, pt.B, v),
			A: 255,
		}
	}
}

// blend adds v of the point colour to the background, saturating at 255.
func blend(bg, pt uint8, v float32) uint8 {
	c := float32(bg) + float32(pt)*v
	if c > 255 {
		return 255
	}
	return uint8(c)
}
