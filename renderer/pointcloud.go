// Package renderer draws the particle cloud with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/raster"
	"github.com/pthm-cable/pointmorph/renderer/splat"
)

// PointCloudRenderer splats particles into a CPU framebuffer and presents it
// as a screen-sized texture.
type PointCloudRenderer struct {
	splatter *splat.Splatter
	fb       *splat.Framebuffer
	tex      rl.Texture2D

	screenW, screenH int32
	initialized      bool
}

// NewPointCloudRenderer creates a renderer for an n×n particle grid.
func NewPointCloudRenderer(screenW, screenH int32, n, workers int, style splat.Style) *PointCloudRenderer {
	return &PointCloudRenderer{
		splatter: splat.NewSplatter(n, style),
		fb:       splat.NewFramebuffer(int(screenW), int(screenH), workers),
		screenW:  screenW,
		screenH:  screenH,
	}
}

// Init creates the texture (must be called after raylib window is created).
func (r *PointCloudRenderer) Init() {
	if r.initialized {
		return
	}
	img := rl.GenImageColor(int(r.screenW), int(r.screenH), rl.Black)
	r.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(r.tex, rl.FilterPoint)
	rl.UnloadImage(img)
	r.initialized = true
}

// Resize reallocates the framebuffer and texture for a new screen size.
func (r *PointCloudRenderer) Resize(w, h int32) {
	if w == r.screenW && h == r.screenH {
		return
	}
	r.screenW, r.screenH = w, h
	r.fb.Resize(int(w), int(h))
	if r.initialized {
		rl.UnloadTexture(r.tex)
		r.initialized = false
		r.Init()
	}
}

// Draw renders positions as seen through proj.
func (r *PointCloudRenderer) Draw(positions *raster.Raster, proj camera.Projector) error {
	if !r.initialized {
		r.Init()
	}
	if err := r.splatter.Draw(r.fb, positions, proj); err != nil {
		return err
	}
	rl.UpdateTexture(r.tex, r.fb.Pix)

	src := rl.Rectangle{X: 0, Y: 0, Width: float32(r.fb.Width), Height: float32(r.fb.Height)}
	dst := rl.Rectangle{X: 0, Y: 0, Width: float32(r.screenW), Height: float32(r.screenH)}
	rl.DrawTexturePro(r.tex, src, dst, rl.Vector2{}, 0, rl.White)
	return nil
}

// Unload frees GPU resources.
func (r *PointCloudRenderer) Unload() {
	if !r.initialized {
		return
	}
	rl.UnloadTexture(r.tex)
	r.initialized = false
}
