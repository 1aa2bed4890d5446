package splat

import (
	"image/color"
	"testing"

	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/raster"
)

func TestVertexUVsSampleOwnCell(t *testing.T) {
	const n = 6
	r, _ := raster.NewSquare(n)
	for idx := 0; idx < r.Len(); idx++ {
		r.SetIndex(idx, raster.Vec4{float32(idx)})
	}

	uvs := VertexUVs(n)
	if len(uvs) != n*n {
		t.Fatalf("expected %d uvs, got %d", n*n, len(uvs))
	}
	for k, uv := range uvs {
		if got := int(r.SampleUV(uv[0], uv[1])[0]); got != k {
			t.Errorf("vertex %d sampled cell %d", k, got)
		}
	}
	if uv := VertexUVs(1)[0]; uv != [2]float32{0, 0} {
		t.Errorf("single vertex uv = %v", uv)
	}
}

var white = Style{
	Point:      color.RGBA{R: 255, G: 255, B: 255},
	Alpha:      0.25,
	Background: color.RGBA{},
}

func TestDrawAccumulatesAdditively(t *testing.T) {
	const n = 4
	positions, _ := raster.NewSquare(n)
	// All 16 particles at the origin, which projects to the viewport center.
	cam := camera.New(64, 64, 70, 2)
	fb := NewFramebuffer(64, 64, 3)
	s := NewSplatter(n, white)

	if err := s.Draw(fb, positions, cam.Projector()); err != nil {
		t.Fatal(err)
	}
	if got := fb.Coverage(32, 32); got != n*n*white.Alpha {
		t.Errorf("center coverage = %v, want %v", got, n*n*white.Alpha)
	}
	if px := fb.Pix[32*64+32]; px.R != 255 || px.A != 255 {
		t.Errorf("saturated center pixel = %v", px)
	}
	if px := fb.Pix[0]; px != (color.RGBA{A: 255}) {
		t.Errorf("corner pixel should be background, got %v", px)
	}
}

func TestDrawSkipsClippedPoints(t *testing.T) {
	positions, _ := raster.NewSquare(2)
	positions.Fill(raster.Vec4{0, 0, 5, 0}) // behind the camera
	cam := camera.New(32, 32, 70, 2)
	fb := NewFramebuffer(32, 32, 2)

	if err := NewSplatter(2, white).Draw(fb, positions, cam.Projector()); err != nil {
		t.Fatal(err)
	}
	for i, px := range fb.Pix {
		if px != (color.RGBA{A: 255}) {
			t.Fatalf("pixel %d drawn for a clipped point: %v", i, px)
		}
	}
}

func TestDrawClearsPreviousFrame(t *testing.T) {
	positions, _ := raster.NewSquare(2)
	cam := camera.New(32, 32, 70, 2)
	fb := NewFramebuffer(32, 32, 2)
	s := NewSplatter(2, white)

	for f := 0; f < 3; f++ {
		if err := s.Draw(fb, positions, cam.Projector()); err != nil {
			t.Fatal(err)
		}
	}
	if got := fb.Coverage(16, 16); got != 4*white.Alpha {
		t.Errorf("coverage after repeated frames = %v, want %v", got, 4*white.Alpha)
	}
}

func TestResize(t *testing.T) {
	fb := NewFramebuffer(10, 10, 2)
	fb.Resize(20, 5)
	if fb.Width != 20 || fb.Height != 5 || len(fb.Pix) != 100 {
		t.Errorf("resize gave %dx%d with %d pixels", fb.Width, fb.Height, len(fb.Pix))
	}
	fb.Resize(0, -1)
	if fb.Width != 1 || fb.Height != 1 {
		t.Errorf("degenerate resize should clamp to 1x1, got %dx%d", fb.Width, fb.Height)
	}
}

func TestRGB(t *testing.T) {
	if got := RGB([]int{10, 20, 30}); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("RGB = %v", got)
	}
	if got := RGB(nil); got != (color.RGBA{A: 255}) {
		t.Errorf("RGB(nil) = %v, want opaque black", got)
	}
}

func TestNearestPicksClosestProjection(t *testing.T) {
	positions, _ := raster.NewSquare(2)
	positions.SetIndex(0, raster.Vec4{-0.5, 0, 0, 1})
	positions.SetIndex(1, raster.Vec4{0.5, 0, 0, 1})
	positions.SetIndex(2, raster.Vec4{0, 0, 0.5, 1}) // in front of 3
	positions.SetIndex(3, raster.Vec4{0, 0, 0, 1})

	cam := camera.New(64, 64, 90, 2)
	proj := cam.Projector()

	idx, ok := Nearest(positions, proj, 32, 32, 4)
	if !ok || idx != 2 {
		t.Errorf("Nearest at center = %d, %v; want 2 (nearer the eye)", idx, ok)
	}

	sx, sy, _, _ := proj.Project(0.5, 0, 0)
	if idx, ok := Nearest(positions, proj, sx+1, sy, 4); !ok || idx != 1 {
		t.Errorf("Nearest near particle 1 = %d, %v", idx, ok)
	}

	if _, ok := Nearest(positions, proj, 0, 0, 4); ok {
		t.Error("expected no particle near the corner")
	}
}
