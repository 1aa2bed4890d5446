package encode

import (
	"errors"
	"fmt"
	"image"
	"math/rand"

	"golang.org/x/image/draw"

	"github.com/pthm-cable/pointmorph/raster"
)

// ErrEmptyMask is returned when an image has no pixel dark enough to be foreground.
var ErrEmptyMask = errors.New("encode: image mask has no foreground pixels")

// Point is a normalized 2D mask coordinate, roughly in [-0.5, 0.5].
type Point struct {
	X, Y float32
}

// MaskOptions tunes how an image becomes a target raster.
type MaskOptions struct {
	CanvasSize         int     // side of the square canvas the image is drawn into
	Threshold          uint8   // red channel values below this are foreground
	Jitter             float64 // full width of the xy jitter (0.01 -> ±0.005)
	DepthJitter        float64 // full width of the z and w jitter
	OutlierProbability float64 // chance a particle is scattered off the silhouette
	OutlierSpread      float64 // full width of the outlier square
}

// DefaultMaskOptions returns the reference tuning.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{
		CanvasSize:         600,
		Threshold:          5,
		Jitter:             0.01,
		DepthJitter:        0.01,
		OutlierProbability: 0.05,
		OutlierSpread:      3.0,
	}
}

func (o MaskOptions) validate() error {
	if o.CanvasSize <= 0 {
		return fmt.Errorf("encode: canvas size must be positive, got %d", o.CanvasSize)
	}
	if o.OutlierProbability < 0 || o.OutlierProbability > 1 {
		return fmt.Errorf("encode: outlier probability %v outside [0,1]", o.OutlierProbability)
	}
	return nil
}

// Rasterize draws img onto an opaque white CanvasSize² canvas.
// Transparent regions end up white and therefore count as background.
func Rasterize(img image.Image, size int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.BiLinear.Scale(canvas, canvas.Bounds(), img, b, draw.Over, nil)
	}
	return canvas
}

// SampleMask collects the normalized coordinates of all foreground pixels.
func SampleMask(img image.Image, opts MaskOptions) ([]Point, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	size := opts.CanvasSize
	canvas := Rasterize(img, size)

	var points []Point
	for row := 0; row < size; row++ {
		off := row * canvas.Stride
		for col := 0; col < size; col++ {
			if canvas.Pix[off+col*4] < opts.Threshold {
				points = append(points, Point{
					X: float32(col)/float32(size) - 0.5,
					Y: 0.5 - float32(row)/float32(size),
				})
			}
		}
	}
	if len(points) == 0 {
		return nil, ErrEmptyMask
	}
	return points, nil
}

// ImageMask builds an n×n target raster from the foreground of img.
// Each cell takes a random foreground point plus jitter, or with
// OutlierProbability a point scattered across the outlier square.
func ImageMask(img image.Image, n int, rng *rand.Rand, opts MaskOptions) (*raster.Raster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	points, err := SampleMask(img, opts)
	if err != nil {
		return nil, err
	}
	return ScatterPoints(points, n, rng, opts)
}

// ScatterPoints fills an n×n raster by sampling from points.
func ScatterPoints(points []Point, n int, rng *rand.Rand, opts MaskOptions) (*raster.Raster, error) {
	if len(points) == 0 {
		return nil, ErrEmptyMask
	}
	r, err := raster.NewSquare(n)
	if err != nil {
		return nil, err
	}

	for idx := 0; idx < r.Len(); idx++ {
		p := points[rng.Intn(len(points))]
		x, y := float64(p.X), float64(p.Y)
		if rng.Float64() < opts.OutlierProbability {
			x = opts.OutlierSpread * (rng.Float64() - 0.5)
			y = opts.OutlierSpread * (rng.Float64() - 0.5)
		}
		r.SetIndex(idx, raster.Vec4{
			float32(x + (rng.Float64()-0.5)*opts.Jitter),
			float32(y + (rng.Float64()-0.5)*opts.Jitter),
			float32((rng.Float64() - 0.5) * opts.DepthJitter),
			float32((rng.Float64() - 0.5) * opts.DepthJitter),
		})
	}
	return r, nil
}
