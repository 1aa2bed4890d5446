// Package encode turns geometry and images into particle state rasters.
package encode

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/pointmorph/raster"
)

// ErrInvalidSize is returned for a non-positive grid size.
var ErrInvalidSize = errors.New("encode: invalid grid size")

// Sphere returns an n×n raster of points distributed uniformly on the unit sphere.
//
// The polar angle is acos of a uniform variable in [-1,1], which makes z uniform
// and avoids the pole clustering of sampling both angles uniformly.
func Sphere(n int, rng *rand.Rand) (*raster.Raster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	r, err := raster.NewSquare(n)
	if err != nil {
		return nil, err
	}

	for idx := 0; idx < r.Len(); idx++ {
		alpha := rng.Float64() * 2 * math.Pi
		beta := math.Acos(rng.Float64()*2 - 1)
		sinBeta := math.Sin(beta)
		r.SetIndex(idx, raster.Vec4{
			float32(sinBeta * math.Cos(alpha)),
			float32(sinBeta * math.Sin(alpha)),
			float32(math.Cos(beta)),
			0,
		})
	}
	return r, nil
}
