package encode

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/pointmorph/raster"
)

// VelocitySeed returns an n×n raster with xyz uniform in [-amplitude, amplitude]
// and w = 0. It is only used as the first input of the feedback loop.
func VelocitySeed(n int, amplitude float64, rng *rand.Rand) (*raster.Raster, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	r, err := raster.NewSquare(n)
	if err != nil {
		return nil, err
	}
	for idx := 0; idx < r.Len(); idx++ {
		r.SetIndex(idx, raster.Vec4{
			float32((rng.Float64()*2 - 1) * amplitude),
			float32((rng.Float64()*2 - 1) * amplitude),
			float32((rng.Float64()*2 - 1) * amplitude),
			0,
		})
	}
	return r, nil
}
