package splat

import (
	"github.com/pthm-cable/pointmorph/camera"
	"github.com/pthm-cable/pointmorph/raster"
)

// Nearest returns the index of the particle whose projection lies closest to
// screen point (sx, sy), within maxDist pixels. Ties go to the particle nearer
// the eye.
func Nearest(positions *raster.Raster, proj camera.Projector, sx, sy, maxDist float32) (int, bool) {
	best := -1
	bestDist := maxDist * maxDist
	var bestDepth float32

	data := positions.Data()
	for idx := 0; idx < positions.Len(); idx++ {
		o := idx * raster.Channels
		px, py, depth, ok := proj.Project(data[o], data[o+1], data[o+2])
		if !ok {
			continue
		}
		dx, dy := px-sx, py-sy
		d := dx*dx + dy*dy
		if d > bestDist || (d == bestDist && best >= 0 && depth >= bestDepth) {
			continue
		}
		best, bestDist, bestDepth = idx, d, depth
	}
	return best, best >= 0
}
