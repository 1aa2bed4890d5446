// Package camera provides an orbit camera around the origin of the point cloud.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AutoRotateStep is the azimuth change per frame at AutoRotateSpeed 1:
// one full orbit per minute at 60 frames per second.
const AutoRotateStep = 2 * math.Pi / 60 / 60

// maxElevation keeps the eye off the poles, where the up vector degenerates.
const maxElevation = math.Pi/2 - 0.01

var worldUp = r3.Vec{Y: 1}

// Camera orbits the origin and looks at it with a perspective projection.
type Camera struct {
	// Orbit angles in radians. Elevation 0 is the equator.
	Azimuth, Elevation float64

	// Distance from the origin
	Distance float64

	// Vertical field of view in degrees
	FOV float64

	// Clip planes
	Near, Far float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Distance constraints for zooming
	MinDistance, MaxDistance float64

	// AutoRotate spins the azimuth every Update at AutoRotateSpeed.
	AutoRotate      bool
	AutoRotateSpeed float64

	initialDistance float64
}

// New creates a camera on the +Z axis looking at the origin.
func New(viewportW, viewportH float32, fov, distance float64) *Camera {
	return &Camera{
		Distance:        distance,
		FOV:             fov,
		Near:            0.01,
		Far:             10,
		ViewportW:       viewportW,
		ViewportH:       viewportH,
		MinDistance:     distance / 4,
		MaxDistance:     distance * 4,
		initialDistance: distance,
	}
}

// Update advances auto-rotation by one frame.
func (c *Camera) Update() {
	if c.AutoRotate {
		c.Azimuth = wrapAngle(c.Azimuth - AutoRotateStep*c.AutoRotateSpeed)
	}
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() r3.Vec {
	cosEl := math.Cos(c.Elevation)
	return r3.Vec{
		X: c.Distance * cosEl * math.Sin(c.Azimuth),
		Y: c.Distance * math.Sin(c.Elevation),
		Z: c.Distance * cosEl * math.Cos(c.Azimuth),
	}
}

// basis returns the camera's right, up and forward unit vectors.
func (c *Camera) basis(eye r3.Vec) (right, up, forward r3.Vec) {
	forward = r3.Unit(r3.Scale(-1, eye))
	right = r3.Unit(r3.Cross(forward, worldUp))
	up = r3.Cross(right, forward)
	return right, up, forward
}

func (c *Camera) aspect() float64 {
	if c.ViewportH <= 0 {
		return 1
	}
	return float64(c.ViewportW) / float64(c.ViewportH)
}

// focal returns 1/tan(fov/2).
func (c *Camera) focal() float64 {
	return 1 / math.Tan(c.FOV*math.Pi/360)
}

// Projector returns a float32 snapshot of the current view for projecting
// many points per frame.
func (c *Camera) Projector() Projector {
	eye := c.Eye()
	right, up, forward := c.basis(eye)
	f := c.focal()
	return Projector{
		eye:     vec32(eye),
		right:   vec32(right),
		up:      vec32(up),
		forward: vec32(forward),
		sx:      float32(f / c.aspect()),
		sy:      float32(f),
		halfW:   c.ViewportW / 2,
		halfH:   c.ViewportH / 2,
		near:    float32(c.Near),
		far:     float32(c.Far),
	}
}

// Project converts a world point to screen coordinates.
// ok is false when the point lies outside the clip planes.
func (c *Camera) Project(p r3.Vec) (sx, sy, depth float32, ok bool) {
	pr := c.Projector()
	return pr.Project(float32(p.X), float32(p.Y), float32(p.Z))
}

// Ray returns the world-space ray through a screen position.
func (c *Camera) Ray(sx, sy float32) (origin, dir r3.Vec) {
	eye := c.Eye()
	right, up, forward := c.basis(eye)
	f := c.focal()

	ndcX := float64(sx)/float64(c.ViewportW)*2 - 1
	ndcY := 1 - float64(sy)/float64(c.ViewportH)*2

	d := r3.Add(forward, r3.Add(
		r3.Scale(ndcX*c.aspect()/f, right),
		r3.Scale(ndcY/f, up),
	))
	return eye, r3.Unit(d)
}

// Pick intersects the ray through a screen position with a sphere of the
// given radius centred on the origin.
func (c *Camera) Pick(sx, sy float32, radius float64) (r3.Vec, bool) {
	origin, dir := c.Ray(sx, sy)
	return IntersectSphere(origin, dir, radius)
}

// IntersectSphere returns the nearest intersection in front of origin of the
// ray with a sphere centred on the world origin. dir must be a unit vector.
func IntersectSphere(origin, dir r3.Vec, radius float64) (r3.Vec, bool) {
	b := r3.Dot(origin, dir)
	cc := r3.Dot(origin, origin) - radius*radius
	disc := b*b - cc
	if disc < 0 {
		return r3.Vec{}, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return r3.Vec{}, false
	}
	return r3.Add(origin, r3.Scale(t, dir)), true
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Rotate orbits the camera by a drag delta in screen pixels.
// A drag across the full viewport height is one full turn.
func (c *Camera) Rotate(dx, dy float32) {
	h := float64(c.ViewportH)
	if h <= 0 {
		return
	}
	c.Azimuth = wrapAngle(c.Azimuth - 2*math.Pi*float64(dx)/h)
	c.Elevation = clamp(c.Elevation+2*math.Pi*float64(dy)/h, -maxElevation, maxElevation)
}

// ZoomBy multiplies the orbit distance by the given factor.
func (c *Camera) ZoomBy(factor float64) {
	c.Distance = clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
}

// Reset returns the camera to its initial orbit.
func (c *Camera) Reset() {
	c.Azimuth = 0
	c.Elevation = 0
	c.Distance = c.initialDistance
}

// Projector projects points with a fixed view. Safe for concurrent use.
type Projector struct {
	eye, right, up, forward [3]float32
	sx, sy                  float32
	halfW, halfH            float32
	near, far               float32
}

// Project converts a world point to screen coordinates and view depth.
func (p *Projector) Project(x, y, z float32) (sx, sy, depth float32, ok bool) {
	dx := x - p.eye[0]
	dy := y - p.eye[1]
	dz := z - p.eye[2]

	depth = dx*p.forward[0] + dy*p.forward[1] + dz*p.forward[2]
	if depth < p.near || depth > p.far {
		return 0, 0, depth, false
	}
	vx := dx*p.right[0] + dy*p.right[1] + dz*p.right[2]
	vy := dx*p.up[0] + dy*p.up[1] + dz*p.up[2]

	sx = p.halfW + vx*p.sx/depth*p.halfW
	sy = p.halfH - vy*p.sy/depth*p.halfH
	return sx, sy, depth, true
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// wrapAngle keeps an angle in [-π, π).
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
