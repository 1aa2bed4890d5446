package sim

import (
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// farPointer parks the pointer outside any reachable neighbourhood.
var farPointer = [3]float32{1e6, 1e6, 1e6}

// Uniforms is the per-frame input shared read-only by both kernels.
type Uniforms struct {
	Time     float32
	Pointer  [3]float32
	Progress float32 // 0 = sphere, 1 = image mask
}

// Params is the bridge between input collaborators and the kernels.
//
// Setters are last-write-wins. Readers get an immutable snapshot, so a frame
// never observes a half-updated pointer even with a separate input goroutine.
type Params struct {
	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[Uniforms]
}

// NewParams returns params with progress 0 and no pointer.
func NewParams() *Params {
	p := &Params{}
	p.snap.Store(&Uniforms{Pointer: farPointer})
	return p
}

// Snapshot returns the current uniforms.
func (p *Params) Snapshot() Uniforms {
	return *p.snap.Load()
}

func (p *Params) update(fn func(u *Uniforms)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := *p.snap.Load()
	fn(&next)
	p.snap.Store(&next)
}

// SetPointer sets the world-space pointer position.
func (p *Params) SetPointer(pos r3.Vec) {
	p.update(func(u *Uniforms) {
		u.Pointer = [3]float32{float32(pos.X), float32(pos.Y), float32(pos.Z)}
	})
}

// ClearPointer moves the pointer out of reach of every particle.
func (p *Params) ClearPointer() {
	p.update(func(u *Uniforms) { u.Pointer = farPointer })
}

// SetProgress sets the morph progress, clamped to [0,1]. NaN becomes 0.
// It returns the stored value.
func (p *Params) SetProgress(v float64) float64 {
	v = clampProgress(v)
	p.update(func(u *Uniforms) { u.Progress = float32(v) })
	return v
}

// Progress returns the current morph progress.
func (p *Params) Progress() float64 {
	return float64(p.snap.Load().Progress)
}

// SetTime sets the time uniform.
func (p *Params) SetTime(t float64) {
	p.update(func(u *Uniforms) { u.Time = float32(t) })
}

// AdvanceTime adds dt to the time uniform.
func (p *Params) AdvanceTime(dt float32) {
	p.update(func(u *Uniforms) { u.Time += dt })
}

func clampProgress(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
