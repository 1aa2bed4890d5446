package telemetry

// Collector accumulates input events within frame windows and produces
// WindowStats.
type Collector struct {
	windowFrames uint64
	sampleStride int

	windowStart uint64

	// Counters for the current window
	pointerFrames int
	resets        int
}

// NewCollector creates a stats collector flushing every windowFrames frames
// and measuring every sampleStride-th particle.
func NewCollector(windowFrames, sampleStride int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	if sampleStride < 1 {
		sampleStride = 1
	}
	return &Collector{
		windowFrames: uint64(windowFrames),
		sampleStride: sampleStride,
	}
}

// RecordPointer records whether the pointer was over the cloud this frame.
func (c *Collector) RecordPointer(active bool) {
	if active {
		c.pointerFrames++
	}
}

// RecordReset records a simulation reset. The frame counter restarts, so the
// window restarts with it.
func (c *Collector) RecordReset() {
	c.resets++
	c.windowStart = 0
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(frame uint64) bool {
	return frame >= c.windowStart+c.windowFrames
}

// Flush produces a WindowStats for f and resets counters for the next window.
func (c *Collector) Flush(f Frame) WindowStats {
	sample := SampleParticles(f, c.sampleStride)
	dist := Describe(sample.TargetDist)
	speed := Describe(sample.Speed)

	stats := WindowStats{
		WindowStartFrame: c.windowStart,
		WindowEndFrame:   f.Number,
		SimTime:          f.Time,
		Progress:         f.Progress,
		PointerFrames:    c.pointerFrames,
		Resets:           c.resets,
		TargetDistMean:   dist.Mean,
		TargetDistP50:    dist.P50,
		TargetDistP90:    dist.P90,
		TargetDistMax:    dist.Max,
		SpeedMean:        speed.Mean,
		SpeedStd:         speed.Std,
		SpeedMax:         speed.Max,
		Samples:          len(sample.Speed),
	}

	c.windowStart = f.Number
	c.pointerFrames = 0
	c.resets = 0
	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() uint64 {
	return c.windowFrames
}
