package compute

import (
	"fmt"
	"runtime"
	"sync"
)

// parallelThreshold is the minimum row count to fan out to workers.
// Below this, running inline is faster than the channel round trips.
const parallelThreshold = 8

// workChunk is a contiguous range of rows for one worker.
type workChunk struct {
	start, end int
	fn         func(worker, start, end int) error
}

// pool is a set of persistent goroutines processing row chunks.
type pool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan error     // workers report chunk completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup
	running  bool
}

func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{numWorkers: workers}
}

// start launches the worker goroutines.
func (p *pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- runChunk(chunk, id)
		}
	}
}

// runChunk executes one chunk, turning a panic into an error so a bad
// kernel cannot take down the worker.
func runChunk(chunk workChunk, worker int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return chunk.fn(worker, chunk.start, chunk.end)
}

// run splits rows [0, n) across the workers and blocks until all chunks finish.
// The first chunk error is returned.
func (p *pool) run(n int, fn func(worker, start, end int) error) error {
	if n < parallelThreshold || p.numWorkers == 1 || !p.running {
		return runChunk(workChunk{start: 0, end: n, fn: fn}, 0)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}

	var firstErr error
	for i := 0; i < dispatched; i++ {
		if err := <-p.doneChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
