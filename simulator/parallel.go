package simulator

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// parallelThreshold is the minimum phosphene count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// phospheneSnapshot captures read-only state for parallel processing.
type phospheneSnapshot struct {
	Entity ecs.Entity
	Index  int32
	Pos    components.Position
	Size   float32
	Act    components.Activity
}

// intent captures computed outputs to apply after the parallel phase.
type intent struct {
	Act      components.Activity
	Stimulus [components.NumEyes]float32
}

// frameInput is everything a worker needs for the current tick. It is
// written before chunks are dispatched and read-only while they run.
type frameInput struct {
	params  dynamics.Params
	gaze    gaze.Sample
	inputs  [components.NumEyes]sampler.Image
	camLock bool
}

// workChunk represents a range of phosphenes for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for the parallel sample and step.
type parallelState struct {
	snapshots  []phospheneSnapshot
	intents    []intent
	frame      frameInput
	numWorkers int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(capacity int) *parallelState {
	return &parallelState{
		numWorkers: runtime.GOMAXPROCS(0),
		snapshots:  make([]phospheneSnapshot, 0, capacity),
		intents:    make([]intent, 0, capacity),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.computeChunk(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// compute runs the sample and step for every snapshot, in parallel for
// large populations.
func (p *parallelState) compute() {
	n := len(p.snapshots)
	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]

	if n < parallelThreshold || p.numWorkers <= 1 {
		p.computeChunk(0, n)
		return
	}

	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	// Dispatch chunks to workers
	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk samples and steps phosphenes [i0, i1). It touches only its
// own intents, so chunks never share writes.
func (p *parallelState) computeChunk(i0, i1 int) {
	f := &p.frame
	for i := i0; i < i1; i++ {
		snap := &p.snapshots[i]
		out := &p.intents[i]

		for e := 0; e < int(components.NumEyes); e++ {
			g := f.gaze.Eye(e)
			out.Stimulus[e] = sampler.Sample(snap.Pos.X, snap.Pos.Y, f.inputs[e], g.X, g.Y, f.camLock)
		}
		out.Act = f.params.Step(snap.Act, out.Stimulus)
	}
}
