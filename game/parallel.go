package game

import (
	"math/rand/v2"
	"runtime"
	"sync"
)

// defaultParallelThreshold is the minimum slot count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const defaultParallelThreshold = 256

// workerScratch holds per-worker reusable state.
type workerScratch struct {
	pcg *rand.PCG
	rng *rand.Rand
}

// reseed points the worker's rng at the stream for (seed, step, index).
// The stream depends only on those values, never on which worker runs it.
func (s *workerScratch) reseed(seed, step uint64, index uint32) *rand.Rand {
	s.pcg.Seed(seed, step<<32|uint64(index))
	return s.rng
}

// chunkFunc processes slots [start, end) using the given worker's scratch.
type chunkFunc func(scratch *workerScratch, start, end int)

// workChunk represents a range of slots for a worker to process.
type workChunk struct {
	start, end int
	fn         chunkFunc
}

// workerPool runs read-only compute phases across persistent goroutines.
type workerPool struct {
	scratches  []workerScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newWorkerPool(workers, threshold int) *workerPool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold < 1 {
		threshold = defaultParallelThreshold
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		pcg := rand.NewPCG(0, 0)
		scratches[i] = workerScratch{pcg: pcg, rng: rand.New(pcg)}
	}
	return &workerPool{
		numWorkers: workers,
		threshold:  threshold,
		scratches:  scratches,
	}
}

// startWorkers launches persistent worker goroutines.
func (p *workerPool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *workerPool) stopWorkers() {
	if p == nil || !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker(workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(scratch, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run calls fn over [0, n), single-threaded below the threshold and split
// into one chunk per worker above it. It returns once every chunk is done.
func (p *workerPool) run(n int, fn chunkFunc) {
	if n == 0 {
		return
	}
	if n < p.threshold || p.numWorkers == 1 {
		fn(&p.scratches[0], 0, n)
		return
	}

	// Ensure workers are running
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

		p.workChan <- workChunk{start: start, end: end, fn: fn}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}
