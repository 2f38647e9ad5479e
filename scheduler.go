package fractal

import (
	"sync/atomic"

	"github.com/gogpu/fractal/formula"
	"github.com/gogpu/fractal/internal/parallel"
)

// scheduler owns the render generation counter and turns a render request
// into tile jobs on the worker pool.
//
// Cancellation is by staleness only. A job whose generation is no longer
// current when a worker picks it up is skipped, and a job that finishes
// after its generation was superseded is still delivered; the assembler
// drops it by comparing generations.
type scheduler struct {
	pool   *parallel.WorkerPool
	values *parallel.ValuePool

	// tileW, tileH fix the tile size; zero means automatic.
	tileW, tileH int

	generation atomic.Uint64

	results chan<- TileResult
	quit    <-chan struct{}

	stats *statCounters
}

func newScheduler(o *options, results chan<- TileResult, quit <-chan struct{}, stats *statCounters) *scheduler {
	return &scheduler{
		pool:    parallel.NewWorkerPool(o.workers),
		values:  parallel.NewValuePool(),
		tileW:   o.tileW,
		tileH:   o.tileH,
		results: results,
		quit:    quit,
		stats:   stats,
	}
}

// next stamps a new generation for a render request.
func (s *scheduler) next() uint64 {
	return s.generation.Add(1)
}

// cancel supersedes the current generation without issuing new work.
func (s *scheduler) cancel() uint64 {
	return s.generation.Add(1)
}

// cancelIf cancels only if gen is still the current generation.
func (s *scheduler) cancelIf(gen uint64) bool {
	return s.generation.CompareAndSwap(gen, gen+1)
}

// current returns the latest generation.
func (s *scheduler) current() uint64 {
	return s.generation.Load()
}

// isCurrent reports whether gen is the latest generation.
func (s *scheduler) isCurrent(gen uint64) bool {
	return s.generation.Load() == gen
}

// partition splits a canvas into tiles.
func (s *scheduler) partition(width, height int) []Tile {
	tw, th := s.tileW, s.tileH
	if tw <= 0 || th <= 0 {
		tw, th = parallel.AutoTileSize(width, height, s.pool.Workers())
	}
	return parallel.Partition(width, height, tw, th)
}

// dispatch enqueues one job per tile. It never blocks.
func (s *scheduler) dispatch(req RenderRequest, cam Camera, fn formula.Func, tiles []Tile) {
	work := make([]func(), len(tiles))
	for i, t := range tiles {
		job := tileJob{
			tile:       t,
			generation: req.Generation,
			camera:     cam,
			fn:         fn,
			maxIter:    req.MaxIter,
		}
		work[i] = func() { s.run(job) }
	}
	s.pool.SubmitAll(work)
}

// run computes one job and hands the result to the coordinator.
func (s *scheduler) run(job tileJob) {
	if !s.isCurrent(job.generation) {
		s.stats.skipped.Add(1)
		return
	}

	res := computeTile(job, s.values)
	if res.Fault != nil {
		s.stats.faults.Add(1)
	}

	select {
	case s.results <- res:
	case <-s.quit:
		s.values.Put(res.Values)
	}
}

// close drains the pool. Queued jobs are all stale by then and return
// immediately.
func (s *scheduler) close() {
	s.pool.Close()
}
