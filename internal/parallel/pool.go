package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed-size pool of goroutines.
//
// Each worker owns a queue. Submit places work on the shortest queue; an idle
// worker first drains its own queue in FIFO order and then steals from the
// back of other workers' queues. A slow item (a deep-zoom tile) therefore
// never strands the work queued behind it.
//
// Queues are unbounded, so Submit never blocks.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// mu guards queues and closed.
	mu   sync.Mutex
	cond *sync.Cond

	// queues holds per-worker work queues.
	queues [][]func()

	// closed is set by Close; workers exit once all queues are empty.
	closed bool

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// busy is the number of workers currently executing an item.
	busy atomic.Int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([][]func(), workers),
	}
	p.cond = sync.NewCond(&p.mu)
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		work := p.takeLocked(id)
		for work == nil {
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
			work = p.takeLocked(id)
		}
		p.mu.Unlock()

		p.busy.Add(1)
		work()
		p.busy.Add(-1)
	}
}

// takeLocked pops the oldest item from the worker's own queue, or steals the
// newest item from another queue. Returns nil if all queues are empty.
// p.mu must be held.
func (p *WorkerPool) takeLocked(id int) func() {
	if q := p.queues[id]; len(q) > 0 {
		work := q[0]
		q[0] = nil
		p.queues[id] = q[1:]
		return work
	}

	for i := 1; i < p.workers; i++ {
		victim := (id + i) % p.workers
		q := p.queues[victim]
		if n := len(q); n > 0 {
			work := q[n-1]
			q[n-1] = nil
			p.queues[victim] = q[:n-1]
			return work
		}
	}
	return nil
}

// Submit queues a single work item on the worker with the shortest queue.
// Submit never blocks. If the pool is closed, this is a no-op.
func (p *WorkerPool) Submit(fn func()) {
	if fn == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	w := p.shortestLocked()
	p.queues[w] = append(p.queues[w], fn)
	p.mu.Unlock()

	p.cond.Signal()
}

// SubmitAll queues a batch of work items round-robin across workers.
// SubmitAll never blocks. If the pool is closed, this is a no-op.
func (p *WorkerPool) SubmitAll(work []func()) {
	if len(work) == 0 {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	start := p.shortestLocked()
	for i, fn := range work {
		if fn == nil {
			continue
		}
		w := (start + i) % p.workers
		p.queues[w] = append(p.queues[w], fn)
	}
	p.mu.Unlock()

	p.cond.Broadcast()
}

// shortestLocked returns the index of the shortest queue. p.mu must be held.
func (p *WorkerPool) shortestLocked() int {
	minIdx := 0
	minLen := len(p.queues[0])
	for i := 1; i < p.workers; i++ {
		if n := len(p.queues[i]); n < minLen {
			minLen = n
			minIdx = i
		}
	}
	return minIdx
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of work items currently queued.
func (p *WorkerPool) QueuedWork() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}

// Busy returns the number of workers currently executing an item.
// This is an approximation as workers change state concurrently.
func (p *WorkerPool) Busy() int {
	return int(p.busy.Load())
}
