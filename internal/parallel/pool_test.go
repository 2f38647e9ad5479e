package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		expected := runtime.GOMAXPROCS(0)
		if pool.Workers() != expected {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d (GOMAXPROCS)", n, pool.Workers(), expected)
		}
		pool.Close()
	}
}

// =============================================================================
// Submit Tests
// =============================================================================

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	numTasks := 200
	done := make(chan struct{})

	for i := 0; i < numTasks; i++ {
		pool.Submit(func() {
			if counter.Add(1) == int64(numTasks) {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Errorf("timeout waiting for submitted work, counter = %d", counter.Load())
	}
}

func TestWorkerPool_SubmitAll(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var wg sync.WaitGroup
	var counter atomic.Int64

	work := make([]func(), 50)
	wg.Add(len(work))
	for i := range work {
		work[i] = func() {
			defer wg.Done()
			counter.Add(1)
		}
	}
	pool.SubmitAll(work)

	waitTimeout(t, &wg, 5*time.Second)
	if counter.Load() != 50 {
		t.Errorf("counter = %d, want 50", counter.Load())
	}
}

func TestWorkerPool_SubmitDoesNotBlock(t *testing.T) {
	pool := NewWorkerPool(1)
	defer pool.Close()

	release := make(chan struct{})
	pool.Submit(func() { <-release })

	// The only worker is parked; Submit must still return immediately
	// no matter how much work is queued behind it.
	start := time.Now()
	for i := 0; i < 10000; i++ {
		pool.Submit(func() {})
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Submit blocked for %v", elapsed)
	}
	close(release)
}

func TestWorkerPool_StealsFromBusyWorker(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	block := make(chan struct{})
	started := make(chan struct{})

	// Park one worker on a slow item.
	pool.Submit(func() {
		close(started)
		<-block
	})
	<-started

	// Queue a batch; the free worker has to get through all of it,
	// including anything queued on the parked worker.
	var wg sync.WaitGroup
	work := make([]func(), 20)
	wg.Add(len(work))
	for i := range work {
		work[i] = wg.Done
	}
	pool.SubmitAll(work)

	waitTimeout(t, &wg, 5*time.Second)
	close(block)
}

func TestWorkerPool_NilWork(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	// Should not panic or enqueue anything.
	pool.Submit(nil)
	pool.SubmitAll(nil)
	pool.SubmitAll([]func(){nil})

	if n := pool.QueuedWork(); n != 0 {
		t.Errorf("QueuedWork() = %d, want 0", n)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_CloseDrainsQueue(t *testing.T) {
	pool := NewWorkerPool(2)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		pool.Submit(func() { counter.Add(1) })
	}
	pool.Close()

	if counter.Load() != 100 {
		t.Errorf("counter = %d after Close, want 100", counter.Load())
	}
	if pool.IsRunning() {
		t.Error("pool still running after Close")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()

	// Submitting after Close is a no-op.
	var ran atomic.Bool
	pool.Submit(func() { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("work ran after Close")
	}
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("timeout after %v", d)
	}
}
