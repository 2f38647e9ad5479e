package parallel

import "sync"

// ValuePool provides reuse of per-tile value buffers via sync.Pool.
//
// Each buffer holds one float64 per pixel. Full-size square tiles are by far
// the most common request, so they get a dedicated pool; other sizes (edge
// tiles, strips) are pooled per length.
//
// Thread safety: ValuePool is safe for concurrent use.
type ValuePool struct {
	// pools holds a *sync.Pool per buffer length.
	pools sync.Map

	// full is the dedicated pool for MaxTileSide x MaxTileSide buffers.
	full sync.Pool
}

const fullTileValues = MaxTileSide * MaxTileSide

// NewValuePool creates a new value pool.
func NewValuePool() *ValuePool {
	p := &ValuePool{}
	p.full.New = func() any {
		buf := make([]float64, fullTileValues)
		return &buf
	}
	return p
}

// Get returns a buffer of exactly n values. Contents are unspecified;
// callers overwrite every element.
// Returns nil if n <= 0.
func (p *ValuePool) Get(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == fullTileValues {
		return *(p.full.Get().(*[]float64))
	}
	return *(p.poolFor(n).Get().(*[]float64))
}

// Put returns a buffer to the pool. Nil or empty buffers are ignored.
func (p *ValuePool) Put(buf []float64) {
	if len(buf) == 0 {
		return
	}
	buf = buf[:len(buf):len(buf)]
	if len(buf) == fullTileValues {
		p.full.Put(&buf)
		return
	}
	if pool, ok := p.pools.Load(len(buf)); ok {
		pool.(*sync.Pool).Put(&buf)
	}
	// No pool for this size: let GC reclaim the buffer.
}

// poolFor gets or creates the sync.Pool for buffers of length n.
func (p *ValuePool) poolFor(n int) *sync.Pool {
	if pool, ok := p.pools.Load(n); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			buf := make([]float64, n)
			return &buf
		},
	}

	// If another goroutine beat us, use theirs.
	actual, _ := p.pools.LoadOrStore(n, newPool)
	return actual.(*sync.Pool)
}
