package parallel

import (
	"math/bits"
	"sync/atomic"
)

// Completion tracks which tiles of a partition have finished, using an
// atomic bitmap with one bit per tile ID.
//
// Marking is idempotent: a tile that reports twice is counted once, which
// is what lets the assembler decide "frame complete" from a plain count.
// All methods are safe for concurrent use without external synchronization.
type Completion struct {
	// words is the bitmap. Bit index = tile ID.
	words []atomic.Uint64

	// total is the number of tiles in the partition.
	total int

	// done is the number of distinct tiles marked so far.
	done atomic.Int64
}

// NewCompletion creates a tracker for total tiles, all unfinished.
// Returns nil if total is negative.
func NewCompletion(total int) *Completion {
	if total < 0 {
		return nil
	}
	return &Completion{
		words: make([]atomic.Uint64, (total+63)/64),
		total: total,
	}
}

// Mark records tile id as finished. It returns true only for the first
// mark of a given id; repeated or out-of-range ids return false.
func (c *Completion) Mark(id int) bool {
	if id < 0 || id >= c.total {
		return false
	}
	bit := uint64(1) << (id & 63)
	old := c.words[id/64].Or(bit)
	if old&bit != 0 {
		return false
	}
	c.done.Add(1)
	return true
}

// IsDone reports whether tile id has been marked.
func (c *Completion) IsDone(id int) bool {
	if id < 0 || id >= c.total {
		return false
	}
	return c.words[id/64].Load()&(1<<(id&63)) != 0
}

// Done returns the number of distinct tiles marked.
func (c *Completion) Done() int {
	return int(c.done.Load())
}

// Total returns the number of tiles being tracked.
func (c *Completion) Total() int {
	return c.total
}

// Complete reports whether every tile has been marked.
// A tracker over zero tiles is never complete.
func (c *Completion) Complete() bool {
	return c.total > 0 && c.Done() == c.total
}

// Fraction returns the completed share in [0, 1].
func (c *Completion) Fraction() float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.Done()) / float64(c.total)
}

// Pending returns the IDs of tiles that are not yet marked, in ascending order.
func (c *Completion) Pending() []int {
	var pending []int
	for wordIdx := range c.words {
		word := ^c.words[wordIdx].Load()
		for word != 0 {
			bitIdx := bits.TrailingZeros64(word)
			id := wordIdx*64 + bitIdx
			if id >= c.total {
				break
			}
			pending = append(pending, id)
			word &^= 1 << bitIdx
		}
	}
	return pending
}
