package fractal

import (
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/fractal/internal/parallel"
)

// assembler merges tile results into the frame.
//
// Every method except snapshot runs on the coordinator goroutine; the
// canvas lock only keeps snapshot readers consistent with in-progress
// blits.
type assembler struct {
	canvasMu sync.RWMutex
	canvas   *image.RGBA

	painter Painter

	// generation is the render this assembler is collecting. A result is
	// accepted only if it matches both this and the scheduler's current
	// generation.
	generation uint64
	mode       ColorMode
	tiles      []Tile
	results    []TileResult
	done       *parallel.Completion

	values  *parallel.ValuePool
	current func() uint64
	emit    func(Event)
	stats   *statCounters

	// onComplete is called once per generation, before the complete event
	// is emitted.
	onComplete func(gen uint64)
}

func newAssembler(width, height int, painter Painter, sched *scheduler, emit func(Event), stats *statCounters, onComplete func(uint64)) *assembler {
	a := &assembler{
		canvas:     image.NewRGBA(image.Rect(0, 0, width, height)),
		painter:    painter,
		values:     sched.values,
		current:    sched.current,
		emit:       emit,
		stats:      stats,
		onComplete: onComplete,
	}
	a.fillInterior(a.canvas)
	return a
}

// begin starts collecting a new generation. Results retained from the
// previous generation are released.
func (a *assembler) begin(req RenderRequest, tiles []Tile) {
	a.release()
	a.generation = req.Generation
	a.mode = req.Mode
	a.tiles = tiles
	a.results = make([]TileResult, len(tiles))
	a.done = parallel.NewCompletion(len(tiles))
}

// accept merges one result. It returns false, leaving the frame untouched,
// for results of any generation other than the current one and for tiles
// that were already merged.
func (a *assembler) accept(res TileResult) bool {
	if cur := a.current(); res.Generation != cur || res.Generation != a.generation {
		Logger().Debug("fractal: stale tile result discarded",
			"tile", res.TileID, "generation", res.Generation, "current", cur)
		a.discard(res)
		return false
	}
	if res.TileID < 0 || res.TileID >= len(a.tiles) || a.tiles[res.TileID] != res.Tile || !a.done.Mark(res.TileID) {
		Logger().Debug("fractal: duplicate tile result discarded",
			"tile", res.TileID, "generation", res.Generation)
		a.discard(res)
		return false
	}

	a.results[res.TileID] = res
	a.paint(res)
	a.stats.accepted.Add(1)

	a.emit(Event{Kind: EventProgress, Generation: res.Generation, Progress: a.done.Fraction()})
	if a.done.Complete() {
		a.onComplete(res.Generation)
		a.emit(Event{Kind: EventComplete, Generation: res.Generation, Progress: 1})
	}
	return true
}

func (a *assembler) discard(res TileResult) {
	a.stats.dropped.Add(1)
	a.values.Put(res.Values)
}

// paint colourises one tile and blits it into the canvas.
func (a *assembler) paint(res TileResult) {
	t := res.Tile
	src := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for row := range t.Height {
		a.painter.PaintSpan(src.Pix[row*src.Stride:], res.Values[row*t.Width:(row+1)*t.Width], a.mode)
	}

	dst := image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height)
	a.canvasMu.Lock()
	xdraw.Copy(a.canvas, dst.Min, src, src.Bounds(), xdraw.Src, nil)
	a.canvasMu.Unlock()
}

// setPainter replaces the painter and repaints every retained tile.
func (a *assembler) setPainter(p Painter) {
	a.painter = p
	a.recolor()
}

// recolor repaints the retained results of the latest generation with the
// current painter. The fractal functions are not called.
func (a *assembler) recolor() {
	for id, res := range a.results {
		if a.done.IsDone(id) {
			a.paint(res)
		}
	}
}

// resize replaces the canvas. The old frame is scaled into the new one as a
// preview until the next render completes. Retained results no longer match
// the canvas geometry and are released.
func (a *assembler) resize(width, height int) {
	next := image.NewRGBA(image.Rect(0, 0, width, height))

	a.canvasMu.Lock()
	xdraw.ApproxBiLinear.Scale(next, next.Bounds(), a.canvas, a.canvas.Bounds(), xdraw.Src, nil)
	a.canvas = next
	a.canvasMu.Unlock()

	a.release()
}

// release returns retained value buffers to the pool.
func (a *assembler) release() {
	for id, res := range a.results {
		if a.done.IsDone(id) {
			a.values.Put(res.Values)
		}
	}
	a.tiles, a.results, a.done = nil, nil, nil
}

// fillInterior paints img with the interior colour.
func (a *assembler) fillInterior(img *image.RGBA) {
	xdraw.Draw(img, img.Bounds(), image.NewUniform(a.painter.Interior()), image.Point{}, xdraw.Src)
}

// snapshot returns a copy of the canvas. Safe to call from any goroutine.
func (a *assembler) snapshot() *image.RGBA {
	a.canvasMu.RLock()
	defer a.canvasMu.RUnlock()

	out := image.NewRGBA(a.canvas.Rect)
	copy(out.Pix, a.canvas.Pix)
	return out
}
