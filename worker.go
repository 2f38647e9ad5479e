package fractal

import (
	"fmt"
	"math"

	"github.com/gogpu/fractal/formula"
	"github.com/gogpu/fractal/internal/parallel"
)

// Tile is a rectangular region of the canvas computed as one unit of work.
type Tile = parallel.Tile

// TileResult carries the raw escape values of one tile from a worker to the
// frame assembler.
type TileResult struct {
	TileID     int
	Generation uint64
	Tile       Tile

	// Values holds one value per pixel in row-major order: Interior for
	// points that did not escape, otherwise the escape count (>= 0).
	Values []float64

	// Fault is a *NumericFault when the tile could not be computed. Values
	// is then all Interior.
	Fault error
}

// tileJob is everything a worker needs for one tile. The camera is a
// snapshot; the worker never sees the live camera.
type tileJob struct {
	tile       Tile
	generation uint64
	camera     Camera
	fn         formula.Func
	maxIter    uint
}

// computeTile evaluates the fractal at every pixel centre of the tile.
//
// A panic in the fractal function or a non-finite result is contained to
// this tile: the tile is filled with Interior and Fault is set.
func computeTile(job tileJob, pool *parallel.ValuePool) (res TileResult) {
	t := job.tile
	res = TileResult{TileID: t.ID, Generation: job.generation, Tile: t}
	values := pool.Get(t.Pixels())
	res.Values = values

	defer func() {
		if r := recover(); r != nil {
			res = faulted(res, r)
		}
	}()

	limit := float64(job.maxIter)
	i := 0
	for py := t.Y; py < t.Y+t.Height; py++ {
		for px := t.X; px < t.X+t.Width; px++ {
			p := job.camera.ScreenToPlane(Point{X: float64(px) + 0.5, Y: float64(py) + 0.5})
			v := job.fn(p.X, p.Y, job.maxIter)
			switch {
			case math.IsNaN(v) || math.IsInf(v, 0):
				return faulted(res, fmt.Sprintf("non-finite value %v at pixel (%d, %d)", v, px, py))
			case v >= limit:
				v = Interior
			case v < 0:
				v = 0
			}
			values[i] = v
			i++
		}
	}
	return res
}

// faulted replaces a tile's values with Interior and records the fault.
func faulted(res TileResult, cause any) TileResult {
	for i := range res.Values {
		res.Values[i] = Interior
	}
	fault := &NumericFault{TileID: res.TileID, Generation: res.Generation, Cause: cause}
	res.Fault = fault
	Logger().Warn("fractal: tile computation failed",
		"tile", res.TileID, "generation", res.Generation, "cause", cause)
	return res
}
