// Package parallel provides the tile-based parallel infrastructure used by the
// fractal engine.
//
// The canvas is partitioned into rectangular tiles that can be computed
// independently. Key pieces:
//
//   - Partition: an exact, gap-free, overlap-free tiling of a canvas
//   - AutoTileSize: tile sizing that balances work across a worker pool
//   - WorkerPool: fixed goroutine pool with work stealing
//   - ValuePool: reuse of per-tile value buffers via sync.Pool
//   - Completion: lock-free bitmap of finished tiles
//
// The package knows nothing about fractals; it only moves rectangles and
// closures around.
package parallel

// MaxTileSide is the largest tile edge AutoTileSize produces.
// 64x64 float64 values is 32KB, which keeps a tile's working set in L1/L2.
const MaxTileSide = 64

// Tile is a rectangular region of the canvas in pixel coordinates.
type Tile struct {
	// ID is the tile's index in its partition (row-major).
	ID int

	// X and Y are the top-left pixel of the tile in canvas space.
	X, Y int

	// Width and Height are the tile dimensions in pixels.
	// Edge tiles may be smaller than the nominal tile size.
	Width, Height int
}

// Pixels returns the number of pixels covered by the tile.
func (t Tile) Pixels() int {
	return t.Width * t.Height
}

// Contains reports whether the canvas pixel (cx, cy) lies in the tile.
func (t Tile) Contains(cx, cy int) bool {
	return cx >= t.X && cx < t.X+t.Width &&
		cy >= t.Y && cy < t.Y+t.Height
}

// Offset returns the row-major index of canvas pixel (cx, cy) inside the
// tile's value buffer, or -1 if the pixel is outside the tile.
func (t Tile) Offset(cx, cy int) int {
	if !t.Contains(cx, cy) {
		return -1
	}
	return (cy-t.Y)*t.Width + (cx - t.X)
}

// Overlaps reports whether two tiles share at least one pixel.
func (t Tile) Overlaps(o Tile) bool {
	return t.X < o.X+o.Width && o.X < t.X+t.Width &&
		t.Y < o.Y+o.Height && o.Y < t.Y+t.Height
}
