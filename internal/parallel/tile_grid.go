package parallel

import "math"

// tilesPerWorker is the number of tiles AutoTileSize aims to give each
// worker. More tiles than workers lets fast workers pick up slack from
// tiles that sit in deep, high-iteration regions.
const tilesPerWorker = 8

// Partition splits a width x height canvas into tiles of tileW x tileH.
// Tiles at the right and bottom edges are smaller if the canvas is not
// divisible by the tile size. Tiles are returned in row-major order and
// their IDs are their slice indices.
//
// The result covers [0,width) x [0,height) exactly once.
// Returns nil if any dimension is <= 0.
func Partition(width, height, tileW, tileH int) []Tile {
	if width <= 0 || height <= 0 || tileW <= 0 || tileH <= 0 {
		return nil
	}

	tilesX := (width + tileW - 1) / tileW
	tilesY := (height + tileH - 1) / tileH

	tiles := make([]Tile, 0, tilesX*tilesY)
	for oy := 0; oy < height; oy += tileH {
		th := min(tileH, height-oy)
		for ox := 0; ox < width; ox += tileW {
			tw := min(tileW, width-ox)
			tiles = append(tiles, Tile{
				ID:     len(tiles),
				X:      ox,
				Y:      oy,
				Width:  tw,
				Height: th,
			})
		}
	}
	return tiles
}

// AutoTileSize picks a tile size for a canvas and worker count.
//
// Tiles are square with a side of at most MaxTileSide, sized so the canvas
// yields roughly tilesPerWorker tiles per worker. With one or two workers
// the canvas is cut into full-width row strips instead, which keeps memory
// access sequential when there is little parallelism to balance.
func AutoTileSize(width, height, workers int) (tileW, tileH int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	if workers <= 0 {
		workers = 1
	}

	target := workers * tilesPerWorker
	side := int(math.Sqrt(float64(width*height) / float64(target)))
	side = max(1, min(side, MaxTileSide))

	if workers <= 2 {
		return width, side
	}
	return side, side
}

// TileAt returns the tile in tiles containing canvas pixel (cx, cy).
// tiles must come from Partition. Returns false if no tile contains it.
func TileAt(tiles []Tile, cx, cy int) (Tile, bool) {
	for _, t := range tiles {
		if t.Contains(cx, cy) {
			return t, true
		}
	}
	return Tile{}, false
}
