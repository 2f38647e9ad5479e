package parallel

import (
	"fmt"
	"testing"
)

// =============================================================================
// Tile Tests
// =============================================================================

func TestTile_Offset(t *testing.T) {
	tile := Tile{ID: 3, X: 64, Y: 128, Width: 32, Height: 16}

	tests := []struct {
		name   string
		cx, cy int
		want   int
	}{
		{"tile origin", 64, 128, 0},
		{"second pixel", 65, 128, 1},
		{"second row", 64, 129, 32},
		{"last pixel", 95, 143, 15*32 + 31},
		{"outside left", 63, 128, -1},
		{"outside top", 64, 127, -1},
		{"outside right", 96, 128, -1},
		{"outside bottom", 64, 144, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tile.Offset(tt.cx, tt.cy); got != tt.want {
				t.Errorf("Offset(%d,%d) = %d, want %d", tt.cx, tt.cy, got, tt.want)
			}
		})
	}
}

func TestTile_Overlaps(t *testing.T) {
	a := Tile{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name string
		b    Tile
		want bool
	}{
		{"same", Tile{X: 0, Y: 0, Width: 10, Height: 10}, true},
		{"inside", Tile{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"touching right edge", Tile{X: 10, Y: 0, Width: 5, Height: 5}, false},
		{"touching bottom edge", Tile{X: 0, Y: 10, Width: 5, Height: 5}, false},
		{"corner overlap", Tile{X: 9, Y: 9, Width: 5, Height: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps(%+v) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Partition Tests
// =============================================================================

// checkPartition verifies that tiles cover [0,w)x[0,h) exactly once.
func checkPartition(t *testing.T, w, h int, tiles []Tile) {
	t.Helper()

	cover := make([]int, w*h)
	for i, tile := range tiles {
		if tile.ID != i {
			t.Fatalf("tile %d has ID %d", i, tile.ID)
		}
		if tile.Width <= 0 || tile.Height <= 0 {
			t.Fatalf("tile %d is empty: %+v", i, tile)
		}
		for y := tile.Y; y < tile.Y+tile.Height; y++ {
			for x := tile.X; x < tile.X+tile.Width; x++ {
				if x < 0 || x >= w || y < 0 || y >= h {
					t.Fatalf("tile %+v leaves the %dx%d canvas", tile, w, h)
				}
				cover[y*w+x]++
			}
		}
	}

	for i, n := range cover {
		if n != 1 {
			t.Fatalf("pixel (%d,%d) covered %d times, want 1", i%w, i/w, n)
		}
	}
}

func TestPartition_Complete(t *testing.T) {
	sizes := [][2]int{
		{1, 1}, {4, 4}, {64, 64}, {65, 64}, {64, 65},
		{100, 37}, {129, 1}, {1, 129}, {200, 150},
	}
	tileSizes := [][2]int{{1, 1}, {7, 5}, {16, 16}, {64, 64}, {300, 3}}

	for _, s := range sizes {
		for _, ts := range tileSizes {
			name := fmt.Sprintf("%dx%d/%dx%d", s[0], s[1], ts[0], ts[1])
			t.Run(name, func(t *testing.T) {
				tiles := Partition(s[0], s[1], ts[0], ts[1])
				checkPartition(t, s[0], s[1], tiles)
			})
		}
	}
}

func TestPartition_PairwiseDisjoint(t *testing.T) {
	tiles := Partition(130, 70, 64, 64)
	for i := range tiles {
		for j := i + 1; j < len(tiles); j++ {
			if tiles[i].Overlaps(tiles[j]) {
				t.Fatalf("tiles %+v and %+v overlap", tiles[i], tiles[j])
			}
		}
	}
}

func TestPartition_EdgeTiles(t *testing.T) {
	tiles := Partition(100, 70, 64, 64)
	if len(tiles) != 4 {
		t.Fatalf("len = %d, want 4", len(tiles))
	}

	want := []Tile{
		{ID: 0, X: 0, Y: 0, Width: 64, Height: 64},
		{ID: 1, X: 64, Y: 0, Width: 36, Height: 64},
		{ID: 2, X: 0, Y: 64, Width: 64, Height: 6},
		{ID: 3, X: 64, Y: 64, Width: 36, Height: 6},
	}
	for i := range want {
		if tiles[i] != want[i] {
			t.Errorf("tile %d = %+v, want %+v", i, tiles[i], want[i])
		}
	}
}

func TestPartition_Invalid(t *testing.T) {
	tests := []struct {
		name               string
		w, h, tileW, tileH int
	}{
		{"zero width", 0, 10, 4, 4},
		{"zero height", 10, 0, 4, 4},
		{"negative", -1, 10, 4, 4},
		{"zero tile", 10, 10, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tiles := Partition(tt.w, tt.h, tt.tileW, tt.tileH); tiles != nil {
				t.Errorf("Partition = %v, want nil", tiles)
			}
		})
	}
}

func TestAutoTileSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, n      int
		wantW, wantH int
	}{
		{"one pixel per tile", 4, 4, 4, 1, 1},
		{"capped at max side", 4096, 4096, 4, MaxTileSide, MaxTileSide},
		{"single worker rows", 100, 100, 1, 100, 35},
		{"two worker rows", 100, 100, 2, 100, 25},
		{"zero workers", 10, 10, 0, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := AutoTileSize(tt.w, tt.h, tt.n)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("AutoTileSize(%d,%d,%d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.n, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestAutoTileSize_PartitionBalance(t *testing.T) {
	for _, workers := range []int{3, 4, 8, 16} {
		tw, th := AutoTileSize(800, 600, workers)
		tiles := Partition(800, 600, tw, th)
		if len(tiles) < workers {
			t.Errorf("workers=%d: %d tiles, want at least one per worker", workers, len(tiles))
		}
		checkPartition(t, 800, 600, tiles)
	}
}

func TestTileAt(t *testing.T) {
	tiles := Partition(10, 10, 4, 4)

	tile, ok := TileAt(tiles, 9, 9)
	if !ok {
		t.Fatal("TileAt(9,9) not found")
	}
	if tile.X != 8 || tile.Y != 8 {
		t.Errorf("TileAt(9,9) = %+v, want origin (8,8)", tile)
	}

	if _, ok := TileAt(tiles, 10, 0); ok {
		t.Error("TileAt(10,0) found a tile outside the canvas")
	}
}

// =============================================================================
// ValuePool Tests
// =============================================================================

func TestValuePool_GetPut(t *testing.T) {
	pool := NewValuePool()

	for _, n := range []int{1, 17, fullTileValues, 4096 + 1} {
		buf := pool.Get(n)
		if len(buf) != n {
			t.Errorf("Get(%d) len = %d", n, len(buf))
		}
		for i := range buf {
			buf[i] = float64(i)
		}
		pool.Put(buf)

		again := pool.Get(n)
		if len(again) != n {
			t.Errorf("second Get(%d) len = %d", n, len(again))
		}
	}
}

func TestValuePool_Invalid(t *testing.T) {
	pool := NewValuePool()
	if buf := pool.Get(0); buf != nil {
		t.Errorf("Get(0) = %v, want nil", buf)
	}
	// Should not panic.
	pool.Put(nil)
}
