// Package fractal renders escape-time fractals into an RGBA frame using a
// pool of parallel workers.
//
// # Overview
//
// A render request names a view of the complex plane, a fractal formula, an
// iteration budget and a colour mode. The engine splits the canvas into
// tiles, computes the tiles on a fixed pool of worker goroutines, and
// assembles the coloured tiles into a frame as they arrive. Every request is
// stamped with a generation number; issuing a new request or cancelling
// bumps the generation, and results from older generations are discarded
// without touching the frame.
//
// # Quick Start
//
//	import "github.com/gogpu/fractal"
//
//	eng, err := fractal.New(800, 600)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	view := fractal.ViewState{CenterX: -0.5, Width: 3, Transform: fractal.Identity()}
//	img, err := eng.Render(ctx, view, "mandelbrot", 200, fractal.ModeSmooth)
//
// # Events
//
// Handlers registered with [Engine.On] receive progress, completion and
// zoom-limit notifications. Handlers run on a dedicated goroutine in the
// order events were emitted, so they may call back into the engine.
//
// # Coordinate System
//
//   - Canvas origin (0,0) at top-left, X right, Y down
//   - Plane real axis to the right, imaginary axis up
//   - The view width spans the canvas width; height follows the aspect ratio
//
// # Architecture
//
// The library is organized into:
//   - Public API: Engine, Camera, ViewState, Palette, Flight
//   - formula: fractal function contract and the built-in catalogue
//   - Internal: parallel (tiles, worker pool, completion), color (linear
//     light interpolation), cache (palette memoisation)
package fractal

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
