package fractal

import (
	"image/color"

	"github.com/gogpu/fractal/formula"
)

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Defaults: one worker per CPU, automatic tile size
//	eng, err := fractal.New(800, 600)
//
//	// Two workers, 32x32 tiles, fire palette
//	eng, err := fractal.New(800, 600,
//	    fractal.WithWorkers(2),
//	    fractal.WithTileSize(32, 32),
//	    fractal.WithPalette(fractal.FirePalette()))
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	workers      int
	tileW, tileH int
	registry     *formula.Registry
	palette      Palette
	interior     color.RGBA
	maxWidth     float64
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		workers:  0, // GOMAXPROCS
		tileW:    0, // derived from canvas size and worker count
		tileH:    0,
		registry: formula.Default(),
		palette:  DefaultPalette(),
		interior: DefaultInteriorColor,
		maxWidth: DefaultMaxWidth,
	}
}

// validate checks option values that cannot be repaired silently.
func (o *options) validate() error {
	if o.workers < 0 {
		return &ConfigError{Field: "workers", Reason: "must not be negative"}
	}
	if o.tileW < 0 || o.tileH < 0 || (o.tileW == 0) != (o.tileH == 0) {
		return &ConfigError{Field: "tile size", Reason: "both sides must be positive, or both zero for automatic"}
	}
	if o.registry == nil {
		return &ConfigError{Field: "registry", Reason: "must not be nil"}
	}
	if err := o.palette.Validate(); err != nil {
		return err
	}
	if !isFinite(o.maxWidth) || o.maxWidth <= 0 {
		return &ConfigError{Field: "max width", Reason: "must be finite and positive"}
	}
	return nil
}

// WithWorkers sets the number of worker goroutines.
// Zero (the default) uses runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTileSize fixes the tile size in pixels. Edge tiles are clipped to the
// canvas. Zero for both sides (the default) picks a size from the canvas
// and worker count.
func WithTileSize(w, h int) Option {
	return func(o *options) {
		o.tileW, o.tileH = w, h
	}
}

// WithRegistry sets the fractal registry render requests are resolved
// against. The default is formula.Default().
func WithRegistry(r *formula.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithPalette sets the initial palette.
func WithPalette(p Palette) Option {
	return func(o *options) {
		o.palette = p.Clone()
	}
}

// WithInteriorColor sets the colour of points that never escape.
func WithInteriorColor(c color.RGBA) Option {
	return func(o *options) {
		o.interior = c
	}
}

// WithMaxWidth sets the widest view a render request may ask for.
func WithMaxWidth(w float64) Option {
	return func(o *options) {
		o.maxWidth = w
	}
}
