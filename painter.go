package fractal

import (
	"image/color"
	"math"

	icolor "github.com/gogpu/fractal/internal/color"
)

// DefaultInteriorColor is the colour of points that never escape.
var DefaultInteriorColor = color.RGBA{A: 255}

// Painter converts raw escape values into colours.
//
// A Painter is an immutable value; replacing the palette produces a new
// Painter. It holds no reference to any frame, so repainting with a new
// palette never needs the fractal functions again.
type Painter struct {
	palette  Palette
	interior color.RGBA
}

// NewPainter creates a painter. An invalid palette falls back to
// DefaultPalette.
func NewPainter(p Palette, interior color.RGBA) Painter {
	if p.Validate() != nil {
		p = DefaultPalette()
	}
	return Painter{palette: p.Clone(), interior: interior}
}

// Palette returns a copy of the painter's palette.
func (p Painter) Palette() Palette {
	return p.palette.Clone()
}

// Interior returns the interior colour.
func (p Painter) Interior() color.RGBA {
	return p.interior
}

// WithPalette returns a painter using pal and the same interior colour.
func (p Painter) WithPalette(pal Palette) Painter {
	return NewPainter(pal, p.interior)
}

// Colorize maps one escape value to a colour.
//
// Interior (and any negative or NaN value) maps to the interior colour in
// both modes. ModeNormal picks the entry at floor(position); ModeSmooth
// interpolates in linear light between the entries at floor(position) and
// floor(position)+1.
func (p Painter) Colorize(v float64, mode ColorMode) color.RGBA {
	if !(v >= 0) || math.IsInf(v, 0) {
		return p.interior
	}

	pos := p.palette.position(v)
	i := math.Floor(pos)
	if mode != ModeSmooth {
		return p.palette.at(i)
	}

	f := pos - i
	lo := p.palette.at(i)
	if f == 0 {
		return lo
	}
	return icolor.Lerp(lo, p.palette.at(i+1), f)
}

// PaintSpan colourises values into dst, four bytes (R, G, B, A) per value,
// the layout of an image.RGBA row.
func (p Painter) PaintSpan(dst []uint8, values []float64, mode ColorMode) {
	for i, v := range values {
		c := p.Colorize(v, mode)
		d := dst[i*4 : i*4+4 : i*4+4]
		d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
	}
}
