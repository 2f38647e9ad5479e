package fractal

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/fractal/internal/cache"
	icolor "github.com/gogpu/fractal/internal/color"
)

// Palette is the ordered list of colours escape values are mapped onto.
//
// A value v lands at palette position v*Density + Offset. The palette
// wraps, so positions past the last entry continue from the first.
type Palette struct {
	Colors []color.RGBA

	// Density is how many palette entries one escape iteration advances.
	// Zero means 1.
	Density float64

	// Offset shifts every position; useful for cycling a palette.
	Offset float64
}

// Validate reports whether the palette can be used for colouring.
func (p Palette) Validate() error {
	if len(p.Colors) == 0 {
		return &ConfigError{Field: "palette", Reason: "no colours"}
	}
	if !isFinite(p.Density) || p.Density < 0 {
		return &ConfigError{Field: "palette.density", Reason: fmt.Sprintf("must be finite and non-negative, got %g", p.Density)}
	}
	if !isFinite(p.Offset) {
		return &ConfigError{Field: "palette.offset", Reason: "must be finite"}
	}
	return nil
}

// Clone returns a palette that shares no memory with p.
func (p Palette) Clone() Palette {
	p.Colors = slices.Clone(p.Colors)
	return p
}

// position maps an escape value to a fractional palette position.
func (p Palette) position(v float64) float64 {
	d := p.Density
	if d == 0 {
		d = 1
	}
	return v*d + p.Offset
}

// at returns the entry at integer position i, wrapping in both directions.
func (p Palette) at(i float64) color.RGBA {
	n := float64(len(p.Colors))
	idx := math.Mod(i, n)
	if idx < 0 {
		idx += n
	}
	return p.Colors[int(idx)]
}

// ColorStop represents a color at a specific position in a gradient.
type ColorStop struct {
	Offset float64 // Position in gradient, 0.0 to 1.0
	Color  color.RGBA
}

// gradientCache memoises gradient expansions; palettes are rebuilt on every
// palette switch in interactive use.
var gradientCache = cache.New[string, []color.RGBA](64)

// NewGradientPalette expands gradient stops into a palette of size entries,
// interpolated in linear light. Positions before the first stop take the
// first colour and positions after the last stop take the last colour.
// Entry i samples the gradient at i/size, so a gradient whose first and
// last stops match wraps without a seam.
func NewGradientPalette(stops []ColorStop, size int) (Palette, error) {
	if len(stops) == 0 {
		return Palette{}, &ConfigError{Field: "gradient", Reason: "no colour stops"}
	}
	if size <= 0 {
		return Palette{}, &ConfigError{Field: "gradient.size", Reason: fmt.Sprintf("must be positive, got %d", size)}
	}
	for _, s := range stops {
		if !isFinite(s.Offset) {
			return Palette{}, &ConfigError{Field: "gradient.offset", Reason: "must be finite"}
		}
	}

	colors := gradientCache.GetOrCreate(gradientKey(stops, size), func() []color.RGBA {
		return expandGradient(stops, size)
	})
	return Palette{Colors: slices.Clone(colors), Density: 1}, nil
}

func gradientKey(stops []ColorStop, size int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(size))
	for _, s := range stops {
		fmt.Fprintf(&b, "|%g:%02x%02x%02x%02x", s.Offset, s.Color.R, s.Color.G, s.Color.B, s.Color.A)
	}
	return b.String()
}

func expandGradient(stops []ColorStop, size int) []color.RGBA {
	sorted := slices.Clone(stops)
	slices.SortStableFunc(sorted, func(a, b ColorStop) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})

	out := make([]color.RGBA, size)
	for i := range out {
		out[i] = colorAtOffset(sorted, float64(i)/float64(size))
	}
	return out
}

// colorAtOffset returns the gradient colour at t. stops must be sorted.
func colorAtOffset(stops []ColorStop, t float64) color.RGBA {
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if t >= last.Offset {
		return last.Color
	}

	idx, _ := slices.BinarySearchFunc(stops, t, func(s ColorStop, t float64) int {
		switch {
		case s.Offset < t:
			return -1
		case s.Offset > t:
			return 1
		}
		return 0
	})
	// stops[idx-1].Offset < t <= stops[idx].Offset
	a, b := stops[idx-1], stops[idx]
	span := b.Offset - a.Offset
	if span <= 0 {
		return b.Color
	}
	return icolor.Lerp(a.Color, b.Color, (t-a.Offset)/span)
}

// ParsePalette parses a comma-separated list of colours, each a CSS colour
// name or a hex value, into a discrete palette with density 1.
//
//	ParsePalette("navy, #ffcc00, white")
func ParsePalette(s string) (Palette, error) {
	fields := strings.Split(s, ",")
	colors := make([]color.RGBA, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			continue
		}
		c, err := ParseColor(f)
		if err != nil {
			return Palette{}, &ConfigError{Field: "palette", Reason: err.Error()}
		}
		colors = append(colors, c)
	}
	if len(colors) == 0 {
		return Palette{}, &ConfigError{Field: "palette", Reason: "no colours"}
	}
	return Palette{Colors: colors, Density: 1}, nil
}

// EvenStops spreads colours evenly over [0, 1] and repeats the first colour
// at 1, producing a gradient that cycles seamlessly.
func EvenStops(colors []color.RGBA) []ColorStop {
	if len(colors) == 0 {
		return nil
	}
	stops := make([]ColorStop, 0, len(colors)+1)
	for i, c := range colors {
		stops = append(stops, ColorStop{Offset: float64(i) / float64(len(colors)), Color: c})
	}
	return append(stops, ColorStop{Offset: 1, Color: colors[0]})
}

// paletteSize is the number of entries in the built-in gradients.
const paletteSize = 256

// builtinDensity makes the built-in gradients cycle once every 32 escape
// iterations.
const builtinDensity = paletteSize / 32

func mustGradient(colors ...color.RGBA) Palette {
	p, err := NewGradientPalette(EvenStops(colors), paletteSize)
	if err != nil {
		panic(err) // built-in stops are static
	}
	p.Density = builtinDensity
	return p
}

// DefaultPalette returns the default blue/white/orange cycling gradient.
func DefaultPalette() Palette {
	return mustGradient(
		color.RGBA{R: 0, G: 7, B: 100, A: 255},
		color.RGBA{R: 32, G: 107, B: 203, A: 255},
		color.RGBA{R: 237, G: 255, B: 255, A: 255},
		color.RGBA{R: 255, G: 170, B: 0, A: 255},
		color.RGBA{R: 0, G: 2, B: 0, A: 255},
	)
}

// FirePalette returns a black/red/yellow/white cycling gradient.
func FirePalette() Palette {
	return mustGradient(
		color.RGBA{A: 255},
		color.RGBA{R: 180, G: 20, A: 255},
		color.RGBA{R: 255, G: 200, B: 20, A: 255},
		color.RGBA{R: 255, G: 255, B: 230, A: 255},
	)
}

// GrayPalette returns a black/white cycling gradient.
func GrayPalette() Palette {
	return mustGradient(
		color.RGBA{A: 255},
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
	)
}

// PaletteByName returns a built-in palette ("default", "fire", "gray") or
// parses name as a colour list.
func PaletteByName(name string) (Palette, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultPalette(), nil
	case "fire":
		return FirePalette(), nil
	case "gray", "grey":
		return GrayPalette(), nil
	}
	return ParsePalette(name)
}
