package fractal

import (
	"errors"
	"image/color"
	"math"
	"testing"

	icolor "github.com/gogpu/fractal/internal/color"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// =============================================================================
// Colour Parsing Tests
// =============================================================================

func TestHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#abc", color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 255}, false},
		{"ffcc00", color.RGBA{R: 255, G: 204, A: 255}, false},
		{"#FFCC00", color.RGBA{R: 255, G: 204, A: 255}, false},
		{"#ff000080", color.RGBA{R: 128, A: 128}, false},
		{"#f008", color.RGBA{R: 136, A: 136}, false},
		{"12345", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Hex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Hex(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Hex(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette("navy, #ffcc00,White")
	if err != nil {
		t.Fatal(err)
	}
	want := []color.RGBA{{B: 128, A: 255}, {R: 255, G: 204, A: 255}, white}
	if len(p.Colors) != len(want) {
		t.Fatalf("got %d colours, want %d", len(p.Colors), len(want))
	}
	for i := range want {
		if p.Colors[i] != want[i] {
			t.Errorf("colour %d = %v, want %v", i, p.Colors[i], want[i])
		}
	}
	if p.Density != 1 {
		t.Errorf("Density = %v, want 1", p.Density)
	}

	for _, bad := range []string{"", " , ", "navy, notacolour"} {
		if _, err := ParsePalette(bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ParsePalette(%q) = %v, want ErrInvalidConfig", bad, err)
		}
	}
}

func TestPaletteByName(t *testing.T) {
	for _, name := range []string{"", "default", "fire", "Gray", "grey"} {
		p, err := PaletteByName(name)
		if err != nil {
			t.Fatalf("PaletteByName(%q) = %v", name, err)
		}
		if len(p.Colors) != paletteSize || p.Density != builtinDensity {
			t.Errorf("PaletteByName(%q) = %d colours, density %v", name, len(p.Colors), p.Density)
		}
	}
	if p, err := PaletteByName("red,blue"); err != nil || len(p.Colors) != 2 {
		t.Errorf("PaletteByName(colour list) = %v, %v", p, err)
	}
}

// =============================================================================
// Gradient Tests
// =============================================================================

func TestNewGradientPalette(t *testing.T) {
	stops := []ColorStop{{Offset: 1, Color: white}, {Offset: 0, Color: black}}
	p, err := NewGradientPalette(stops, 16)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Colors) != 16 {
		t.Fatalf("got %d entries, want 16", len(p.Colors))
	}
	if p.Colors[0] != black {
		t.Errorf("first entry = %v, want black", p.Colors[0])
	}
	for i := 1; i < len(p.Colors); i++ {
		if p.Colors[i].R < p.Colors[i-1].R {
			t.Fatalf("entry %d darker than entry %d", i, i-1)
		}
	}
	if p.Colors[15] == white {
		t.Error("last entry reached the final stop; entries should sample [0, 1)")
	}
}

func TestNewGradientPalette_Cached(t *testing.T) {
	stops := []ColorStop{{Offset: 0, Color: red}, {Offset: 0.5, Color: green}, {Offset: 1, Color: red}}

	first, err := NewGradientPalette(stops, 33)
	if err != nil {
		t.Fatal(err)
	}
	hits := gradientCache.Stats().Hits

	second, _ := NewGradientPalette(stops, 33)
	if gradientCache.Stats().Hits != hits+1 {
		t.Error("second expansion of the same stops missed the cache")
	}

	// Callers get their own copy.
	second.Colors[0] = blue
	third, _ := NewGradientPalette(stops, 33)
	if third.Colors[0] != first.Colors[0] {
		t.Error("mutating a returned palette changed the cached entries")
	}
}

func TestNewGradientPalette_Errors(t *testing.T) {
	if _, err := NewGradientPalette(nil, 8); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("no stops: %v", err)
	}
	if _, err := NewGradientPalette(EvenStops([]color.RGBA{red}), 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero size: %v", err)
	}
	if _, err := NewGradientPalette([]ColorStop{{Offset: math.NaN(), Color: red}}, 8); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nan offset: %v", err)
	}
}

func TestEvenStops(t *testing.T) {
	stops := EvenStops([]color.RGBA{red, green, blue, white})
	if len(stops) != 5 {
		t.Fatalf("got %d stops, want 5", len(stops))
	}
	if stops[2].Offset != 0.5 || stops[4].Offset != 1 || stops[4].Color != red {
		t.Errorf("stops = %+v", stops)
	}
	if EvenStops(nil) != nil {
		t.Error("EvenStops(nil) != nil")
	}
}

func TestPalette_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    Palette
		ok   bool
	}{
		{"valid", Palette{Colors: []color.RGBA{red}}, true},
		{"empty", Palette{}, false},
		{"negative density", Palette{Colors: []color.RGBA{red}, Density: -1}, false},
		{"nan offset", Palette{Colors: []color.RGBA{red}, Offset: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

// =============================================================================
// Painter Tests
// =============================================================================

func TestPainter_Colorize(t *testing.T) {
	rgb := []color.RGBA{red, green, blue}

	tests := []struct {
		name string
		pal  Palette
		v    float64
		mode ColorMode
		want color.RGBA
	}{
		{"normal first", Palette{Colors: rgb}, 0, ModeNormal, red},
		{"normal second", Palette{Colors: rgb}, 1, ModeNormal, green},
		{"normal wraps", Palette{Colors: rgb}, 3, ModeNormal, red},
		{"normal floors", Palette{Colors: rgb}, 4.7, ModeNormal, green},
		{"density", Palette{Colors: rgb, Density: 2}, 1, ModeNormal, blue},
		{"negative offset wraps", Palette{Colors: rgb, Density: 1, Offset: -1}, 0, ModeNormal, blue},
		{"smooth exact at integers", Palette{Colors: rgb}, 1, ModeSmooth, green},
		{"smooth between", Palette{Colors: rgb}, 1.5, ModeSmooth, icolor.Lerp(green, blue, 0.5)},
		{"smooth wraps to first", Palette{Colors: rgb}, 2.25, ModeSmooth, icolor.Lerp(blue, red, 0.25)},
		{"interior normal", Palette{Colors: rgb}, Interior, ModeNormal, black},
		{"interior smooth", Palette{Colors: rgb}, Interior, ModeSmooth, black},
		{"nan", Palette{Colors: rgb}, math.NaN(), ModeSmooth, black},
		{"inf", Palette{Colors: rgb}, math.Inf(1), ModeNormal, black},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPainter(tt.pal, DefaultInteriorColor)
			if got := p.Colorize(tt.v, tt.mode); got != tt.want {
				t.Errorf("Colorize(%v, %v) = %v, want %v", tt.v, tt.mode, got, tt.want)
			}
		})
	}
}

func TestPainter_InvalidPaletteFallsBack(t *testing.T) {
	p := NewPainter(Palette{}, white)
	if len(p.Palette().Colors) != paletteSize {
		t.Errorf("fallback palette has %d colours", len(p.Palette().Colors))
	}
	if p.Interior() != white {
		t.Errorf("Interior() = %v, want white", p.Interior())
	}
}

func TestPainter_PaintSpan(t *testing.T) {
	p := NewPainter(Palette{Colors: []color.RGBA{red, green}}, white)
	dst := make([]uint8, 12)
	p.PaintSpan(dst, []float64{0, Interior, 1}, ModeNormal)

	want := []uint8{255, 0, 0, 255, 255, 255, 255, 255, 0, 255, 0, 255}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}

func TestPainter_WithPaletteIsIndependent(t *testing.T) {
	pal := Palette{Colors: []color.RGBA{red}}
	p := NewPainter(pal, black)
	pal.Colors[0] = blue
	if got := p.Colorize(0, ModeNormal); got != red {
		t.Errorf("painter observed caller mutation: %v", got)
	}

	q := p.WithPalette(Palette{Colors: []color.RGBA{green}})
	if q.Colorize(0, ModeNormal) != green || p.Colorize(0, ModeNormal) != red {
		t.Error("WithPalette changed the original painter")
	}
}
