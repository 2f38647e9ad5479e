// Package color provides linear-light colour interpolation for palettes.
//
// Palette entries are stored as 8-bit sRGB. Blending two sRGB bytes
// directly darkens the midpoint, so interpolation converts to linear light,
// blends there, and converts back. Both conversions go through lookup tables.
package color

import stdcolor "image/color"

// ColorF32 represents a color with float32 components in [0,1].
// RGB components are in the color space indicated by context.
// Alpha is always linear (never gamma-encoded).
type ColorF32 struct {
	R, G, B, A float32
}

// ToLinear converts an 8-bit sRGB color to linear float32 components.
func ToLinear(c stdcolor.RGBA) ColorF32 {
	return ColorF32{
		R: SRGBToLinearFast(c.R),
		G: SRGBToLinearFast(c.G),
		B: SRGBToLinearFast(c.B),
		A: float32(c.A) / 255,
	}
}

// FromLinear converts linear float32 components back to 8-bit sRGB.
func FromLinear(c ColorF32) stdcolor.RGBA {
	return stdcolor.RGBA{
		R: LinearToSRGBFast(c.R),
		G: LinearToSRGBFast(c.G),
		B: LinearToSRGBFast(c.B),
		A: clampAndRound(c.A),
	}
}

// Lerp interpolates between a and b in linear light.
// t is clamped to [0,1]; t == 0 returns a and t == 1 returns b exactly.
func Lerp(a, b stdcolor.RGBA, t float64) stdcolor.RGBA {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}

	la, lb := ToLinear(a), ToLinear(b)
	t32 := float32(t)
	return FromLinear(ColorF32{
		R: la.R + t32*(lb.R-la.R),
		G: la.G + t32*(lb.G-la.G),
		B: la.B + t32*(lb.B-la.B),
		A: la.A + t32*(lb.A-la.A),
	})
}

// clampAndRound clamps a float32 to [0,1] and converts to uint8 with rounding.
func clampAndRound(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
