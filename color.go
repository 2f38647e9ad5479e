package fractal

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/image/colornames"
)

// Hex parses a colour in hex notation, with or without a leading '#'.
// Supports formats: "RGB", "RGBA", "RRGGBB", "RRGGBBAA".
func Hex(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(hex, "#")

	var v [4]uint32
	v[3] = 255

	switch len(s) {
	case 3, 4:
		for i := range len(s) {
			d, ok := hexDigit(s[i])
			if !ok {
				return color.RGBA{}, fmt.Errorf("fractal: bad hex colour %q", hex)
			}
			v[i] = d * 17
		}
	case 6, 8:
		for i := 0; i < len(s); i += 2 {
			hi, ok1 := hexDigit(s[i])
			lo, ok2 := hexDigit(s[i+1])
			if !ok1 || !ok2 {
				return color.RGBA{}, fmt.Errorf("fractal: bad hex colour %q", hex)
			}
			v[i/2] = hi<<4 | lo
		}
	default:
		return color.RGBA{}, fmt.Errorf("fractal: bad hex colour %q", hex)
	}

	// Palette colours are opaque in practice; keep RGBA premultiplied
	// anyway so it stays a valid color.RGBA.
	a := v[3]
	return color.RGBA{
		R: uint8(v[0] * a / 255),
		G: uint8(v[1] * a / 255),
		B: uint8(v[2] * a / 255),
		A: uint8(a),
	}, nil
}

func hexDigit(c byte) (uint32, bool) {
	switch {
	case '0' <= c && c <= '9':
		return uint32(c - '0'), true
	case 'a' <= c && c <= 'f':
		return uint32(c - 'a' + 10), true
	case 'A' <= c && c <= 'F':
		return uint32(c - 'A' + 10), true
	}
	return 0, false
}

// ParseColor parses a CSS colour name ("navy", "gold") or a hex colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return Hex(s)
}
