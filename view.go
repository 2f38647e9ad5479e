package fractal

import (
	"fmt"
	"strings"
)

// Interior is the value a worker stores for a pixel whose orbit did not
// escape within the iteration budget. Escaped pixels always hold a value
// >= 0, so the sentinel can never be confused with an escape count.
const Interior = -1.0

// ViewState is the part of the complex plane shown on the canvas.
//
// Width is the plane distance spanned by the canvas width; the visible
// height follows from the canvas aspect ratio. Transform is a linear map
// (rotation, scale, shear) applied about the centre. The zero Transform is
// treated as the identity so that a literal ViewState{CenterX: -0.5, Width: 3}
// is usable as-is.
type ViewState struct {
	CenterX, CenterY float64
	Width            float64
	Transform        Matrix
}

// NewView returns a view with the identity transform.
func NewView(cx, cy, width float64) ViewState {
	return ViewState{CenterX: cx, CenterY: cy, Width: width, Transform: Identity()}
}

// Center returns the view centre as a plane point.
func (v ViewState) Center() Point {
	return Point{X: v.CenterX, Y: v.CenterY}
}

// linear returns the transform with the zero value replaced by identity and
// any translation dropped.
func (v ViewState) linear() Matrix {
	if v.Transform == (Matrix{}) {
		return Identity()
	}
	m := v.Transform
	m.C, m.F = 0, 0
	return m
}

// Validate checks the view invariants: a finite positive width, a finite
// centre and an invertible transform.
func (v ViewState) Validate() error {
	if !isFinite(v.Width) || v.Width <= 0 {
		return &ConfigError{Field: "view.width", Reason: fmt.Sprintf("must be finite and positive, got %g", v.Width)}
	}
	if !v.Center().IsFinite() {
		return &ConfigError{Field: "view.center", Reason: "must be finite"}
	}
	if !v.linear().IsInvertible() {
		return &ConfigError{Field: "view.transform", Reason: "must be invertible"}
	}
	return nil
}

// ColorMode selects how raw escape values are mapped to palette colours.
type ColorMode uint8

const (
	// ModeNormal indexes the palette with the integer escape count.
	ModeNormal ColorMode = iota

	// ModeSmooth interpolates between palette entries using the continuous
	// escape count.
	ModeSmooth
)

// String returns the wire name of the mode.
func (m ColorMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSmooth:
		return "smooth"
	default:
		return fmt.Sprintf("ColorMode(%d)", uint8(m))
	}
}

// ParseColorMode parses "normal" or "smooth" (case-insensitive).
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return ModeNormal, nil
	case "smooth":
		return ModeSmooth, nil
	default:
		return 0, &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown colour mode %q", s)}
	}
}

// RenderRequest captures everything one render generation needs. It is
// built by the engine from a snapshot of the caller's parameters and never
// modified afterwards.
type RenderRequest struct {
	Generation uint64
	View       ViewState
	FractalID  string
	MaxIter    uint
	Mode       ColorMode
	Width      int
	Height     int
}
