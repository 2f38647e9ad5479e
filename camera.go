package fractal

import (
	"fmt"
	"math"
)

// DefaultMaxWidth is the widest view a camera accepts unless changed with
// SetMaxWidth. Every built-in fractal fits comfortably inside it.
const DefaultMaxWidth = 20.0

// resolutionULPs is how many float64 steps one pixel must span at the
// resolution limit. Fewer than this and neighbouring pixels start sampling
// the same plane point.
const resolutionULPs = 4

// TransformKind selects the operation composed by Camera.ApplyTransform.
type TransformKind uint8

const (
	// TransformRotation rotates by x radians; y is ignored.
	TransformRotation TransformKind = iota

	// TransformScale scales the two plane axes by x and y.
	TransformScale

	// TransformShear shears by x (horizontal) and y (vertical).
	TransformShear
)

// String returns the name of the transform kind.
func (k TransformKind) String() string {
	switch k {
	case TransformRotation:
		return "rotation"
	case TransformScale:
		return "scale"
	case TransformShear:
		return "shear"
	default:
		return fmt.Sprintf("TransformKind(%d)", uint8(k))
	}
}

// Camera maps between canvas pixels and the complex plane.
//
// Camera is a value type. A live camera driven by user input is copied
// (see Clone) whenever a render needs a stable snapshot; the copy is not
// affected by later changes to the original.
type Camera struct {
	width, height int
	view          ViewState
	maxWidth      float64
}

// NewCamera creates a camera for a width x height canvas showing view.
// Canvas dimensions below 1 are raised to 1.
func NewCamera(width, height int, view ViewState) Camera {
	view.Transform = view.linear()
	return Camera{
		width:    max(width, 1),
		height:   max(height, 1),
		view:     view,
		maxWidth: DefaultMaxWidth,
	}
}

// Clone returns an independent copy of the camera.
func (c Camera) Clone() Camera {
	return c
}

// View returns the current view.
func (c Camera) View() ViewState {
	return c.view
}

// Size returns the canvas size in pixels.
func (c Camera) Size() (width, height int) {
	return c.width, c.height
}

// Resize changes the canvas size, keeping the view.
func (c *Camera) Resize(width, height int) {
	c.width = max(width, 1)
	c.height = max(height, 1)
}

// MaxWidth returns the widest accepted view.
func (c Camera) MaxWidth() float64 {
	return c.maxWidth
}

// SetMaxWidth changes the widest accepted view. A non-positive or
// non-finite value restores DefaultMaxWidth.
func (c *Camera) SetMaxWidth(w float64) {
	if !isFinite(w) || w <= 0 {
		w = DefaultMaxWidth
	}
	c.maxWidth = w
}

// ScreenToPlane maps a canvas position (in pixels, y down) to the plane.
//
// The canvas is normalised by its width around its centre with y flipped,
// scaled by the view width, transformed and translated by the view centre.
// Pixel centres sit at half-integer positions.
func (c Camera) ScreenToPlane(s Point) Point {
	w := float64(c.width)
	n := Point{
		X: (s.X - w/2) / w * c.view.Width,
		Y: -(s.Y - float64(c.height)/2) / w * c.view.Width,
	}
	return c.view.Transform.TransformVector(n).Add(c.view.Center())
}

// PlaneToScreen maps a plane point to a canvas position. It is the inverse
// of ScreenToPlane.
func (c Camera) PlaneToScreen(p Point) Point {
	inv, _ := c.view.Transform.Invert()
	n := inv.TransformVector(p.Sub(c.view.Center()))
	w := float64(c.width)
	return Point{
		X: n.X/c.view.Width*w + w/2,
		Y: -n.Y/c.view.Width*w + float64(c.height)/2,
	}
}

// ApplyTransform composes a rotation, scale or shear onto the current
// transform and returns the result. The centre never moves. A composition
// that is not invertible is rejected and the camera is left unchanged.
func (c *Camera) ApplyTransform(kind TransformKind, x, y float64) (Matrix, error) {
	var op Matrix
	switch kind {
	case TransformRotation:
		op = Rotate(x)
	case TransformScale:
		op = Scale(x, y)
	case TransformShear:
		op = Shear(x, y)
	default:
		return c.view.Transform, &ConfigError{Field: "transform", Reason: "unknown kind " + kind.String()}
	}

	next := c.view.Transform.Multiply(op)
	if !next.IsInvertible() {
		return c.view.Transform, &ConfigError{
			Field:  "transform",
			Reason: fmt.Sprintf("%s(%g, %g) makes the view transform singular", kind, x, y),
		}
	}
	c.view.Transform = next
	return next, nil
}

// ResetTransform restores the identity transform.
func (c *Camera) ResetTransform() {
	c.view.Transform = Identity()
}

// SetCenterAndWidth moves the view. It returns an *OutOfRangeError, leaving
// the camera unchanged, when width is below ResolutionLimit at the new
// centre or above MaxWidth.
func (c *Camera) SetCenterAndWidth(center Point, width float64) error {
	if !center.IsFinite() {
		return &ConfigError{Field: "view.center", Reason: "must be finite"}
	}
	limit := c.resolutionLimitAt(center)
	if !isFinite(width) || width < limit || width > c.maxWidth {
		return &OutOfRangeError{Width: width, Min: limit, Max: c.maxWidth}
	}
	c.view.CenterX, c.view.CenterY = center.X, center.Y
	c.view.Width = width
	return nil
}

// ResolutionLimit returns the smallest view width at which adjacent pixels
// still map to distinct plane points at the current centre.
func (c Camera) ResolutionLimit() float64 {
	return c.resolutionLimitAt(c.view.Center())
}

func (c Camera) resolutionLimitAt(center Point) float64 {
	mag := max(1, math.Abs(center.X), math.Abs(center.Y))
	ulp := math.Nextafter(mag, math.Inf(1)) - mag
	// A transform that shrinks one axis shrinks the per-pixel step with it.
	return float64(c.width) * ulp * resolutionULPs / minStretch(c.view.Transform)
}

// IsAtZoomLimit reports whether the width is within one float64 epsilon of
// the resolution limit.
func (c Camera) IsAtZoomLimit() bool {
	limit := c.ResolutionLimit()
	return c.view.Width <= limit*(1+epsilon)
}

// ClampWidth raises w to the resolution limit if it falls below it. The
// second result reports whether clamping happened.
func (c Camera) ClampWidth(w float64) (float64, bool) {
	if limit := c.ResolutionLimit(); w < limit {
		return limit, true
	}
	return w, false
}

// Pan moves the view by a canvas-space delta, so the plane content follows
// a drag of delta pixels.
func (c *Camera) Pan(delta Point) {
	w := float64(c.width)
	n := Point{X: -delta.X / w * c.view.Width, Y: delta.Y / w * c.view.Width}
	d := c.view.Transform.TransformVector(n)
	c.view.CenterX += d.X
	c.view.CenterY += d.Y
}

// ZoomAt multiplies the width by factor while keeping the plane point under
// the canvas position at fixed. Factors below 1 zoom in.
//
// Zooming in past the resolution limit clamps to the limit; zooming in
// while already at the limit does nothing. Both report limited = true.
// Zooming out is capped at MaxWidth.
func (c *Camera) ZoomAt(factor float64, at Point) (limited bool) {
	if !isFinite(factor) || factor <= 0 || factor == 1 {
		return false
	}
	if factor < 1 && c.IsAtZoomLimit() {
		return true
	}

	anchor := c.ScreenToPlane(at)
	width := min(c.view.Width*factor, c.maxWidth)
	width, limited = c.ClampWidth(width)

	ratio := width / c.view.Width
	c.view.CenterX = anchor.X - (anchor.X-c.view.CenterX)*ratio
	c.view.CenterY = anchor.Y - (anchor.Y-c.view.CenterY)*ratio
	c.view.Width = width
	return limited
}

// epsilon is the float64 machine epsilon.
const epsilon = 0x1p-52

// minStretch returns the smallest singular value of the linear part of m:
// the least a unit vector can be lengthened by m.
func minStretch(m Matrix) float64 {
	det := math.Abs(m.Determinant())
	if det == 0 {
		return 1
	}
	s := m.A*m.A + m.B*m.B + m.D*m.D + m.E*m.E
	maxSq := (s + math.Sqrt(max(s*s-4*det*det, 0))) / 2
	return det / math.Sqrt(maxSq)
}
