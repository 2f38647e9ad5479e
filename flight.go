package fractal

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Flight animates the camera between two views.
//
// Progress runs from 0 to 1 along an easing curve. The centre moves
// linearly with progress and the width changes geometrically, so every
// frame zooms by the same factor and deep zooms do not rush at the end.
// The transform is interpolated entry by entry.
type Flight struct {
	from, to ViewState
	tween    *gween.Tween
	done     bool
}

// NewFlight creates a flight from one view to another lasting seconds.
// A nil easing function means ease.InOutQuad.
func NewFlight(from, to ViewState, seconds float32, easing ease.TweenFunc) *Flight {
	if easing == nil {
		easing = ease.InOutQuad
	}
	from.Transform = from.linear()
	to.Transform = to.linear()
	return &Flight{
		from:  from,
		to:    to,
		tween: gween.New(0, 1, max(seconds, 0), easing),
	}
}

// Update advances the flight by dt seconds and returns the view at the new
// time. The second result is true once the flight has reached its end.
func (f *Flight) Update(dt float32) (ViewState, bool) {
	if f.done {
		return f.to, true
	}
	t, done := f.tween.Update(dt)
	if done {
		f.done = true
		return f.to, true
	}
	return f.At(float64(t)), false
}

// Reset rewinds the flight to its start.
func (f *Flight) Reset() {
	f.tween.Reset()
	f.done = false
}

// At returns the view at progress t in [0, 1].
func (f *Flight) At(t float64) ViewState {
	switch {
	case t <= 0:
		return f.from
	case t >= 1:
		return f.to
	}

	a, b := f.from, f.to
	lerp := func(x, y float64) float64 { return x + (y-x)*t }
	return ViewState{
		CenterX: lerp(a.CenterX, b.CenterX),
		CenterY: lerp(a.CenterY, b.CenterY),
		Width:   a.Width * math.Pow(b.Width/a.Width, t),
		Transform: Matrix{
			A: lerp(a.Transform.A, b.Transform.A),
			B: lerp(a.Transform.B, b.Transform.B),
			D: lerp(a.Transform.D, b.Transform.D),
			E: lerp(a.Transform.E, b.Transform.E),
		},
	}
}

// Frames steps the flight at fps frames per second from its start and
// returns every view, including the first and the last.
func (f *Flight) Frames(fps float32) []ViewState {
	f.Reset()
	if fps <= 0 {
		return []ViewState{f.from, f.to}
	}
	dt := 1 / fps
	views := []ViewState{f.from}
	for {
		v, done := f.Update(dt)
		views = append(views, v)
		if done {
			return views
		}
	}
}
