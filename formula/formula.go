// Package formula defines the contract between the rendering engine and the
// escape-time fractal formulas it renders, and ships a default catalogue.
//
// A fractal is a pair of pure functions with the signature
//
//	func(cx, cy float64, maxIter uint) float64
//
// Normal returns the integer escape count in [0, maxIter], where maxIter
// means the point did not escape. Smooth returns a continuous count built
// with the renormalisation technique: up to four extra iterations past escape
// and then escape + 1 + k - log(log(|z|²)) / log(power), where k is the number
// of extra iterations taken before |z| grew too large to square again. Smooth also returns maxIter
// for points that did not escape, and keeps every escaped value strictly
// below maxIter so the two cases never collide.
//
// Both functions must be safe to call from many goroutines at once.
package formula

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Escape is the squared escape radius. An orbit escapes once |z|² > Escape.
const Escape = 4.0

// extraIterations is how far Smooth iterates past escape before taking the
// double logarithm. More iterations push |z| further out, which reduces the
// banding left by the approximation.
const extraIterations = 4

// Func is an escape-time function evaluated at plane point (cx, cy).
type Func func(cx, cy float64, maxIter uint) float64

// Preset is the view a fractal is usually first shown at.
type Preset struct {
	X, Y, W float64
	Iter    uint
}

// Fractal is one registered fractal formula.
type Fractal struct {
	// ID is the stable identifier used in render requests.
	ID string

	// Name is a human-readable name.
	Name string

	// Power is the degree of the iterated polynomial (2 for z² + c).
	Power float64

	// Normal and Smooth are the discrete and continuous escape functions.
	Normal Func
	Smooth Func

	// Preset is the default view for this fractal.
	Preset Preset
}

var (
	// ErrDuplicate is returned when registering an ID that already exists.
	ErrDuplicate = errors.New("formula: duplicate fractal id")

	// ErrIncomplete is returned when a fractal lacks an ID or a function.
	ErrIncomplete = errors.New("formula: incomplete fractal definition")
)

// Registry maps fractal IDs to their functions.
//
// A Registry is normally built once at startup; lookups are safe for
// concurrent use with registrations.
type Registry struct {
	mu       sync.RWMutex
	fractals map[string]Fractal
	order    []string
}

// NewRegistry creates a registry holding the given fractals.
func NewRegistry(fractals ...Fractal) (*Registry, error) {
	r := &Registry{fractals: make(map[string]Fractal, len(fractals))}
	for _, f := range fractals {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a fractal to the registry.
func (r *Registry) Register(f Fractal) error {
	if f.ID == "" || f.Normal == nil || f.Smooth == nil {
		return fmt.Errorf("%w: %q", ErrIncomplete, f.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fractals[f.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, f.ID)
	}
	r.fractals[f.ID] = f
	r.order = append(r.order, f.ID)
	return nil
}

// Lookup returns the fractal registered under id.
func (r *Registry) Lookup(id string) (Fractal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fractals[id]
	return f, ok
}

// IDs returns the registered IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered fractals.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.fractals)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in fractals:
// mandelbrot, mandelbrot3, mandelbrot4, burningship and burningbird.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(Mandelbrot, Multibrot3, Multibrot4, BurningShip, BurningBird)
		if err != nil {
			panic(err) // built-in table is static
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// step advances one iteration: given z, its squared components and c,
// it returns the next z. Keeping sqx and sqy separate lets folding
// formulas combine real and imaginary parts asymmetrically.
type step func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64)

// orbit iterates f from z = 0 until escape or maxIter. It returns the
// 0-based iteration at which |z|² first exceeded Escape (maxIter if never)
// together with that z.
func orbit(f step, cx, cy float64, maxIter uint) (n uint, zx, zy float64) {
	var sqx, sqy float64
	for n = 0; n < maxIter; n++ {
		zx, zy = f(zx, zy, sqx, sqy, cx, cy)
		sqx, sqy = zx*zx, zy*zy
		if sqx+sqy > Escape {
			return n, zx, zy
		}
	}
	return maxIter, zx, zy
}

// define builds a Fractal from a single iteration step.
func define(id, name string, power float64, preset Preset, f step) Fractal {
	invLogP := 1 / math.Log(power)
	// One more step from |z|² = bailout lands near bailout^power, which must
	// stay finite.
	bailout := math.Pow(1e300, 1/power)

	normal := func(cx, cy float64, maxIter uint) float64 {
		n, _, _ := orbit(f, cx, cy, maxIter)
		return float64(n)
	}

	smooth := func(cx, cy float64, maxIter uint) float64 {
		n, zx, zy := orbit(f, cx, cy, maxIter)
		if n == maxIter {
			return float64(maxIter)
		}
		k := 0
		for ; k < extraIterations && zx*zx+zy*zy < bailout; k++ {
			zx, zy = f(zx, zy, zx*zx, zy*zy, cx, cy)
		}
		v := float64(n) + 1 + float64(k) - math.Log(math.Log(zx*zx+zy*zy))*invLogP
		return min(max(v, 0), math.Nextafter(float64(maxIter), 0))
	}

	return Fractal{
		ID:     id,
		Name:   name,
		Power:  power,
		Normal: normal,
		Smooth: smooth,
		Preset: preset,
	}
}
