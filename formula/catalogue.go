package formula

import "math"

// Mandelbrot is the classic set, z² + c.
var Mandelbrot = define("mandelbrot", "Mandelbrot", 2,
	Preset{X: -0.5, Y: 0, W: 3, Iter: 50},
	func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64) {
		return sqx - sqy + cx, 2*zx*zy + cy
	})

// Multibrot3 is the degree-3 multibrot, z³ + c.
var Multibrot3 = define("mandelbrot3", "Multibrot *3", 3,
	Preset{X: 0, Y: 0, W: 3, Iter: 50},
	func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64) {
		return sqx*zx - 3*zx*sqy + cx, 3*sqx*zy - sqy*zy + cy
	})

// Multibrot4 is the degree-4 multibrot, z⁴ + c.
var Multibrot4 = define("mandelbrot4", "Multibrot *4", 4,
	Preset{X: 0, Y: 0, W: 3, Iter: 50},
	func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64) {
		return sqx*sqx - 6*sqx*sqy + sqy*sqy + cx, 4*zx*zy*(sqx-sqy) + cy
	})

// BurningShip folds both components before squaring: (|zx| + i|zy|)² + c.
// The imaginary axis is flipped so the ship sits upright on screen.
var BurningShip = define("burningship", "Burning Ship", 2,
	Preset{X: -0.45, Y: 0.5, W: 3.5, Iter: 50},
	func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64) {
		return sqx - sqy + cx, 2*math.Abs(zx*zy) - cy
	})

// BurningBird folds only the imaginary part after each step.
// It is usually shown upside down, hence the negated cy.
var BurningBird = define("burningbird", "Burning Bird", 2,
	Preset{X: -0.46, Y: 0.07, W: 3.26, Iter: 50},
	func(zx, zy, sqx, sqy, cx, cy float64) (float64, float64) {
		return sqx - sqy + cx, math.Abs(2*zx*zy - cy)
	})
