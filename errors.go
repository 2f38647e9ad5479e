package fractal

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fractal package.
var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("fractal: invalid configuration")

	// ErrOutOfRange is matched by every *OutOfRangeError.
	ErrOutOfRange = errors.New("fractal: view width out of range")

	// ErrSuperseded is returned by Wait when a newer generation replaced
	// the one being waited on before it completed.
	ErrSuperseded = errors.New("fractal: render superseded")

	// ErrClosed is returned by engine operations after Close.
	ErrClosed = errors.New("fractal: engine closed")

	// ErrNumericFault is matched by every *NumericFault.
	ErrNumericFault = errors.New("fractal: numeric fault")
)

// ConfigError reports a render request or option that cannot be honoured.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "fractal: invalid " + e.Field + ": " + e.Reason
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// OutOfRangeError is returned when a view width falls outside the range a
// camera can represent.
type OutOfRangeError struct {
	Width    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("fractal: width %g outside [%g, %g]", e.Width, e.Min, e.Max)
}

// Is reports whether target is ErrOutOfRange.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// NumericFault describes a tile whose computation panicked or produced a
// non-finite value. The tile is painted as interior and the frame continues.
type NumericFault struct {
	TileID     int
	Generation uint64
	// Cause is the recovered panic value, or a description of the bad value.
	Cause any
}

func (e *NumericFault) Error() string {
	return fmt.Sprintf("fractal: numeric fault in tile %d (generation %d): %v",
		e.TileID, e.Generation, e.Cause)
}

// Is reports whether target is ErrNumericFault.
func (e *NumericFault) Is(target error) bool {
	return target == ErrNumericFault
}
