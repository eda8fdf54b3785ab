package minmotion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimension is returned when a sequence operand does not have the
	// number of elements an operation expects (4 for quaternions, 3 for sensor vectors).
	ErrInvalidDimension = errors.New("minmotion: invalid dimension")

	// ErrDegenerateSensorReading is returned by a filter update when the accelerometer
	// or magnetometer vector has zero norm, or when any sensor vector has a NaN or
	// infinite component. The step is skipped and the filter state is left
	// untouched, so the caller may keep feeding samples.
	ErrDegenerateSensorReading = errors.New("minmotion: degenerate sensor reading")

	// ErrInvalidConfig is returned when a filter configuration is rejected.
	ErrInvalidConfig = errors.New("minmotion: invalid config")
)

// DimensionError reports the expected and the actual length of a rejected operand.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d elements, got %d", ErrInvalidDimension, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrInvalidDimension) hold for every DimensionError.
func (e *DimensionError) Is(target error) bool {
	return target == ErrInvalidDimension
}

func degenerate(sensor string) error {
	return fmt.Errorf("%w: %s vector has zero or non-finite norm", ErrDegenerateSensorReading, sensor)
}
