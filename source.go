package minmotion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxSourceRetries is the number of consecutive source read failures Run tolerates.
const maxSourceRetries = 5

// Sample is one tick of sensor readings.
type Sample struct {
	Gyro   Vec  // Angular rate, rad/s
	Accel  Vec  // Accelerometer, any units
	Mag    Vec  // Magnetometer, any units, only used if HasMag is set
	HasMag bool // Whether Mag holds a valid reading
}

// Source supplies samples, one per call, at the filter's sample period.
// Next returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (Sample, error)
}

// Run feeds every sample of src into filter until the source is exhausted or
// ctx is cancelled.
//
// Samples with a magnetometer reading use the 9-axis update when the filter
// supports it. Degenerate readings are logged by the filter and skipped.
// Source errors are retried; after maxSourceRetries consecutive failures the
// last error is returned. A nil logger means slog.Default().
func Run(ctx context.Context, src Source, filter Filter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	marg, hasMARG := filter.(MARGFilter)

	var failnum int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sample, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			failnum++
			logger.Warn("reading sample", slog.String("error", err.Error()), slog.Int("failures", failnum))
			if failnum >= maxSourceRetries {
				return fmt.Errorf("reading sample: failed %d times: %w", failnum, err)
			}
			continue
		}
		failnum = 0

		if sample.HasMag && hasMARG {
			err = marg.Update(sample.Gyro, sample.Accel, sample.Mag)
		} else {
			err = filter.UpdateIMU(sample.Gyro, sample.Accel)
		}
		if err != nil && !errors.Is(err, ErrDegenerateSensorReading) {
			return err
		}
	}
}

// SliceSource replays a fixed slice of samples.
type SliceSource struct {
	samples []Sample
	next    int
}

// NewSliceSource returns a Source that yields samples in order, then io.EOF.
func NewSliceSource(samples []Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

// Next returns the next sample, or io.EOF when all samples have been read.
func (s *SliceSource) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s.next >= len(s.samples) {
		return Sample{}, io.EOF
	}
	sample := s.samples[s.next]
	s.next++
	return sample, nil
}

// SampleFromSlices builds a sample from raw (x, y, z) sequences. mag may be nil
// for a 6-axis sample; any other length than 3 fails with ErrInvalidDimension.
func SampleFromSlices(gyro, accel, mag []float64) (Sample, error) {
	var (
		s   Sample
		err error
	)
	if s.Gyro, err = VecFromSlice(gyro); err != nil {
		return Sample{}, fmt.Errorf("gyroscope: %w", err)
	}
	if s.Accel, err = VecFromSlice(accel); err != nil {
		return Sample{}, fmt.Errorf("accelerometer: %w", err)
	}
	if mag == nil {
		return s, nil
	}
	if s.Mag, err = VecFromSlice(mag); err != nil {
		return Sample{}, fmt.Errorf("magnetometer: %w", err)
	}
	s.HasMag = true
	return s, nil
}
