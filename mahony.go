package minmotion

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"
)

// WithMahonyLogger sets the logger used to report skipped steps.
func WithMahonyLogger(logger *slog.Logger) func(*Mahony) {
	return func(m *Mahony) {
		m.logger = logger
	}
}

// WithMahonyMetrics sets the collectors updated on every step.
func WithMahonyMetrics(metrics *Metrics) func(*Mahony) {
	return func(m *Mahony) {
		m.metrics = metrics
	}
}

// Mahony is the proportional-integral feedback orientation filter.
//
// The error between the measured gravity direction and the one predicted from
// the current estimate is fed back into the gyroscope rate through a
// proportional gain Kp and, when Ki is positive, an integral gain Ki.
//
// The algorithm is based on:
//
// - R. Mahony, T. Hamel, and J.-M. Pflimlin, "Nonlinear complementary filters on the special orthogonal group",
//
// - IEEE Transactions on Automatic Control, vol. 53, no. 5, pp. 1203-1218.
type Mahony struct {
	attitude

	config MahonyConfig

	eInt      Vec // Integral error, held at zero while Ki <= 0
	lastError Vec // Error vector of the last completed step

	logger  *slog.Logger
	metrics *Metrics
}

// NewMahony creates a Mahony filter. The config is validated and its initial
// quaternion normalised.
func NewMahony(config MahonyConfig, options ...func(*Mahony)) (*Mahony, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := Mahony{
		attitude: newAttitude(config.InitialQuaternion),
		config:   config,
		logger:   slog.Default(),
	}

	for _, option := range options {
		option(&m)
	}

	return &m, nil
}

// Config returns the configuration the filter was created with.
func (m *Mahony) Config() MahonyConfig {
	return m.config
}

// IntegralError returns the integral error accumulator.
func (m *Mahony) IntegralError() Vec {
	return m.eInt
}

// LastError returns the error vector (measured × predicted gravity direction)
// of the last completed step.
func (m *Mahony) LastError() Vec {
	return m.lastError
}

// Reset returns the estimate to the configured initial quaternion and clears
// the integral and last errors.
func (m *Mahony) Reset() {
	m.set(m.config.InitialQuaternion.Normalize())
	m.eInt = Vec{}
	m.lastError = Vec{}
}

// UpdateIMU performs one 6-axis update step.
//
// gyro is in rad/s; accel may be in any units. If accel has zero norm, or
// either reading has a non-finite component, the step is skipped, the estimate
// and integral error are left untouched and ErrDegenerateSensorReading is
// returned.
func (m *Mahony) UpdateIMU(gyro, accel Vec) error {
	if !finite(gyro) {
		return m.degenerate(reasonGyro)
	}
	a, ok := unit(accel)
	if !ok {
		return m.degenerate(reasonAccel)
	}

	q := m.q
	w, x, y, z := q.W, q.X, q.Y, q.Z
	dt := m.config.SamplePeriod

	// Estimated direction of gravity
	v := Vec{
		X: 2 * (x*z - w*y),
		Y: 2 * (w*x + y*z),
		Z: w*w - x*x - y*y + z*z,
	}

	// Error is the cross product between measured and estimated direction of gravity
	e := r3.Cross(a, v)

	if m.config.Ki > 0 {
		m.eInt = r3.Add(m.eInt, r3.Scale(dt, e))
	} else {
		m.eInt = Vec{}
	}

	// Apply feedback terms
	g := r3.Add(gyro, r3.Add(r3.Scale(m.config.Kp, e), r3.Scale(m.config.Ki, m.eInt)))

	// Integrate rate of change of quaternion
	qdot := q.Mul(pure(r3.Scale(0.5, g)))
	q = q.Add(qdot.Scale(dt))

	if n := q.Norm(); n == 0 || !isFinite(n) {
		m.logger.Error("estimate cannot be normalised, resetting", slog.String("filter", filterMahony))
		m.Reset()
		return nil
	}
	q = q.Normalize()

	m.set(q)
	m.lastError = e
	m.metrics.updated(filterMahony, modeIMU, q)
	return nil
}

func (m *Mahony) degenerate(sensor string) error {
	m.metrics.skip(filterMahony, sensor)
	m.logger.Warn("skipping update: degenerate sensor reading",
		slog.String("filter", filterMahony), slog.String("sensor", sensor))
	return degenerate(sensor)
}
