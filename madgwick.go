package minmotion

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// WithMadgwickLogger sets the logger used to report skipped steps.
func WithMadgwickLogger(logger *slog.Logger) func(*Madgwick) {
	return func(m *Madgwick) {
		m.logger = logger
	}
}

// WithMadgwickMetrics sets the collectors updated on every step.
func WithMadgwickMetrics(metrics *Metrics) func(*Madgwick) {
	return func(m *Madgwick) {
		m.metrics = metrics
	}
}

// Madgwick is the gradient-descent orientation filter.
//
// Each step integrates the gyroscope rate and subtracts beta times a unit
// corrective step, the normalised gradient of the error between the measured
// field directions and the directions predicted from the current estimate.
//
// The algorithm is described in:
//
// - S. O. H. Madgwick, "An efficient orientation filter for inertial and inertial/magnetic sensor arrays", 2010.
type Madgwick struct {
	attitude

	config MadgwickConfig

	logger  *slog.Logger
	metrics *Metrics
}

// NewMadgwick creates a Madgwick filter. The config is validated and its
// initial quaternion normalised.
func NewMadgwick(config MadgwickConfig, options ...func(*Madgwick)) (*Madgwick, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := Madgwick{
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
func (m *Madgwick) Config() MadgwickConfig {
	return m.config
}

// Reset returns the estimate to the configured initial quaternion.
func (m *Madgwick) Reset() {
	m.set(m.config.InitialQuaternion.Normalize())
}

// Update performs one 9-axis update step.
//
// gyro is in rad/s; accel and mag may be in any units since only their
// directions are used. If accel or mag has zero norm, or any reading has a
// non-finite component, the step is skipped, the estimate is left untouched
// and ErrDegenerateSensorReading is returned.
func (m *Madgwick) Update(gyro, accel, mag Vec) error {
	if !finite(gyro) {
		return m.degenerate(reasonGyro)
	}
	a, ok := unit(accel)
	if !ok {
		return m.degenerate(reasonAccel)
	}
	n, ok := unit(mag)
	if !ok {
		return m.degenerate(reasonMag)
	}

	q := m.q
	w, x, y, z := q.W, q.X, q.Y, q.Z

	// Reference direction of the earth's magnetic field: rotate the measurement
	// into the earth frame and keep only its horizontal magnitude and vertical part
	h := q.Mul(pure(n).Mul(q.Conj()))
	bx := math.Hypot(h.X, h.Y)
	bz := h.Z

	// Objective function: predicted minus measured gravity and field directions
	f := mat.NewVecDense(6, []float64{
		2*(x*z-w*y) - a.X,
		2*(w*x+y*z) - a.Y,
		2*(0.5-x*x-y*y) - a.Z,
		2*bx*(0.5-y*y-z*z) + 2*bz*(x*z-w*y) - n.X,
		2*bx*(x*y-w*z) + 2*bz*(w*x+y*z) - n.Y,
		2*bx*(w*y+x*z) + 2*bz*(0.5-x*x-y*y) - n.Z,
	})

	// Jacobian of f with respect to (w, x, y, z)
	j := mat.NewDense(6, 4, []float64{
		-2 * y, 2 * z, -2 * w, 2 * x,
		2 * x, 2 * w, 2 * z, 2 * y,
		0, -4 * x, -4 * y, 0,
		-2 * bz * y, 2 * bz * z, -4*bx*y - 2*bz*w, -4*bx*z + 2*bz*x,
		-2*bx*z + 2*bz*x, 2*bx*y + 2*bz*w, 2*bx*x + 2*bz*z, -2*bx*w + 2*bz*y,
		2 * bx * y, 2*bx*z - 4*bz*x, 2*bx*w - 4*bz*y, 2 * bx * x,
	})

	m.integrate(modeMARG, gyro, m.step(j, f))
	return nil
}

// UpdateIMU performs one 6-axis update step, using gravity only.
//
// gyro is in rad/s; accel may be in any units. If accel has zero norm, or
// either reading has a non-finite component, the step is skipped, the estimate
// is left untouched and ErrDegenerateSensorReading is returned.
func (m *Madgwick) UpdateIMU(gyro, accel Vec) error {
	if !finite(gyro) {
		return m.degenerate(reasonGyro)
	}
	a, ok := unit(accel)
	if !ok {
		return m.degenerate(reasonAccel)
	}

	q := m.q
	w, x, y, z := q.W, q.X, q.Y, q.Z

	f := mat.NewVecDense(3, []float64{
		2*(x*z-w*y) - a.X,
		2*(w*x+y*z) - a.Y,
		2*(0.5-x*x-y*y) - a.Z,
	})

	j := mat.NewDense(3, 4, []float64{
		-2 * y, 2 * z, -2 * w, 2 * x,
		2 * x, 2 * w, 2 * z, 2 * y,
		0, -4 * x, -4 * y, 0,
	})

	m.integrate(modeIMU, gyro, m.step(j, f))
	return nil
}

// step returns the normalised gradient Jᵗf as a quaternion. When the gradient
// is too small to normalise, the zero quaternion is returned and the sample is
// integrated from the gyroscope alone.
func (m *Madgwick) step(j *mat.Dense, f *mat.VecDense) Quaternion {
	var s mat.VecDense
	s.MulVec(j.T(), f)

	norm := mat.Norm(&s, 2)
	if !(norm >= StepNormTolerance) {
		m.metrics.skip(filterMadgwick, reasonStep)
		m.logger.Debug("dropping corrective step", slog.String("filter", filterMadgwick), slog.Float64("norm", norm))
		return Quaternion{}
	}

	return Quaternion{
		W: s.AtVec(0) / norm,
		X: s.AtVec(1) / norm,
		Y: s.AtVec(2) / norm,
		Z: s.AtVec(3) / norm,
	}
}

// integrate applies qdot = 0.5*q*(0,gyro) - beta*step over one sample period
// and renormalises the estimate.
func (m *Madgwick) integrate(mode string, gyro Vec, step Quaternion) {
	q := m.q
	qdot := q.Mul(pure(gyro)).Scale(0.5).Add(step.Scale(-m.config.Beta))
	q = q.Add(qdot.Scale(m.config.SamplePeriod))

	if n := q.Norm(); n == 0 || !isFinite(n) {
		// Nothing sensible can be recovered from this estimate, start over
		m.logger.Error("estimate cannot be normalised, resetting", slog.String("filter", filterMadgwick))
		m.Reset()
		return
	}
	q = q.Normalize()

	m.set(q)
	m.metrics.updated(filterMadgwick, mode, q)
}

func (m *Madgwick) degenerate(sensor string) error {
	m.metrics.skip(filterMadgwick, sensor)
	m.logger.Warn("skipping update: degenerate sensor reading",
		slog.String("filter", filterMadgwick), slog.String("sensor", sensor))
	return degenerate(sensor)
}
