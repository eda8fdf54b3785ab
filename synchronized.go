package minmotion

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// eulerCache is implemented by filters that cache their Euler angles.
type eulerCache interface {
	EulerAngles() (roll, pitch, yaw float64)
	EulerAngles123() (roll, pitch, yaw float64)
}

// Synchronized serialises access to a filter so that it can be shared
// between goroutines. Samples are still applied in the order the calls
// acquire the lock, so a single producer per filter is the expected use.
type Synchronized struct {
	mu     sync.RWMutex
	filter Filter
}

// NewSynchronized wraps filter.
func NewSynchronized(filter Filter) *Synchronized {
	return &Synchronized{filter: filter}
}

// UpdateIMU performs one 6-axis update step on the wrapped filter.
func (s *Synchronized) UpdateIMU(gyro, accel Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.UpdateIMU(gyro, accel)
}

// Update performs one 9-axis update step on the wrapped filter. Filters that
// cannot fuse magnetometer readings get a 6-axis step and mag is ignored.
func (s *Synchronized) Update(gyro, accel, mag Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if marg, ok := s.filter.(MARGFilter); ok {
		return marg.Update(gyro, accel, mag)
	}
	return s.filter.UpdateIMU(gyro, accel)
}

// Quaternion returns the current estimate of the wrapped filter.
func (s *Synchronized) Quaternion() Quaternion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Quaternion()
}

// EulerAngles returns the roll, pitch and yaw (rad) of the current estimate,
// see Quaternion.EulerAngles.
func (s *Synchronized) EulerAngles() (roll, pitch, yaw float64) {
	// Write lock, the filter's cache is filled on read
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.filter.(eulerCache); ok {
		return c.EulerAngles()
	}
	return s.filter.Quaternion().EulerAngles()
}

// EulerAngles123 returns the x-y-z roll, pitch and yaw (rad) of the current
// estimate, see Quaternion.EulerAngles123.
func (s *Synchronized) EulerAngles123() (roll, pitch, yaw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.filter.(eulerCache); ok {
		return c.EulerAngles123()
	}
	return s.filter.Quaternion().EulerAngles123()
}

// RotationMatrix returns the direction cosine matrix of the current estimate.
func (s *Synchronized) RotationMatrix() *mat.Dense {
	return s.Quaternion().RotationMatrix()
}

// AngleAxis returns the current estimate as a rotation angle (rad) and unit axis.
func (s *Synchronized) AngleAxis() (angle, x, y, z float64) {
	return s.Quaternion().ToAngleAxis()
}
