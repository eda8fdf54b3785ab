package minmotion

import "fmt"

// attitude holds the orientation estimate shared by both filters, along with
// lazily computed alternative representations of it.
type attitude struct {
	q Quaternion // Current estimate, always a unit quaternion

	euler, euler123           [3]float64 // Cached (roll, pitch, yaw) for EulerAngles and EulerAngles123
	eulerValid, euler123Valid bool       // Whether the cached angles are up to date with q
}

func newAttitude(q Quaternion) attitude {
	return attitude{q: q.Normalize()}
}

// set stores a new estimate and invalidates the cached representations.
func (a *attitude) set(q Quaternion) {
	a.q = q
	a.eulerValid = false
	a.euler123Valid = false
}

// Quaternion returns the current attitude estimate.
func (a *attitude) Quaternion() Quaternion {
	return a.q
}

// SetQuaternion sets the current attitude estimate. The quaternion is normalised;
// a quaternion with zero (or non-finite) norm is rejected and the estimate is kept.
func (a *attitude) SetQuaternion(q Quaternion) error {
	if n := q.Norm(); n == 0 || !isFinite(n) {
		return fmt.Errorf("%w: quaternion %s cannot be normalised", ErrInvalidConfig, q)
	}
	a.set(q.Normalize())
	return nil
}

// SetAttitudeEuler sets the current attitude estimate to a particular set of ZYX Euler angles (rad).
func (a *attitude) SetAttitudeEuler(yaw, pitch, roll float64) {
	a.set(QuaternionFromEulerZYX(yaw, pitch, roll))
}
