package minmotion

import "gonum.org/v1/gonum/mat"

// The cached accessors below write to the filter. Use Synchronized to read
// them while another goroutine updates the filter.

// EulerAngles returns the roll, pitch and yaw (rad) of the current estimate, see Quaternion.EulerAngles.
func (a *attitude) EulerAngles() (roll, pitch, yaw float64) {
	if !a.eulerValid {
		a.euler[0], a.euler[1], a.euler[2] = a.q.EulerAngles()
		a.eulerValid = true
	}
	return a.euler[0], a.euler[1], a.euler[2]
}

// EulerAngles123 returns the x-y-z roll, pitch and yaw (rad) of the current estimate, see Quaternion.EulerAngles123.
func (a *attitude) EulerAngles123() (roll, pitch, yaw float64) {
	if !a.euler123Valid {
		a.euler123[0], a.euler123[1], a.euler123[2] = a.q.EulerAngles123()
		a.euler123Valid = true
	}
	return a.euler123[0], a.euler123[1], a.euler123[2]
}

// RotationMatrix returns the direction cosine matrix of the current estimate.
func (a *attitude) RotationMatrix() *mat.Dense {
	return a.q.RotationMatrix()
}

// AngleAxis returns the current estimate as a rotation angle (rad) and unit axis.
func (a *attitude) AngleAxis() (angle, x, y, z float64) {
	return a.q.ToAngleAxis()
}
