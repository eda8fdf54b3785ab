// Package minmotion estimates the orientation of an IMU/MARG sensor package as a
// unit quaternion, updated once per sample period from gyroscope, accelerometer
// and (optionally) magnetometer readings.
//
// Two filters are provided:
//
// - Madgwick: gradient-descent corrective filter, 6-axis (UpdateIMU) and 9-axis (Update).
//
// - Mahony: proportional-integral feedback filter, 6-axis (UpdateIMU).
//
// A filter is not safe for concurrent use. Wrap it with Synchronized if several
// goroutines share it.
package minmotion

const (
	// If the sine of the half rotation angle is below this, ToAngleAxis treats the rotation as zero.
	AngleAxisTolerance = 1e-8

	// If x*y + z*w is within this of ±0.5, EulerAngles takes the gimbal lock branch.
	GimbalLockTolerance = 1e-8

	// If the norm of the Madgwick corrective step is below this, the step is dropped for that sample.
	StepNormTolerance = 1e-12

	// Default sample period (s) used when a config leaves it unset.
	DefaultSamplePeriod = 1.0 / 256.0

	// Default Madgwick gain.
	DefaultBeta = 1.0

	// Default Mahony proportional gain.
	DefaultKp = 1.0

	// Default Mahony integral gain.
	DefaultKi = 0.0
)

// Filter is an orientation filter fed with gyroscope and accelerometer samples.
type Filter interface {
	// UpdateIMU performs one 6-axis update step.
	UpdateIMU(gyro, accel Vec) error
	// Quaternion returns the current orientation estimate.
	Quaternion() Quaternion
}

// MARGFilter is a Filter that can also fuse magnetometer samples.
type MARGFilter interface {
	Filter
	// Update performs one 9-axis update step.
	Update(gyro, accel, mag Vec) error
}
