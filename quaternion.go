package minmotion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is a rotation value. W is the scalar part and (X,Y,Z) the vector part.
//
// Quaternion is a plain value: every operation returns a new Quaternion and
// never modifies its receiver. Unit norm is not enforced; the filters
// normalise their own estimates.
type Quaternion struct {
	W, X, Y, Z float64
}

// NewQuaternion returns the quaternion (w, x, y, z).
func NewQuaternion(w, x, y, z float64) Quaternion {
	return Quaternion{W: w, X: x, Y: y, Z: z}
}

// Identity returns the identity rotation (1, 0, 0, 0).
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromSlice builds a quaternion from an ordered (w, x, y, z) sequence.
func QuaternionFromSlice(s []float64) (Quaternion, error) {
	if len(s) != 4 {
		return Quaternion{}, &DimensionError{Want: 4, Got: len(s)}
	}
	return Quaternion{W: s[0], X: s[1], Y: s[2], Z: s[3]}, nil
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{W: n.Real, X: n.Imag, Y: n.Jmag, Z: n.Kmag}
}

// Conj returns the conjugate of q (vector part negated).
func (q Quaternion) Conj() Quaternion {
	return fromNumber(quat.Conj(q.number()))
}

// Mul returns the Hamilton product q*p. It is associative but not commutative.
func (q Quaternion) Mul(p Quaternion) Quaternion {
	return fromNumber(quat.Mul(q.number(), p.number()))
}

// Scale returns q with every component multiplied by f.
func (q Quaternion) Scale(f float64) Quaternion {
	return fromNumber(quat.Scale(f, q.number()))
}

// Add returns the element-wise sum q+p.
func (q Quaternion) Add(p Quaternion) Quaternion {
	return fromNumber(quat.Add(q.number(), p.number()))
}

// AddSlice adds a (w, x, y, z) sequence element-wise to q.
func (q Quaternion) AddSlice(s []float64) (Quaternion, error) {
	p, err := QuaternionFromSlice(s)
	if err != nil {
		return Quaternion{}, err
	}
	return q.Add(p), nil
}

// Norm returns the Euclidean norm of the four components.
func (q Quaternion) Norm() float64 {
	return quat.Abs(q.number())
}

// Normalize returns q scaled to unit norm. A zero quaternion is returned unchanged.
func (q Quaternion) Normalize() Quaternion {
	n := q.Norm()
	if n == 0 {
		return q
	}
	return q.Scale(1 / n)
}

// At returns component i, in (w, x, y, z) order. It panics if i is outside 0..3.
func (q Quaternion) At(i int) float64 {
	switch i {
	case 0:
		return q.W
	case 1:
		return q.X
	case 2:
		return q.Y
	case 3:
		return q.Z
	}
	panic(fmt.Sprintf("minmotion: quaternion index %d out of range", i))
}

// Array returns the components as a (w, x, y, z) array.
func (q Quaternion) Array() [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f, %.6f)", q.W, q.X, q.Y, q.Z)
}

// QuaternionFromAngleAxis returns the rotation by angle (rad) about the axis (x,y,z).
// The axis is used as given, so a non-unit axis yields a non-unit quaternion.
func QuaternionFromAngleAxis(angle, x, y, z float64) Quaternion {
	s := math.Sin(angle / 2)
	return Quaternion{W: math.Cos(angle / 2), X: x * s, Y: y * s, Z: z * s}
}

// ToAngleAxis returns the rotation angle (rad) and unit rotation axis of q.
//
// The identity quaternion, and any quaternion whose sine of the half angle is
// below AngleAxisTolerance, yields angle 0 about the x axis.
func (q Quaternion) ToAngleAxis() (angle, x, y, z float64) {
	if q == Identity() {
		return 0, 1, 0, 0
	}

	u := q.Normalize()
	half := math.Acos(clamp(u.W))
	s := math.Sin(half)
	if math.Abs(s) < AngleAxisTolerance {
		return 0, 1, 0, 0
	}
	return 2 * half, u.X / s, u.Y / s, u.Z / s
}

// QuaternionFromEulerZYX returns the quaternion for the given ZYX Euler angles (rad).
func QuaternionFromEulerZYX(yaw, pitch, roll float64) Quaternion {
	// halve the yaw, pitch and roll values (for calculation purposes only)
	yaw *= 0.5
	pitch *= 0.5
	roll *= 0.5

	var (
		cpsi = math.Cos(yaw)
		spsi = math.Sin(yaw)
		cth  = math.Cos(pitch)
		sth  = math.Sin(pitch)
		cphi = math.Cos(roll)
		sphi = math.Sin(roll)
	)

	return Quaternion{
		W: cpsi*cth*cphi + spsi*sth*sphi,
		X: cpsi*cth*sphi - spsi*sth*cphi,
		Y: cpsi*sth*cphi + spsi*cth*sphi,
		Z: spsi*cth*cphi - cpsi*sth*sphi,
	}
}

// RotationMatrix returns the 3x3 direction cosine matrix of q.
//
// The matrix maps reference frame vectors into the frame described by q:
// R·v equals the vector part of conj(q)*v*q.
func (q Quaternion) RotationMatrix() *mat.Dense {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return mat.NewDense(3, 3, []float64{
		2*w*w - 1 + 2*x*x, 2 * (x*y + w*z), 2 * (x*z - w*y),
		2 * (x*y - w*z), 2*w*w - 1 + 2*y*y, 2 * (y*z + w*x),
		2 * (x*z + w*y), 2 * (y*z - w*x), 2*w*w - 1 + 2*z*z,
	})
}

// EulerAngles returns roll, pitch and yaw (rad) in the heading-attitude-bank
// convention, q = qy(yaw)*qz(pitch)*qx(roll): yaw about y, then pitch about
// the new z, then roll about the new x.
//
// At the singularities (pitch = ±pi/2, detected when x*y + z*w is within
// GimbalLockTolerance of ±0.5) roll is fixed to 0 and the whole rotation about
// the vertical is reported as yaw. At the south pole this is -2*atan2(x, w);
// published formulas that put that value into roll instead of yaw do not
// rebuild q, so results differ from them there.
//
// This convention is unrelated to EulerAngles123 and the two do not agree.
func (q Quaternion) EulerAngles() (roll, pitch, yaw float64) {
	w, x, y, z := q.W, q.X, q.Y, q.Z

	test := x*y + z*w
	pitch = math.Asin(clamp(2 * test))
	switch {
	case math.Abs(test-0.5) < GimbalLockTolerance:
		return 0, pitch, 2 * math.Atan2(x, w)
	case math.Abs(test+0.5) < GimbalLockTolerance:
		return 0, pitch, -2 * math.Atan2(x, w)
	}

	roll = math.Atan2(2*w*x-2*y*z, 1-2*x*x-2*z*z)
	yaw = math.Atan2(2*w*y-2*x*z, 1-2*y*y-2*z*z)
	return roll, pitch, yaw
}

// EulerAngles123 returns roll, pitch and yaw (rad) in the x-y-z convention,
// q = qx(roll)*qy(pitch)*qz(yaw). There is no gimbal lock handling; pitch is
// in [-pi/2, pi/2].
//
// Pitch is asin(2(xz + wy)). Variants of this formula using w*x in place of
// w*y do not round-trip with the construction above and give different pitch.
//
// This convention is unrelated to EulerAngles and the two do not agree.
func (q Quaternion) EulerAngles123() (roll, pitch, yaw float64) {
	w, x, y, z := q.W, q.X, q.Y, q.Z

	roll = math.Atan2(-2*(y*z-w*x), w*w-x*x-y*y+z*z)
	pitch = math.Asin(clamp(2 * (x*z + w*y)))
	yaw = math.Atan2(-2*(x*y-w*z), w*w+x*x-y*y-z*z)
	return roll, pitch, yaw
}

// clamp coerces v to [-1,1] so rounding never pushes asin/acos out of their domain.
func clamp(v float64) float64 {
	if v >= 1 {
		return 1
	} else if v <= -1 {
		return -1
	}
	return v
}
