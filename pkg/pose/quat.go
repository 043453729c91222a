package pose

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	W, X, Y, Z float64
}

// Identity returns the quaternion for no rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// FromAxisAngle creates a quaternion rotating angle radians about axis
// (right-hand rule). A zero axis yields the identity.
func FromAxisAngle(axis v3.Vec, angle float64) Quat {
	l := axis.Length()
	if l < 1e-12 {
		return Identity()
	}
	s := math.Sin(angle/2) / l
	return Quat{
		W: math.Cos(angle / 2),
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
	}
}

// FromEuler creates a quaternion from Z-Y-X Euler angles in radians:
// yaw z is applied about the outer Z axis, then pitch y, then roll x.
func FromEuler(x, y, z float64) Quat {
	qx := FromAxisAngle(v3.Vec{X: 1}, x)
	qy := FromAxisAngle(v3.Vec{Y: 1}, y)
	qz := FromAxisAngle(v3.Vec{Z: 1}, z)
	return qz.Mul(qy).Mul(qx).Normalize()
}

// Mul returns q*o: the rotation o followed by q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Normalize returns q scaled to unit length. A degenerate quaternion
// becomes the identity.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if l < 1e-12 {
		return Identity()
	}
	return Quat{W: q.W / l, X: q.X / l, Y: q.Y / l, Z: q.Z / l}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v v3.Vec) v3.Vec {
	p := q.Mul(Quat{X: v.X, Y: v.Y, Z: v.Z}).Mul(q.Conjugate())
	return v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// AxisAngle returns the rotation axis (unit length) and angle in radians.
// The identity returns +Z and zero.
func (q Quat) AxisAngle() (v3.Vec, float64) {
	q = q.Normalize()
	if q.W < 0 {
		q = Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	s := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if s < 1e-12 {
		return v3.Vec{Z: 1}, 0
	}
	return v3.Vec{X: q.X / s, Y: q.Y / s, Z: q.Z / s}, 2 * math.Atan2(s, q.W)
}

// Euler returns the Z-Y-X Euler angles (roll x, pitch y, yaw z) in radians.
// At gimbal lock (pitch ±90°) roll is folded into yaw.
func (q Quat) Euler() (x, y, z float64) {
	q = q.Normalize()
	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	if math.Abs(sinp) >= 1-1e-12 {
		y = math.Copysign(math.Pi/2, sinp)
		z = -2 * math.Atan2(q.X, q.W) * math.Copysign(1, sinp)
		return 0, y, wrap(z)
	}
	x = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	y = math.Asin(sinp)
	z = math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
	return x, y, z
}

// Matrix returns the rotation as an sdf.M44.
func (q Quat) Matrix() sdf.M44 {
	axis, angle := q.AxisAngle()
	if angle == 0 {
		return sdf.Identity3d()
	}
	return sdf.Rotate3d(axis, angle)
}

// wrap folds an angle into (-π, π].
func wrap(a float64) float64 {
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
