package pose

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
)

// Identity is the identity rotation.
var Identity = quat.Number{Real: 1}

// axisUnit returns the unit vector of axis 0 (x), 1 (y) or 2 (z).
func axisUnit(axis int) r3.Vec {
	switch axis {
	case 0:
		return r3.Vec{X: 1}
	case 1:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// AxisAngle returns the unit quaternion rotating by angle (radians) about axis.
// A zero axis yields the identity.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	if r3.Norm(axis) == 0 {
		return Identity
	}
	return quat.Number(r3.NewRotation(angle, axis))
}

// FromRotationVector returns the rotation whose axis is rv/|rv| and whose
// angle is |rv|.
func FromRotationVector(rv r3.Vec) quat.Number {
	return AxisAngle(rv, r3.Norm(rv))
}

// RotationVector returns the axis-angle vector of q with angle in [0, π].
func RotationVector(q quat.Number) r3.Vec {
	q = normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	v := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	s := r3.Norm(v)
	if s < 1e-15 {
		// Small-angle limit: angle ≈ 2·|v|.
		return r3.Scale(2, v)
	}
	angle := 2 * math.Atan2(s, q.Real)
	return r3.Scale(angle/s, v)
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// DCM returns the direction-cosine matrix of the unit quaternion q.
func DCM(q quat.Number) *r3.Mat {
	r := r3.Rotation(q)
	m := r3.NewMat(nil)
	for j, e := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		col := r.Rotate(e)
		m.Set(0, j, col.X)
		m.Set(1, j, col.Y)
		m.Set(2, j, col.Z)
	}
	return m
}

// FromDCM converts a proper 3x3 rotation matrix into a unit quaternion.
// Matrices that are not orthonormal with determinant +1 within tolerance are
// rejected.
func FromDCM(a mat.Matrix) (quat.Number, error) {
	const tol = 1e-6
	if r, c := a.Dims(); r != 3 || c != 3 {
		return quat.Number{}, numeric.Invalidf("rotation matrix is %dx%d, want 3x3", r, c)
	}
	m := r3.NewMat(nil)
	m.CloneFrom(a)
	gram := r3.NewMat(nil)
	gram.Mul(m, m.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(gram.At(i, j)-want) > tol {
				return quat.Number{}, numeric.Invalidf("rotation matrix is not orthonormal")
			}
		}
	}
	if det := m.Det(); math.Abs(det-1) > tol {
		return quat.Number{}, numeric.Invalidf("rotation matrix has determinant %g", det)
	}

	// Shepperd: pick the largest of w², x², y², z² to divide by.
	e00, e01, e02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	e10, e11, e12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	e20, e21, e22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)
	tr := e00 + e11 + e22
	var q quat.Number
	switch {
	case tr >= e00 && tr >= e11 && tr >= e22:
		s := 2 * math.Sqrt(1+tr)
		q = quat.Number{Real: s / 4, Imag: (e21 - e12) / s, Jmag: (e02 - e20) / s, Kmag: (e10 - e01) / s}
	case e00 >= e11 && e00 >= e22:
		s := 2 * math.Sqrt(1+e00-e11-e22)
		q = quat.Number{Real: (e21 - e12) / s, Imag: s / 4, Jmag: (e01 + e10) / s, Kmag: (e02 + e20) / s}
	case e11 >= e22:
		s := 2 * math.Sqrt(1+e11-e00-e22)
		q = quat.Number{Real: (e02 - e20) / s, Imag: (e01 + e10) / s, Jmag: s / 4, Kmag: (e12 + e21) / s}
	default:
		s := 2 * math.Sqrt(1+e22-e00-e11)
		q = quat.Number{Real: (e10 - e01) / s, Imag: (e02 + e20) / s, Jmag: (e12 + e21) / s, Kmag: s / 4}
	}
	return canonical(q), nil
}

// Sequence is a three-axis Euler convention such as "xyz" or "ZYZ".
// Lowercase letters denote extrinsic rotations about fixed axes, uppercase
// letters intrinsic rotations about the moving axes.
type Sequence string

// DefaultSequence is the extrinsic x-y-z convention.
const DefaultSequence Sequence = "xyz"

// Validate checks that s names three axes, all extrinsic or all intrinsic,
// without two equal consecutive axes.
func (s Sequence) Validate() error {
	_, _, err := s.parse()
	return err
}

func (s Sequence) parse() (axes [3]int, intrinsic bool, err error) {
	if len(s) != 3 {
		return axes, false, numeric.Invalidf("euler sequence %q must have three axes", string(s))
	}
	str := string(s)
	switch {
	case strings.ToLower(str) == str:
		intrinsic = false
	case strings.ToUpper(str) == str:
		intrinsic = true
	default:
		return axes, false, numeric.Invalidf("euler sequence %q mixes intrinsic and extrinsic axes", str)
	}
	for i, c := range strings.ToLower(str) {
		switch c {
		case 'x':
			axes[i] = 0
		case 'y':
			axes[i] = 1
		case 'z':
			axes[i] = 2
		default:
			return axes, false, numeric.Invalidf("euler sequence %q has unknown axis %q", str, c)
		}
	}
	if axes[0] == axes[1] || axes[1] == axes[2] {
		return axes, false, numeric.Invalidf("euler sequence %q repeats consecutive axes", str)
	}
	return axes, intrinsic, nil
}

// FromEuler builds a rotation from three angles (radians) under seq.
func FromEuler(seq Sequence, angles [3]float64) (quat.Number, error) {
	axes, intrinsic, err := seq.parse()
	if err != nil {
		return quat.Number{}, err
	}
	q0 := AxisAngle(axisUnit(axes[0]), angles[0])
	q1 := AxisAngle(axisUnit(axes[1]), angles[1])
	q2 := AxisAngle(axisUnit(axes[2]), angles[2])
	if intrinsic {
		return canonical(quat.Mul(quat.Mul(q0, q1), q2)), nil
	}
	return canonical(quat.Mul(quat.Mul(q2, q1), q0)), nil
}

// ToEuler decomposes q into three angles under seq. The middle angle lies in
// [0, π] for proper Euler sequences and in [-π/2, π/2] for Tait–Bryan ones;
// in gimbal lock the third angle is set to zero.
func ToEuler(seq Sequence, q quat.Number) ([3]float64, error) {
	axes, intrinsic, err := seq.parse()
	if err != nil {
		return [3]float64{}, err
	}
	if intrinsic {
		axes[0], axes[2] = axes[2], axes[0]
	}
	angles := extrinsicEuler(axes, normalize(q))
	if intrinsic {
		angles[0], angles[2] = angles[2], angles[0]
	}
	return angles, nil
}

// extrinsicEuler implements the direct quaternion method of Bernardes and
// Viollet for an extrinsic axis sequence.
func extrinsicEuler(axes [3]int, q quat.Number) [3]float64 {
	i, j, k := axes[0], axes[1], axes[2]
	proper := i == k
	if proper {
		k = 3 - i - j
	}
	sign := float64((i - j) * (j - k) * (k - i) / 2)

	qv := [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
	a, b, c, d := qv[0], qv[i+1], qv[j+1], qv[k+1]*sign
	if !proper {
		a, b, c, d = a-c, b+d, c+a, d-b
	}

	theta2 := 2 * math.Atan2(math.Hypot(c, d), math.Hypot(a, b))
	half1 := math.Atan2(b, a)
	half2 := math.Atan2(d, c)

	const eps = 1e-9
	var theta1, theta3 float64
	switch {
	case math.Abs(theta2) < eps:
		theta1 = 2 * half1
	case math.Abs(theta2-math.Pi) < eps:
		theta1 = -2 * half2
	default:
		theta1 = half1 - half2
		theta3 = half1 + half2
	}
	if !proper {
		theta3 *= sign
		theta2 -= math.Pi / 2
	}
	return [3]float64{wrapAngle(theta1), theta2, wrapAngle(theta3)}
}

// wrapAngle maps a into (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// canonical normalises q and picks the hemisphere with non-negative real part.
func canonical(q quat.Number) quat.Number {
	q = normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}
