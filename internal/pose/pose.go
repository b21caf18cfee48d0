// Package pose provides the rigid-body pose value consumed by the kinematics
// and workspace packages.
//
// Orientation is held as a single canonical unit quaternion. Direction-cosine
// matrices, rotation vectors and Euler angles are derived on demand, so the
// representations can never disagree.
package pose

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
)

// Twist is a linear and angular velocity (or acceleration) pair.
type Twist struct {
	Linear  r3.Vec `json:"linear" yaml:"linear"`
	Angular r3.Vec `json:"angular" yaml:"angular"`
}

// Pose is a position plus orientation with optional derivatives and time.
// The zero value is the identity pose at the origin.
type Pose struct {
	position     r3.Vec
	orientation  quat.Number
	sequence     Sequence
	velocity     *Twist
	acceleration *Twist
	time         *time.Time
}

// Option configures a Pose at construction.
type Option func(*Pose) error

// WithQuaternion sets the orientation from a (not necessarily unit)
// quaternion.
func WithQuaternion(q quat.Number) Option {
	return func(p *Pose) error {
		if quat.Abs(q) < 1e-12 {
			return numeric.Invalidf("orientation quaternion has zero norm")
		}
		p.orientation = canonical(q)
		return nil
	}
}

// WithDCM sets the orientation from a 3x3 rotation matrix.
func WithDCM(m mat.Matrix) Option {
	return func(p *Pose) error {
		q, err := FromDCM(m)
		if err != nil {
			return err
		}
		p.orientation = q
		return nil
	}
}

// WithRotationVector sets the orientation from an axis-angle vector.
func WithRotationVector(rv r3.Vec) Option {
	return func(p *Pose) error {
		p.orientation = canonical(FromRotationVector(rv))
		return nil
	}
}

// WithEuler sets the orientation from Euler angles under seq and records seq
// as the pose's preferred convention.
func WithEuler(seq Sequence, angles [3]float64) Option {
	return func(p *Pose) error {
		q, err := FromEuler(seq, angles)
		if err != nil {
			return err
		}
		p.orientation = q
		p.sequence = seq
		return nil
	}
}

// WithSequence sets the Euler convention reported by Euler.
func WithSequence(seq Sequence) Option {
	return func(p *Pose) error {
		if err := seq.Validate(); err != nil {
			return err
		}
		p.sequence = seq
		return nil
	}
}

// WithVelocity attaches a linear/angular velocity.
func WithVelocity(v Twist) Option {
	return func(p *Pose) error {
		p.velocity = &v
		return nil
	}
}

// WithAcceleration attaches a linear/angular acceleration.
func WithAcceleration(a Twist) Option {
	return func(p *Pose) error {
		p.acceleration = &a
		return nil
	}
}

// WithTime attaches a timestamp.
func WithTime(t time.Time) Option {
	return func(p *Pose) error {
		p.time = &t
		return nil
	}
}

// New builds a validated pose at position.
func New(position r3.Vec, opts ...Option) (Pose, error) {
	if !finite(position) {
		return Pose{}, numeric.Invalidf("position %v is not finite", position)
	}
	p := Pose{position: position, orientation: Identity, sequence: DefaultSequence}
	for _, opt := range opts {
		if err := opt(&p); err != nil {
			return Pose{}, err
		}
	}
	return p, nil
}

// MustNew is New for literals in tests and fixtures; it panics on error.
func MustNew(position r3.Vec, opts ...Option) Pose {
	p, err := New(position, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// At returns an identity-orientation pose at position.
func At(x, y, z float64) Pose {
	return Pose{position: r3.Vec{X: x, Y: y, Z: z}, orientation: Identity, sequence: DefaultSequence}
}

// Position returns the translation.
func (p Pose) Position() r3.Vec { return p.position }

// Quaternion returns the canonical unit quaternion.
func (p Pose) Quaternion() quat.Number {
	if p.orientation == (quat.Number{}) {
		return Identity
	}
	return p.orientation
}

// DCM returns the rotation matrix.
func (p Pose) DCM() *r3.Mat { return DCM(p.Quaternion()) }

// RotationVector returns the axis-angle vector.
func (p Pose) RotationVector() r3.Vec { return RotationVector(p.Quaternion()) }

// Sequence returns the Euler convention attached to the pose.
func (p Pose) Sequence() Sequence {
	if p.sequence == "" {
		return DefaultSequence
	}
	return p.sequence
}

// Euler returns the Euler angles under the pose's sequence.
func (p Pose) Euler() [3]float64 {
	angles, _ := ToEuler(p.Sequence(), p.Quaternion())
	return angles
}

// Velocity returns the attached velocity, if any.
func (p Pose) Velocity() (Twist, bool) {
	if p.velocity == nil {
		return Twist{}, false
	}
	return *p.velocity, true
}

// Acceleration returns the attached acceleration, if any.
func (p Pose) Acceleration() (Twist, bool) {
	if p.acceleration == nil {
		return Twist{}, false
	}
	return *p.acceleration, true
}

// Time returns the attached timestamp, if any.
func (p Pose) Time() (time.Time, bool) {
	if p.time == nil {
		return time.Time{}, false
	}
	return *p.time, true
}

// Apply maps a point from the pose's local frame into the parent frame.
func (p Pose) Apply(local r3.Vec) r3.Vec {
	return r3.Add(p.position, Rotate(p.Quaternion(), local))
}

// Rotate rotates a local vector into the parent frame without translating.
func (p Pose) Rotate(local r3.Vec) r3.Vec {
	return Rotate(p.Quaternion(), local)
}

// WithPosition returns a copy of p moved to position.
func (p Pose) WithPosition(position r3.Vec) (Pose, error) {
	if !finite(position) {
		return Pose{}, numeric.Invalidf("position %v is not finite", position)
	}
	p.position = position
	return p, nil
}

// WithOrientation returns a copy of p with orientation q.
func (p Pose) WithOrientation(q quat.Number) (Pose, error) {
	if quat.Abs(q) < 1e-12 {
		return Pose{}, numeric.Invalidf("orientation quaternion has zero norm")
	}
	p.orientation = canonical(q)
	return p, nil
}

// Distance returns the translational distance and the rotation angle
// (radians) between p and o.
func (p Pose) Distance(o Pose) (float64, float64) {
	dp := r3.Norm(r3.Sub(p.position, o.position))
	rel := quat.Mul(quat.Conj(p.Quaternion()), o.Quaternion())
	return dp, r3.Norm(RotationVector(rel))
}

// Compare orders poses by timestamp. Poses without a timestamp compare equal
// to everything.
func Compare(a, b Pose) int {
	if a.time == nil || b.time == nil {
		return 0
	}
	return a.time.Compare(*b.time)
}

// SortByTime sorts poses in place by timestamp, keeping untimed poses stable.
func SortByTime(ps []Pose) {
	slices.SortStableFunc(ps, Compare)
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
