package kinematics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// PulleyName identifies results of the Pulley algorithm.
const PulleyName = "pulley"

// Pulley routes every cable over the redirection pulley of its frame anchor.
//
// The cable reaches the frame anchor along the pulley's swivel axis (local z)
// travelling in -z, wraps around the pulley and leaves it tangentially
// toward the platform anchor. The swivel angle turns the pulley about its
// axis until the cable plane contains the platform anchor; inside that plane
// the wrap angle follows from the tangent from an external point to a circle.
// Frame anchors without a pulley behave as pulleys of radius zero.
type Pulley struct{}

var _ Algorithm = Pulley{}

// NewPulley returns the Pulley algorithm.
func NewPulley() Pulley { return Pulley{} }

// Name implements Algorithm.
func (Pulley) Name() string { return PulleyName }

func (Pulley) supports(pattern robot.MotionPattern) error {
	if pattern.TranslationalDOF() < 3 {
		return numeric.Unimplementedf("pulley kinematics for %s platforms", pattern)
	}
	return nil
}

func (Pulley) pulleyAngles() bool { return true }

// wrapSnap folds wrap angles within this distance of 2π back to zero.
const wrapSnap = 1e-10

func (Pulley) solveChain(m robot.Model, c robot.Chain, p pose.Pose) (chainGeometry, error) {
	anchor := m.FrameAnchor(c.FrameAnchor)
	a := anchor.Position
	b := platformAnchorWorld(m, c, p)
	radius := 0.0
	if anchor.Pulley != nil {
		radius = anchor.Pulley.Radius
	}
	rp := anchor.PulleyRotation()

	// Platform anchor in the pulley frame.
	v := pose.Rotate(quat.Conj(rp), r3.Sub(b, a))
	gamma := math.Atan2(v.Y, v.X)
	rs := quat.Mul(rp, pose.AxisAngle(r3.Vec{Z: 1}, gamma))

	// In-plane coordinates: x radial, z along the swivel axis.
	rho := math.Hypot(v.X, v.Y)
	z := v.Z

	g := chainGeometry{start: a, end: b, swivel: rs, swivelAngle: gamma, radius: radius}
	if radius == 0 {
		g.exit = a
		g.free = math.Hypot(rho, z)
		if g.free < degenerateLength {
			return chainGeometry{}, numeric.Degeneratef("platform anchor coincides with frame anchor")
		}
		return g, nil
	}

	dx, dz := rho-radius, z
	d := math.Hypot(dx, dz)
	if d <= radius*(1+1e-12) {
		return chainGeometry{}, numeric.Degeneratef("platform anchor lies on or inside the pulley (distance %g, radius %g)", d, radius)
	}
	theta := math.Atan2(dz, dx)
	wrap := math.Mod(theta-math.Acos(radius/d)-math.Pi, 2*math.Pi)
	if wrap < 0 {
		wrap += 2 * math.Pi
	}
	if wrap > 2*math.Pi-wrapSnap {
		wrap = 0
	}
	g.wrap = wrap
	g.free = math.Sqrt(d*d - radius*radius)
	g.exit = arcPoint(g, wrap)
	return g, nil
}

// Backward implements Algorithm.
func (s Pulley) Backward(m robot.Model, p pose.Pose) (*Result, error) {
	return backwardSingle(s, m, p)
}

// BackwardAll implements Algorithm.
func (s Pulley) BackwardAll(m robot.Model, poses []pose.Pose) ([]*Result, error) {
	return backwardAll(s, m, poses)
}

// Forward implements Algorithm.
func (s Pulley) Forward(ctx context.Context, m robot.Model, lengths []float64, opts ...ForwardOption) (pose.Pose, error) {
	return forwardSingle(ctx, s, m, lengths, opts)
}

// ForwardAll implements Algorithm.
func (s Pulley) ForwardAll(ctx context.Context, m robot.Model, lengths [][]float64, opts ...ForwardOption) ([]pose.Pose, error) {
	return forwardAll(ctx, s, m, lengths, opts)
}

// ByName returns the algorithm called name.
func ByName(name string) (Algorithm, error) {
	switch name {
	case StandardName:
		return Standard{}, nil
	case PulleyName:
		return Pulley{}, nil
	}
	return nil, numeric.Invalidf("unknown kinematics algorithm %q", name)
}
