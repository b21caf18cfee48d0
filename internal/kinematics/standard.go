package kinematics

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// StandardName identifies results of the Standard algorithm.
const StandardName = "standard"

// Standard routes every cable in a straight line from its frame anchor to its
// platform anchor:
//
//	l_i = a_i - (r + R·b_i)
//
// restricted to the platform's translational rows.
type Standard struct{}

var _ Algorithm = Standard{}

// NewStandard returns the Standard algorithm.
func NewStandard() Standard { return Standard{} }

// Name implements Algorithm.
func (Standard) Name() string { return StandardName }

func (Standard) supports(robot.MotionPattern) error { return nil }

func (Standard) pulleyAngles() bool { return false }

func (Standard) solveChain(m robot.Model, c robot.Chain, p pose.Pose) (chainGeometry, error) {
	n := m.Platform(c.Platform).Pattern.TranslationalDOF()
	a := m.FrameAnchor(c.FrameAnchor).Position
	b := platformAnchorWorld(m, c, p)
	return chainGeometry{
		start:  a,
		end:    b,
		exit:   a,
		swivel: pose.Identity,
		free:   norm(r3.Sub(a, b), n),
	}, nil
}

// Backward implements Algorithm.
func (s Standard) Backward(m robot.Model, p pose.Pose) (*Result, error) {
	return backwardSingle(s, m, p)
}

// BackwardAll implements Algorithm.
func (s Standard) BackwardAll(m robot.Model, poses []pose.Pose) ([]*Result, error) {
	return backwardAll(s, m, poses)
}

// Forward implements Algorithm.
func (s Standard) Forward(ctx context.Context, m robot.Model, lengths []float64, opts ...ForwardOption) (pose.Pose, error) {
	return forwardSingle(ctx, s, m, lengths, opts)
}

// ForwardAll implements Algorithm.
func (s Standard) ForwardAll(ctx context.Context, m robot.Model, lengths [][]float64, opts ...ForwardOption) ([]pose.Pose, error) {
	return forwardAll(ctx, s, m, lengths, opts)
}

// norm is the Euclidean norm of the first n components of v.
func norm(v r3.Vec, n int) float64 {
	switch n {
	case 1:
		return math.Abs(v.X)
	case 2:
		return r3.Norm(r3.Vec{X: v.X, Y: v.Y})
	default:
		return r3.Norm(v)
	}
}
