// Package kinematics solves the cable-robot kinematic relationships: backward
// (pose to cable lengths and directions) and forward (cable lengths to pose),
// for direct cable routing (Standard) and for cables leaving redirection
// pulleys (Pulley).
//
// Both variants are stateless; every call is a pure function of the robot
// model, the input and the settings.
package kinematics

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Algorithm is a kinematics variant.
type Algorithm interface {
	// Name identifies the variant in results and logs.
	Name() string
	// Backward solves a single-platform robot at p.
	Backward(m robot.Model, p pose.Pose) (*Result, error)
	// BackwardAll solves every platform; poses and results are indexed like
	// the robot's platforms.
	BackwardAll(m robot.Model, poses []pose.Pose) ([]*Result, error)
	// Forward finds the pose of a single-platform robot reproducing lengths.
	Forward(ctx context.Context, m robot.Model, lengths []float64, opts ...ForwardOption) (pose.Pose, error)
	// ForwardAll solves every platform independently.
	ForwardAll(ctx context.Context, m robot.Model, lengths [][]float64, opts ...ForwardOption) ([]pose.Pose, error)
}

// platformSolver is the per-variant core both Backward and Forward reuse.
type platformSolver interface {
	Name() string
	solveChain(m robot.Model, c robot.Chain, p pose.Pose) (chainGeometry, error)
	supports(pattern robot.MotionPattern) error
	// pulleyAngles reports whether results carry swivel and wrap angles.
	pulleyAngles() bool
}

// degenerateLength is the shortest cable treated as non-degenerate.
const degenerateLength = 1e-12

func backwardAll(s platformSolver, m robot.Model, poses []pose.Pose) ([]*Result, error) {
	if len(poses) != m.NumPlatforms() {
		return nil, numeric.Invalidf("got %d poses for %d platforms", len(poses), m.NumPlatforms())
	}
	out := make([]*Result, len(poses))
	for i, p := range poses {
		r, err := backwardPlatform(s, m, i, p)
		if err != nil {
			return nil, fmt.Errorf("platform %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func backwardSingle(s platformSolver, m robot.Model, p pose.Pose) (*Result, error) {
	if n := m.NumPlatforms(); n != 1 {
		return nil, numeric.Invalidf("single-platform solve on a robot with %d platforms", n)
	}
	rs, err := backwardAll(s, m, []pose.Pose{p})
	if err != nil {
		return nil, err
	}
	return rs[0], nil
}

func backwardPlatform(s platformSolver, m robot.Model, i int, p pose.Pose) (*Result, error) {
	pattern := m.Platform(i).Pattern
	if err := s.supports(pattern); err != nil {
		return nil, err
	}
	chains := m.ChainsWhere(robot.PlatformChains(i))
	n := pattern.TranslationalDOF()
	res := &Result{
		algorithm:  s.Name(),
		platform:   i,
		pose:       p,
		pattern:    pattern,
		chains:     chains,
		lengths:    make([]float64, len(chains)),
		directions: mat.NewDense(n, len(chains), nil),
		geometry:   make([]chainGeometry, len(chains)),
	}
	for j, c := range chains {
		g, err := s.solveChain(m, c, p)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", j, err)
		}
		res.geometry[j] = g
		// Direction of the straight segment, platform anchor toward the frame,
		// restricted to the translational rows.
		seg := slice(r3.Sub(g.exit, g.end), n)
		norm := 0.0
		for _, v := range seg {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm < degenerateLength {
			return nil, numeric.Degeneratef("chain %d has zero-length straight segment", j)
		}
		for k, v := range seg {
			res.directions.Set(k, j, v/norm)
		}
		res.lengths[j] = g.radius*g.wrap + g.free
	}
	if s.pulleyAngles() {
		res.swivel = make([]float64, len(chains))
		res.wrap = make([]float64, len(chains))
		for j, g := range res.geometry {
			res.swivel[j] = g.swivelAngle
			res.wrap[j] = g.wrap
		}
	}
	return res, nil
}

// slice returns the first n components of v.
func slice(v r3.Vec, n int) []float64 {
	return []float64{v.X, v.Y, v.Z}[:n]
}

// platformAnchorWorld returns the world position of chain c's platform anchor.
func platformAnchorWorld(m robot.Model, c robot.Chain, p pose.Pose) r3.Vec {
	return p.Apply(m.Platform(c.Platform).Anchors[c.PlatformAnchor].Position)
}
