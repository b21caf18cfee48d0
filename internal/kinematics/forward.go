package kinematics

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/monitoring"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// ForwardOption configures a forward solve.
type ForwardOption func(*forwardConfig)

type forwardConfig struct {
	settings numeric.LMSettings
	seeds    []pose.Pose
}

// WithSettings overrides the least-squares settings.
func WithSettings(s numeric.LMSettings) ForwardOption {
	return func(c *forwardConfig) { c.settings = s }
}

// WithSeed seeds a single-platform solve. It is shorthand for WithSeeds(p).
func WithSeed(p pose.Pose) ForwardOption {
	return WithSeeds(p)
}

// WithSeeds seeds each platform's solve; seeds are indexed like platforms.
// Without seeds a platform starts at the centroid of its frame anchors with
// identity orientation.
func WithSeeds(ps ...pose.Pose) ForwardOption {
	return func(c *forwardConfig) { c.seeds = ps }
}

func forwardSingle(ctx context.Context, s platformSolver, m robot.Model, lengths []float64, opts []ForwardOption) (pose.Pose, error) {
	if n := m.NumPlatforms(); n != 1 {
		return pose.Pose{}, numeric.Invalidf("single-platform solve on a robot with %d platforms", n)
	}
	ps, err := forwardAll(ctx, s, m, [][]float64{lengths}, opts)
	if err != nil {
		return pose.Pose{}, err
	}
	return ps[0], nil
}

func forwardAll(ctx context.Context, s platformSolver, m robot.Model, lengths [][]float64, opts []ForwardOption) ([]pose.Pose, error) {
	cfg := forwardConfig{settings: numeric.DefaultLMSettings()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(lengths) != m.NumPlatforms() {
		return nil, numeric.Invalidf("got %d length vectors for %d platforms", len(lengths), m.NumPlatforms())
	}
	if cfg.seeds != nil && len(cfg.seeds) != m.NumPlatforms() {
		return nil, numeric.Invalidf("got %d seeds for %d platforms", len(cfg.seeds), m.NumPlatforms())
	}
	out := make([]pose.Pose, len(lengths))
	for i := range lengths {
		seed := defaultSeed(m, i)
		if cfg.seeds != nil {
			seed = cfg.seeds[i]
		}
		p, err := forwardPlatform(ctx, s, m, i, lengths[i], seed, cfg.settings)
		if err != nil {
			return nil, fmt.Errorf("platform %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// forwardPlatform inverts the backward model of platform i by least squares
// over its free coordinates: the translational rows of the position and the
// rotation-vector components of the rotational axes.
func forwardPlatform(ctx context.Context, s platformSolver, m robot.Model, i int, lengths []float64, seed pose.Pose, settings numeric.LMSettings) (pose.Pose, error) {
	pattern := m.Platform(i).Pattern
	if err := s.supports(pattern); err != nil {
		return pose.Pose{}, err
	}
	chains := m.ChainsWhere(robot.PlatformChains(i))
	if len(lengths) != len(chains) {
		return pose.Pose{}, numeric.Invalidf("got %d lengths for %d chains", len(lengths), len(chains))
	}
	for j, l := range lengths {
		if l < 0 {
			return pose.Pose{}, numeric.Invalidf("length %d is negative (%g)", j, l)
		}
	}
	coords := newPoseCoords(pattern, seed)
	if len(chains) < coords.dim() {
		return pose.Pose{}, numeric.Invalidf("%d cables cannot determine %d degrees of freedom", len(chains), coords.dim())
	}

	residual := func(x, dst []float64) error {
		p, err := coords.pose(x)
		if err != nil {
			return err
		}
		r, err := backwardPlatform(s, m, i, p)
		if err != nil {
			return err
		}
		for j, l := range r.lengths {
			dst[j] = l - lengths[j]
		}
		return nil
	}
	sol, err := numeric.LevenbergMarquardt(ctx, residual, len(chains), coords.initial(), settings)
	if err != nil {
		return pose.Pose{}, fmt.Errorf("forward %s kinematics: %w", s.Name(), err)
	}
	monitoring.Logf("forward %s kinematics: platform %d converged in %d iterations (residual %.3g)",
		s.Name(), i, sol.Iterations, sol.Residual)
	return coords.pose(sol.X)
}

// poseCoords maps the unknown vector of a forward solve onto a pose.
type poseCoords struct {
	seed     pose.Pose
	nTrans   int
	rotAxes  []int
	seedPos  [3]float64
	seedRotV [3]float64
}

func newPoseCoords(pattern robot.MotionPattern, seed pose.Pose) poseCoords {
	p := seed.Position()
	rv := seed.RotationVector()
	return poseCoords{
		seed:     seed,
		nTrans:   pattern.TranslationalDOF(),
		rotAxes:  pattern.RotationAxes(),
		seedPos:  [3]float64{p.X, p.Y, p.Z},
		seedRotV: [3]float64{rv.X, rv.Y, rv.Z},
	}
}

func (c poseCoords) dim() int { return c.nTrans + len(c.rotAxes) }

func (c poseCoords) initial() []float64 {
	x := make([]float64, 0, c.dim())
	x = append(x, c.seedPos[:c.nTrans]...)
	for _, a := range c.rotAxes {
		x = append(x, c.seedRotV[a])
	}
	return x
}

func (c poseCoords) pose(x []float64) (pose.Pose, error) {
	pos := c.seedPos
	copy(pos[:c.nTrans], x[:c.nTrans])
	p, err := c.seed.WithPosition(r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]})
	if err != nil {
		return pose.Pose{}, err
	}
	if len(c.rotAxes) == 0 {
		return p, nil
	}
	rv := c.seedRotV
	for k, a := range c.rotAxes {
		rv[a] = x[c.nTrans+k]
	}
	return p.WithOrientation(pose.FromRotationVector(r3.Vec{X: rv[0], Y: rv[1], Z: rv[2]}))
}

// defaultSeed places platform i at the centroid of its frame anchors with
// identity orientation.
func defaultSeed(m robot.Model, i int) pose.Pose {
	var sum r3.Vec
	chains := m.ChainsWhere(robot.PlatformChains(i))
	for _, c := range chains {
		sum = r3.Add(sum, m.FrameAnchor(c.FrameAnchor).Position)
	}
	if len(chains) > 0 {
		sum = r3.Scale(1/float64(len(chains)), sum)
	}
	return pose.At(sum.X, sum.Y, sum.Z)
}
