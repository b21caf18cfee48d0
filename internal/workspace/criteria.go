package workspace

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/forcedist"
	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
	"github.com/banshee-data/cdpr/internal/structure"
)

// Verdict is a criterion's decision for one pose. Margin is positive inside,
// negative outside, and grows with the distance to the criterion's limit.
type Verdict struct {
	Pass   bool
	Margin float64
}

// Criterion decides whether a single-platform robot at a pose belongs to the
// workspace. Implementations are stateless and safe for concurrent use.
type Criterion interface {
	Name() string
	Evaluate(m robot.Model, p pose.Pose) (Verdict, error)
}

// outside turns degenerate configurations into a failing verdict; every
// other error is returned.
func outside(err error) (Verdict, error) {
	if errors.Is(err, numeric.ErrDegenerate) {
		return Verdict{Margin: math.Inf(-1)}, nil
	}
	return Verdict{}, err
}

// CableLength passes when every cable length lies in [min, max].
type CableLength struct {
	alg      kinematics.Algorithm
	min, max float64
}

// NewCableLength returns the cable-length criterion for alg.
func NewCableLength(alg kinematics.Algorithm, min, max float64) (*CableLength, error) {
	if alg == nil {
		return nil, numeric.Invalidf("cable length criterion needs a kinematics algorithm")
	}
	if math.IsNaN(min) || math.IsNaN(max) || min < 0 || max < min {
		return nil, numeric.Invalidf("cable length interval [%g, %g] is not a non-negative interval", min, max)
	}
	return &CableLength{alg: alg, min: min, max: max}, nil
}

// Name implements Criterion.
func (c *CableLength) Name() string { return "cable-length" }

// Bounds returns the length interval.
func (c *CableLength) Bounds() (float64, float64) { return c.min, c.max }

// Evaluate implements Criterion. The margin is the smallest distance of any
// length to the interval ends.
func (c *CableLength) Evaluate(m robot.Model, p pose.Pose) (Verdict, error) {
	res, err := c.alg.Backward(m, p)
	if err != nil {
		return outside(err)
	}
	margin := math.Inf(1)
	for _, l := range res.Lengths() {
		margin = min(margin, l-c.min, c.max-l)
	}
	return Verdict{Pass: margin >= 0, Margin: margin}, nil
}

// Singularities passes when the structure matrix has full row rank, i.e. the
// cables can in principle generate every wrench direction.
type Singularities struct {
	alg kinematics.Algorithm
	tol float64
}

// NewSingularities returns the singularity criterion with relative rank
// tolerance tol.
func NewSingularities(alg kinematics.Algorithm, tol float64) (*Singularities, error) {
	if alg == nil {
		return nil, numeric.Invalidf("singularity criterion needs a kinematics algorithm")
	}
	if !(tol > 0 && tol < 1) {
		return nil, numeric.Invalidf("rank tolerance must lie in (0, 1), got %g", tol)
	}
	return &Singularities{alg: alg, tol: tol}, nil
}

// Name implements Criterion.
func (s *Singularities) Name() string { return "singularities" }

// Evaluate implements Criterion. The margin is the ratio of the smallest
// relevant singular value to the largest, minus the tolerance.
func (s *Singularities) Evaluate(m robot.Model, p pose.Pose) (Verdict, error) {
	res, err := s.alg.Backward(m, p)
	if err != nil {
		return outside(err)
	}
	a, err := structure.FromResult(m, res)
	if err != nil {
		return outside(err)
	}
	dof, _ := a.Dims()
	rank, values, err := numeric.Rank(a, s.tol)
	if err != nil {
		return outside(err)
	}
	margin := -s.tol
	if len(values) >= dof && values[0] > 0 {
		margin = values[dof-1]/values[0] - s.tol
	}
	return Verdict{Pass: rank == dof, Margin: margin}, nil
}

// BoundsFunc returns the tension bounds of the given chains.
type BoundsFunc func(m robot.Model, chains []robot.Chain) (forcedist.Bounds, error)

// UniformBounds applies [lo, hi] to every cable.
func UniformBounds(lo, hi float64) BoundsFunc {
	return func(_ robot.Model, chains []robot.Chain) (forcedist.Bounds, error) {
		b := forcedist.Uniform(len(chains), lo, hi)
		return b, b.Validate(len(chains))
	}
}

// CableRatedBounds derives the maximum tension of every cable from its
// breaking load divided by safety; fallbackMax caps cables without one.
func CableRatedBounds(minTension, safety, fallbackMax float64) BoundsFunc {
	return func(m robot.Model, chains []robot.Chain) (forcedist.Bounds, error) {
		return forcedist.CableBounds(m, chains, minTension, safety, fallbackMax)
	}
}

// WrenchFeasible passes when tensions within bounds can balance an external
// wrench acting on the platform.
type WrenchFeasible struct {
	alg      kinematics.Algorithm
	solver   forcedist.Solver
	external []float64
	bounds   BoundsFunc
}

// NewWrenchFeasible returns the wrench-feasibility criterion. external is the
// wrench applied to the platform (forces, then moments about the rotation
// axes), so the cables must supply its negative.
func NewWrenchFeasible(alg kinematics.Algorithm, solver forcedist.Solver, external []float64, bounds BoundsFunc) (*WrenchFeasible, error) {
	switch {
	case alg == nil:
		return nil, numeric.Invalidf("wrench criterion needs a kinematics algorithm")
	case solver == nil:
		return nil, numeric.Invalidf("wrench criterion needs a force distribution solver")
	case bounds == nil:
		return nil, numeric.Invalidf("wrench criterion needs tension bounds")
	case len(external) == 0:
		return nil, numeric.Invalidf("wrench criterion needs an external wrench")
	}
	for i, w := range external {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, numeric.Invalidf("external wrench component %d is not finite", i)
		}
	}
	return &WrenchFeasible{alg: alg, solver: solver, external: append([]float64(nil), external...), bounds: bounds}, nil
}

// Name implements Criterion.
func (w *WrenchFeasible) Name() string { return "wrench-feasible" }

// Evaluate implements Criterion. The margin is the smallest tension headroom
// (N) of the solver's distribution, or -1 when none exists.
func (w *WrenchFeasible) Evaluate(m robot.Model, p pose.Pose) (Verdict, error) {
	res, err := w.alg.Backward(m, p)
	if err != nil {
		return outside(err)
	}
	a, err := structure.FromResult(m, res)
	if err != nil {
		return outside(err)
	}
	dof, _ := a.Dims()
	if len(w.external) != dof {
		return Verdict{}, numeric.Invalidf("external wrench has %d components for a %s platform", len(w.external), res.Pattern())
	}
	bounds, err := w.bounds(m, res.Chains())
	if err != nil {
		return Verdict{}, err
	}
	required := make([]float64, dof)
	for i, v := range w.external {
		required[i] = -v
	}
	d, err := w.solver.Solve(a, required, bounds)
	if err != nil {
		return outside(err)
	}
	if !d.Feasible {
		return Verdict{Margin: -1}, nil
	}
	margin := math.Inf(1)
	for j, t := range d.Tensions {
		margin = min(margin, bounds.Max[j]-t)
	}
	return Verdict{Pass: true, Margin: margin}, nil
}

// StandardGravity is g in m/s², acting along -z.
const StandardGravity = 9.80665

// GravityWrench returns the wrench gravity g exerts on platform pl with its
// centre of mass at the platform origin: the weight on the translational
// rows and zero moments.
func GravityWrench(pl robot.Platform, g r3.Vec) []float64 {
	w := make([]float64, pl.Pattern.DOF())
	f := []float64{pl.Mass * g.X, pl.Mass * g.Y, pl.Mass * g.Z}
	copy(w, f[:pl.Pattern.TranslationalDOF()])
	return w
}
