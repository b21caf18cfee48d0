// Package forcedist decides whether cable tensions within actuator bounds
// can produce a required platform wrench.
package forcedist

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Bounds are per-cable tension limits in newtons.
type Bounds struct {
	Min []float64
	Max []float64
}

// Uniform returns the same [lo, hi] interval for m cables.
func Uniform(m int, lo, hi float64) Bounds {
	b := Bounds{Min: make([]float64, m), Max: make([]float64, m)}
	for i := 0; i < m; i++ {
		b.Min[i], b.Max[i] = lo, hi
	}
	return b
}

// CableBounds derives bounds from the cables routed by chains: a common
// minimum pretension and the breaking load divided by safety as maximum.
// Cables without a breaking load are capped at fallbackMax.
func CableBounds(m robot.Model, chains []robot.Chain, minTension, safety, fallbackMax float64) (Bounds, error) {
	if safety <= 0 {
		return Bounds{}, numeric.Invalidf("safety factor must be positive, got %g", safety)
	}
	b := Uniform(len(chains), minTension, fallbackMax)
	for j, c := range chains {
		if load := m.Cable(c.Cable).BreakingLoad; load > 0 {
			b.Max[j] = load / safety
		}
	}
	return b, b.Validate(len(chains))
}

// Validate checks b against m cables.
func (b Bounds) Validate(m int) error {
	if len(b.Min) != m || len(b.Max) != m {
		return numeric.Invalidf("bounds sized %d/%d for %d cables", len(b.Min), len(b.Max), m)
	}
	for i := range b.Min {
		lo, hi := b.Min[i], b.Max[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return numeric.Invalidf("cable %d bounds must be finite", i)
		}
		if lo < 0 || hi < lo {
			return numeric.Invalidf("cable %d bounds [%g, %g] are not a non-negative interval", i, lo, hi)
		}
	}
	return nil
}

// Distribution is the outcome of a solve. Tensions is nil when infeasible.
type Distribution struct {
	Feasible bool
	Tensions []float64
}

// Solver finds tensions t with A·t = wrench inside bounds.
type Solver interface {
	Solve(a mat.Matrix, wrench []float64, bounds Bounds) (Distribution, error)
}

// LinearProgram solves the feasibility problem with the simplex method,
// returning the distribution of minimum total tension.
type LinearProgram struct {
	// Tolerance is the simplex reduced-cost tolerance.
	Tolerance float64
	// Residual is the largest accepted |A·t - wrench| component relative to
	// the largest tension bound (or 1 N, whichever is larger).
	Residual float64
}

var _ Solver = LinearProgram{}

// NewLinearProgram returns a solver with default tolerances.
func NewLinearProgram() LinearProgram {
	return LinearProgram{Tolerance: 1e-10, Residual: 1e-6}
}

// Solve implements Solver.
//
// With t = lo + s and slack w the problem becomes the standard form
//
//	minimise Σs  s.t.  A·s = wrench - A·lo,  s + w = hi - lo,  s, w ≥ 0.
//
// Rows of A that are identically zero are dropped when the matching wrench
// component is zero and make the problem infeasible otherwise.
func (l LinearProgram) Solve(a mat.Matrix, wrench []float64, bounds Bounds) (Distribution, error) {
	n, m := a.Dims()
	if n == 0 || m == 0 {
		return Distribution{}, numeric.Invalidf("empty %dx%d structure matrix", n, m)
	}
	if len(wrench) != n {
		return Distribution{}, numeric.Invalidf("wrench has %d components for %d structure rows", len(wrench), n)
	}
	if err := bounds.Validate(m); err != nil {
		return Distribution{}, err
	}

	limit := l.residual() * math.Max(1, floats.Max(bounds.Max))
	var rows []int
	for i := 0; i < n; i++ {
		if floats.Norm(mat.Row(nil, i, a), math.Inf(1)) > 0 {
			rows = append(rows, i)
			continue
		}
		if math.Abs(wrench[i]) > limit {
			return Distribution{}, nil
		}
	}
	if len(rows) > m {
		// Fewer cables than controlled wrench components.
		return Distribution{}, nil
	}

	k := len(rows)
	eq := mat.NewDense(k+m, 2*m, nil)
	rhs := make([]float64, k+m)
	for r, i := range rows {
		rhs[r] = wrench[i]
		for j := 0; j < m; j++ {
			eq.Set(r, j, a.At(i, j))
			rhs[r] -= a.At(i, j) * bounds.Min[j]
		}
	}
	for j := 0; j < m; j++ {
		eq.Set(k+j, j, 1)
		eq.Set(k+j, m+j, 1)
		rhs[k+j] = bounds.Max[j] - bounds.Min[j]
	}
	cost := make([]float64, 2*m)
	for j := 0; j < m; j++ {
		cost[j] = 1
	}

	_, x, err := lp.Simplex(cost, eq, rhs, l.tolerance(), nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible), errors.Is(err, lp.ErrSingular),
		errors.Is(err, lp.ErrLinSolve), errors.Is(err, lp.ErrBland):
		return Distribution{}, nil
	default:
		return Distribution{}, fmt.Errorf("force distribution: %w", err)
	}

	t := make([]float64, m)
	for j := range t {
		t[j] = math.Min(math.Max(bounds.Min[j]+x[j], bounds.Min[j]), bounds.Max[j])
	}
	// Guard against simplex round-off producing an inexact distribution.
	for i := 0; i < n; i++ {
		if math.Abs(floats.Dot(mat.Row(nil, i, a), t)-wrench[i]) > limit {
			return Distribution{}, nil
		}
	}
	return Distribution{Feasible: true, Tensions: t}, nil
}

func (l LinearProgram) tolerance() float64 {
	if l.Tolerance > 0 {
		return l.Tolerance
	}
	return 1e-10
}

func (l LinearProgram) residual() float64 {
	if l.Residual > 0 {
		return l.Residual
	}
	return 1e-6
}
