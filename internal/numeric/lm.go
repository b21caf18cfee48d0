package numeric

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ResidualFunc evaluates the residual vector at x into dst.
type ResidualFunc func(x, dst []float64) error

// LMSettings controls LevenbergMarquardt.
type LMSettings struct {
	// Tolerance is the residual 2-norm at which the solve counts as converged.
	Tolerance float64
	// MaxIterations bounds the number of accepted or rejected outer steps.
	MaxIterations int
	// Damping is the initial Marquardt parameter.
	Damping float64
	// Step is the relative finite-difference step for the Jacobian.
	Step float64
}

// DefaultLMSettings returns settings suitable for length-residual problems
// in metres.
func DefaultLMSettings() LMSettings {
	return LMSettings{Tolerance: 1e-10, MaxIterations: 100, Damping: 1e-3, Step: 1e-7}
}

// LMResult is the outcome of a successful solve.
type LMResult struct {
	X          []float64
	Residual   float64
	Iterations int
}

const maxDampingTrials = 12

// LevenbergMarquardt minimises ||f(x)||² starting at x0, where f has m
// residuals. The Jacobian is taken by central differences. A solve that does
// not reach settings.Tolerance within settings.MaxIterations returns a
// *ConvergenceError carrying the best iterate.
func LevenbergMarquardt(ctx context.Context, f ResidualFunc, m int, x0 []float64, settings LMSettings) (LMResult, error) {
	n := len(x0)
	if n == 0 || m == 0 {
		return LMResult{}, Invalidf("least squares needs unknowns and residuals, got n=%d m=%d", n, m)
	}
	if settings.MaxIterations <= 0 {
		return LMResult{}, Invalidf("max iterations must be positive, got %d", settings.MaxIterations)
	}
	step := settings.Step
	if step <= 0 {
		step = 1e-7
	}
	lambda := settings.Damping
	if lambda <= 0 {
		lambda = 1e-3
	}

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	if err := f(x, r); err != nil {
		return LMResult{}, err
	}
	cost := floats.Norm(r, 2)

	jac := mat.NewDense(m, n, nil)
	rp := make([]float64, m)
	rm := make([]float64, m)
	xTrial := make([]float64, n)
	rTrial := make([]float64, m)

	iter := 0
	for ; iter < settings.MaxIterations; iter++ {
		if cost <= settings.Tolerance {
			return LMResult{X: x, Residual: cost, Iterations: iter}, nil
		}
		if err := ctx.Err(); err != nil {
			return LMResult{}, err
		}

		if err := centralJacobian(f, x, step, jac, rp, rm); err != nil {
			return LMResult{}, err
		}
		rv := mat.NewVecDense(m, r)
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var g mat.VecDense
		g.MulVec(jac.T(), rv)
		g.ScaleVec(-1, &g)

		improved := false
		for trial := 0; trial < maxDampingTrials; trial++ {
			var a mat.Dense
			a.CloneFrom(&jtj)
			for i := 0; i < n; i++ {
				d := jtj.At(i, i)
				a.Set(i, i, d+lambda*math.Max(d, 1e-12))
			}
			var delta mat.VecDense
			if err := delta.SolveVec(&a, &g); err != nil {
				lambda *= 10
				continue
			}
			for i := range xTrial {
				xTrial[i] = x[i] + delta.AtVec(i)
			}
			if err := f(xTrial, rTrial); err != nil {
				if errors.Is(err, ErrDegenerate) {
					lambda *= 10
					continue
				}
				return LMResult{}, err
			}
			trialCost := floats.Norm(rTrial, 2)
			if trialCost < cost {
				copy(x, xTrial)
				copy(r, rTrial)
				cost = trialCost
				lambda = math.Max(lambda/10, 1e-15)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			// Stationary point above tolerance.
			break
		}
	}
	if cost <= settings.Tolerance {
		return LMResult{X: x, Residual: cost, Iterations: iter}, nil
	}
	return LMResult{}, &ConvergenceError{Op: "levenberg-marquardt", Iterations: iter, Residual: cost, Best: x}
}

func centralJacobian(f ResidualFunc, x []float64, step float64, jac *mat.Dense, rp, rm []float64) error {
	m, n := jac.Dims()
	xp := append([]float64(nil), x...)
	for j := 0; j < n; j++ {
		h := step * math.Max(1, math.Abs(x[j]))
		xp[j] = x[j] + h
		if err := f(xp, rp); err != nil {
			return err
		}
		xp[j] = x[j] - h
		if err := f(xp, rm); err != nil {
			return err
		}
		xp[j] = x[j]
		for i := 0; i < m; i++ {
			jac.Set(i, j, (rp[i]-rm[i])/(2*h))
		}
	}
	return nil
}
