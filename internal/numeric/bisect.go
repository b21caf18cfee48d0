package numeric

import (
	"context"
	"math"
)

// Predicate classifies a scalar parameter as inside (true) or outside.
type Predicate func(s float64) (bool, error)

// Bisect shrinks the bracket [in, out] around the inside/outside transition
// of pred. pred(in) is assumed true and pred(out) false. The bracket is
// returned once |out-in| <= tol. If maxIter halvings do not get there the
// last bracket is returned together with a *ConvergenceError whose Best is
// {in, out}.
func Bisect(ctx context.Context, pred Predicate, in, out, tol float64, maxIter int) (float64, float64, int, error) {
	if tol <= 0 {
		return in, out, 0, Invalidf("bisection tolerance must be positive, got %g", tol)
	}
	iter := 0
	for math.Abs(out-in) > tol {
		if iter >= maxIter {
			return in, out, iter, &ConvergenceError{
				Op:         "bisection",
				Iterations: iter,
				Residual:   math.Abs(out - in),
				Best:       []float64{in, out},
			}
		}
		if err := ctx.Err(); err != nil {
			return in, out, iter, err
		}
		mid := 0.5 * (in + out)
		ok, err := pred(mid)
		if err != nil {
			return in, out, iter, err
		}
		if ok {
			in = mid
		} else {
			out = mid
		}
		iter++
	}
	return in, out, iter, nil
}
