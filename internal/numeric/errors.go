// Package numeric holds the error kinds and the small numerical toolbox
// (least squares, bisection, numerical rank) shared by the kinematics and
// workspace packages.
package numeric

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the solver packages wraps exactly one
// of these so callers can branch with errors.Is.
var (
	// ErrInvalid marks malformed input: wrong dimensions, negative physical
	// quantities, dangling indices.
	ErrInvalid = errors.New("invalid input")
	// ErrDegenerate marks individually valid inputs that combine into a
	// numerically degenerate configuration (zero-length cable, rank loss,
	// anchor inside a pulley).
	ErrDegenerate = errors.New("numerically degenerate")
	// ErrUnimplemented marks an algorithm variant that does not support the
	// requested motion pattern or feature combination.
	ErrUnimplemented = errors.New("not implemented")
	// ErrNotConverged is matched by *ConvergenceError.
	ErrNotConverged = errors.New("did not converge")
)

// Invalidf returns an error wrapping ErrInvalid.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Degeneratef returns an error wrapping ErrDegenerate.
func Degeneratef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegenerate, fmt.Sprintf(format, args...))
}

// Unimplementedf returns an error wrapping ErrUnimplemented.
func Unimplementedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnimplemented, fmt.Sprintf(format, args...))
}

// ConvergenceError reports an iterative method that ran out of budget.
// Best holds the best iterate reached so callers can inspect or reuse it.
type ConvergenceError struct {
	Op         string
	Iterations int
	Residual   float64
	Best       []float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: did not converge after %d iterations (residual %.3g)", e.Op, e.Iterations, e.Residual)
}

// Is lets errors.Is(err, ErrNotConverged) match.
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrNotConverged
}
