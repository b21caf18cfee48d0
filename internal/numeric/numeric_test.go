package numeric

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"invalid", Invalidf("bad %d", 1), ErrInvalid},
		{"degenerate", Degeneratef("zero"), ErrDegenerate},
		{"unimplemented", Unimplementedf("2T pulley"), ErrUnimplemented},
		{"convergence", &ConvergenceError{Op: "x", Iterations: 3, Residual: 0.5}, ErrNotConverged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			for _, other := range []error{ErrInvalid, ErrDegenerate, ErrUnimplemented, ErrNotConverged} {
				if other != tt.want && errors.Is(tt.err, other) {
					t.Errorf("%v also matches %v", tt.err, other)
				}
			}
		})
	}

	var err error = &ConvergenceError{Op: "x", Iterations: 3, Residual: 0.5}
	if !strings.Contains(err.Error(), "3 iterations") {
		t.Errorf("Error() = %q, want iteration count", err.Error())
	}
	var ce *ConvergenceError
	if !errors.As(err, &ce) || ce.Residual != 0.5 {
		t.Errorf("errors.As() did not yield the residual, got %+v", ce)
	}
}

func TestLevenbergMarquardtRosenbrockResiduals(t *testing.T) {
	t.Parallel()

	// Residuals of the Rosenbrock function; minimum at (1, 1) with zero cost.
	f := func(x, dst []float64) error {
		dst[0] = 10 * (x[1] - x[0]*x[0])
		dst[1] = 1 - x[0]
		return nil
	}
	res, err := LevenbergMarquardt(context.Background(), f, 2, []float64{-1.2, 1}, DefaultLMSettings())
	require.NoError(t, err)
	assert.InDelta(t, 1, res.X[0], 1e-8)
	assert.InDelta(t, 1, res.X[1], 1e-8)
	assert.LessOrEqual(t, res.Residual, 1e-10)
}

func TestLevenbergMarquardtReportsConvergenceFailure(t *testing.T) {
	t.Parallel()

	// Inconsistent system: x = 1 and x = 2 cannot both hold.
	f := func(x, dst []float64) error {
		dst[0] = x[0] - 1
		dst[1] = x[0] - 2
		return nil
	}
	_, err := LevenbergMarquardt(context.Background(), f, 2, []float64{0}, DefaultLMSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverged)

	var ce *ConvergenceError
	require.ErrorAs(t, err, &ce)
	assert.InDelta(t, 1.5, ce.Best[0], 1e-6)
	assert.InDelta(t, math.Sqrt(0.5), ce.Residual, 1e-6)
}

func TestLevenbergMarquardtValidatesInput(t *testing.T) {
	t.Parallel()

	f := func(x, dst []float64) error { return nil }
	_, err := LevenbergMarquardt(context.Background(), f, 0, []float64{1}, DefaultLMSettings())
	assert.ErrorIs(t, err, ErrInvalid)

	s := DefaultLMSettings()
	s.MaxIterations = 0
	_, err = LevenbergMarquardt(context.Background(), f, 1, []float64{1}, s)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBisect(t *testing.T) {
	t.Parallel()

	pred := func(s float64) (bool, error) { return s <= 0.3, nil }

	t.Run("converges", func(t *testing.T) {
		in, out, iter, err := Bisect(context.Background(), pred, 0, 1, 1e-6, 60)
		require.NoError(t, err)
		assert.InDelta(t, 0.3, in, 1e-6)
		assert.InDelta(t, 0.3, out, 1e-6)
		assert.LessOrEqual(t, in, 0.3)
		assert.Greater(t, iter, 0)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		in, out, iter, err := Bisect(context.Background(), pred, 0, 1, 1e-9, 3)
		assert.ErrorIs(t, err, ErrNotConverged)
		assert.Equal(t, 3, iter)
		assert.Equal(t, 0.25, in)
		assert.Equal(t, 0.375, out)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, _, err := Bisect(ctx, pred, 0, 1, 1e-6, 60)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRank(t *testing.T) {
	t.Parallel()

	full := mat.NewDense(2, 3, []float64{
		1, 0, 1,
		0, 1, 1,
	})
	r, values, err := Rank(full, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 2, r)
	assert.Len(t, values, 2)

	deficient := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		2, 4, 6,
	})
	r, _, err = Rank(deficient, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 1, r)

	r, _, err = Rank(mat.NewDense(2, 2, nil), 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 0, r)
}
