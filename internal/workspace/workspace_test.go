package workspace

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/forcedist"
	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/monitoring"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
	"github.com/banshee-data/cdpr/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

// ellipsoid passes inside the axis-aligned ellipsoid with the given
// semi-axes, evaluated on the platform position. Positions with X below
// failBelow make it return an error.
type ellipsoid struct {
	axes      r3.Vec
	failBelow float64
	calls     *atomic.Int64
}

func disc(radius float64) ellipsoid {
	return ellipsoid{axes: r3.Vec{X: radius, Y: radius, Z: radius}, failBelow: math.Inf(-1)}
}

func (e ellipsoid) Name() string { return "ellipsoid" }

func (e ellipsoid) value(p r3.Vec) float64 {
	return math.Sqrt(p.X*p.X/(e.axes.X*e.axes.X) + p.Y*p.Y/(e.axes.Y*e.axes.Y) + p.Z*p.Z/(e.axes.Z*e.axes.Z))
}

func (e ellipsoid) Evaluate(_ robot.Model, p pose.Pose) (Verdict, error) {
	if e.calls != nil {
		e.calls.Add(1)
	}
	pos := p.Position()
	if pos.X < e.failBelow {
		return Verdict{}, errors.New("criterion failure")
	}
	v := 1 - e.value(pos)
	return Verdict{Pass: v >= 0, Margin: v}, nil
}

// tiltLimit passes while the platform rotation angle stays below limit.
type tiltLimit struct {
	limit float64
	calls *atomic.Int64
}

func (tiltLimit) Name() string { return "tilt" }

func (c tiltLimit) Evaluate(_ robot.Model, p pose.Pose) (Verdict, error) {
	c.calls.Add(1)
	angle := r3.Norm(p.RotationVector())
	return Verdict{Pass: angle <= c.limit, Margin: c.limit - angle}, nil
}

func TestCableLengthCriterion(t *testing.T) {
	t.Parallel()

	r := testutil.PlanarPointRobot()
	c, err := NewCableLength(kinematics.NewStandard(), 0, 1.5)
	require.NoError(t, err)

	v, err := c.Evaluate(r, pose.At(0, 0, 0))
	require.NoError(t, err)
	assert.True(t, v.Pass)
	assert.InDelta(t, 1.5-math.Sqrt2, v.Margin, 1e-12)

	v, err = c.Evaluate(r, pose.At(0.5, 0.5, 0))
	require.NoError(t, err)
	assert.False(t, v.Pass)
	assert.Less(t, v.Margin, 0.0)

	// Degenerate poses are outside, not errors.
	v, err = c.Evaluate(r, pose.At(1, 1, 0))
	require.NoError(t, err)
	assert.False(t, v.Pass)
	assert.True(t, math.IsInf(v.Margin, -1))

	_, err = NewCableLength(kinematics.NewStandard(), 2, 1)
	assert.ErrorIs(t, err, numeric.ErrInvalid)
	_, err = NewCableLength(nil, 0, 1)
	assert.ErrorIs(t, err, numeric.ErrInvalid)
}

func TestSingularitiesCriterion(t *testing.T) {
	t.Parallel()

	c, err := NewSingularities(kinematics.NewStandard(), 1e-9)
	require.NoError(t, err)

	v, err := c.Evaluate(testutil.SpatialRobot(), pose.At(0.1, 0.1, 0))
	require.NoError(t, err)
	assert.True(t, v.Pass)
	assert.Greater(t, v.Margin, 0.0)

	// Radial cables exert no moment on the untwisted planar platform; a
	// twist restores full rank.
	planar := testutil.PlanarRotationalRobot()
	v, err = c.Evaluate(planar, pose.At(0, 0, 0))
	require.NoError(t, err)
	assert.False(t, v.Pass)
	twisted := pose.MustNew(r3.Vec{}, pose.WithRotationVector(r3.Vec{Z: 0.3}))
	v, err = c.Evaluate(planar, twisted)
	require.NoError(t, err)
	assert.True(t, v.Pass)

	// A point platform declared rotational cannot produce a moment.
	spec := testutil.PlanarRotationalRobot().Spec()
	for i := range spec.Platforms[0].Anchors {
		spec.Platforms[0].Anchors[i].Position = r3.Vec{}
	}
	point, err := robot.New(spec)
	require.NoError(t, err)
	v, err = c.Evaluate(point, twisted)
	require.NoError(t, err)
	assert.False(t, v.Pass)

	_, err = NewSingularities(kinematics.NewStandard(), 0)
	assert.ErrorIs(t, err, numeric.ErrInvalid)
}

func TestWrenchFeasibleCriterion(t *testing.T) {
	t.Parallel()

	r := testutil.SpatialTranslationalRobot()
	gravity := GravityWrench(r.Platform(0), r3.Vec{Z: -StandardGravity})
	assert.InDeltaSlice(t, []float64{0, 0, -10 * StandardGravity}, gravity, 1e-12)

	testCases := []struct {
		name   string
		bounds BoundsFunc
		pass   bool
	}{
		{"generous bounds", UniformBounds(1, 1000), true},
		{"weak cables", UniformBounds(0, 5), false},
		{"rated cables", CableRatedBounds(1, 5, 1000), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewWrenchFeasible(kinematics.NewStandard(), forcedist.NewLinearProgram(), gravity, tc.bounds)
			require.NoError(t, err)
			v, err := c.Evaluate(r, pose.At(0, 0, 0))
			require.NoError(t, err)
			assert.Equal(t, tc.pass, v.Pass)
			if tc.pass {
				assert.Greater(t, v.Margin, 0.0)
			} else {
				assert.Equal(t, -1.0, v.Margin)
			}
		})
	}

	c, err := NewWrenchFeasible(kinematics.NewStandard(), forcedist.NewLinearProgram(), []float64{0, -1}, UniformBounds(0, 10))
	require.NoError(t, err)
	_, err = c.Evaluate(r, pose.At(0, 0, 0))
	assert.ErrorIs(t, err, numeric.ErrInvalid)

	_, err = NewWrenchFeasible(kinematics.NewStandard(), nil, gravity, UniformBounds(0, 1))
	assert.ErrorIs(t, err, numeric.ErrInvalid)
}

func TestArchetypePoses(t *testing.T) {
	t.Parallel()

	tr := Translation{Dims: 2}
	require.NoError(t, tr.Validate())
	ps := slices.Collect(tr.Poses([]float64{0.3, -0.2}))
	require.Len(t, ps, 1)
	testutil.AssertVecNear(t, r3.Vec{X: 0.3, Y: -0.2}, ps[0].Position(), 0)

	or := Orientation{Position: r3.Vec{Z: 1}, Sequence: "zyx", Angles: 1}
	require.NoError(t, or.Validate())
	ps = slices.Collect(or.Poses([]float64{0.2}))
	require.Len(t, ps, 1)
	testutil.AssertVecNear(t, r3.Vec{Z: 0.2}, ps[0].RotationVector(), 1e-12)

	sweep := OrientationSweep{Sequence: "xyz", Min: [3]float64{-0.1, 0, 0}, Max: [3]float64{0.1, 0, 0.4}, Steps: [3]int{3, 1, 2}}
	dx := Dexterous{Dims: 3, Sweep: sweep}
	require.NoError(t, dx.Validate())
	first := slices.Collect(dx.Poses([]float64{1, 2, 3}))
	require.Len(t, first, 6)
	second := slices.Collect(dx.Poses([]float64{1, 2, 3}))
	assert.Equal(t, first, second, "pose sequences must be restartable")
	for _, p := range first {
		testutil.AssertVecNear(t, r3.Vec{X: 1, Y: 2, Z: 3}, p.Position(), 0)
	}

	assert.Error(t, Translation{Dims: 4}.Validate())
	assert.Error(t, Orientation{Angles: 1, Sequence: "xxy"}.Validate())
	assert.Error(t, Maximum{Dims: 2, Sweep: OrientationSweep{Steps: [3]int{0, 1, 1}}}.Validate())
}

func TestClassifyCoverage(t *testing.T) {
	t.Parallel()

	sweep := OrientationSweep{Sequence: "xyz", Min: [3]float64{0, 0, -0.5}, Max: [3]float64{0, 0, 0.5}, Steps: [3]int{1, 1, 11}}

	var calls atomic.Int64
	crit := tiltLimit{limit: 0.35, calls: &calls}

	v, err := Classify(nil, Dexterous{Dims: 2, Sweep: sweep}, crit, []float64{0, 0})
	require.NoError(t, err)
	assert.False(t, v.Pass)
	assert.InDelta(t, -0.15, v.Margin, 1e-12)
	assert.Equal(t, int64(1), calls.Load(), "dexterous stops at the first failing orientation")

	calls.Store(0)
	v, err = Classify(nil, Maximum{Dims: 2, Sweep: sweep}, crit, []float64{0, 0})
	require.NoError(t, err)
	assert.True(t, v.Pass)
	assert.Equal(t, int64(3), calls.Load(), "maximum stops at the first passing orientation")

	_, err = Classify(nil, Translation{Dims: 2}, crit, []float64{0})
	assert.ErrorIs(t, err, numeric.ErrInvalid)
}

func TestAxis(t *testing.T) {
	t.Parallel()

	a, err := ParseAxis("-1:1:5")
	require.NoError(t, err)
	assert.Equal(t, Axis{Min: -1, Max: 1, Steps: 5}, a)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, []float64{a.Value(0), a.Value(1), a.Value(2), a.Value(3), a.Value(4)})
	assert.Equal(t, 3.0, Axis{Min: 3, Max: 4, Steps: 1}.Value(0))

	for _, s := range []string{"1:2", "a:1:2", "0:1:x", "1:0:3", "0:1:0"} {
		_, err := ParseAxis(s)
		assert.ErrorIs(t, err, numeric.ErrInvalid, s)
	}

	axes := []Axis{{Min: 0, Max: 1, Steps: 2}, {Min: 0, Max: 10, Steps: 3}}
	n, err := sampleCount(axes)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	coord := make([]float64, 2)
	sampleCoord(axes, 1, coord)
	assert.Equal(t, []float64{0, 5}, coord)
	sampleCoord(axes, 3, coord)
	assert.Equal(t, []float64{1, 0}, coord)

	_, err = sampleCount([]Axis{{Max: 1, Steps: MaxGridSamples}, {Max: 1, Steps: 2}})
	assert.ErrorIs(t, err, numeric.ErrInvalid)
}

func planarGrid(t *testing.T, maxLength float64, workers int) *GridResult {
	t.Helper()
	crit, err := NewCableLength(kinematics.NewStandard(), 0, maxLength)
	require.NoError(t, err)
	g := Grid{
		Archetype: Translation{Dims: 2},
		Criterion: crit,
		Axes:      []Axis{{Min: -0.9, Max: 0.9, Steps: 19}, {Min: -0.9, Max: 0.9, Steps: 19}},
		Workers:   workers,
	}
	res, err := g.Evaluate(context.Background(), testutil.PlanarPointRobot())
	require.NoError(t, err)
	return res
}

func TestGridClassification(t *testing.T) {
	t.Parallel()

	const maxLength = 1.55
	res := planarGrid(t, maxLength, 4)
	require.Len(t, res.Samples, 19*19)
	for i, s := range res.Samples {
		assert.Equal(t, i, s.Index)
		// Inside iff every corner is within reach.
		p := r3.Vec{X: s.Coord[0], Y: s.Coord[1]}
		want := true
		for _, c := range []r3.Vec{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1}, {X: 1, Y: -1}} {
			if r3.Norm(r3.Sub(c, p)) > maxLength {
				want = false
			}
		}
		assert.Equal(t, want, s.Inside, "sample %v", s.Coord)
	}

	sum := res.Summary()
	assert.Equal(t, len(res.Samples), sum.Samples)
	assert.Equal(t, len(res.Inside()), sum.Inside)
	assert.Equal(t, len(res.Samples), len(res.Inside())+len(res.Outside()))
	assert.Greater(t, sum.Inside, 0)
	assert.InDelta(t, float64(sum.Inside)/float64(sum.Samples), sum.InsideRatio, 1e-12)
}

func TestGridIsDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	serial := planarGrid(t, 1.8, 1)
	parallel := planarGrid(t, 1.8, 8)
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("grid results differ (-serial +parallel):\n%s", diff)
	}
}

func TestGridMonotonicity(t *testing.T) {
	t.Parallel()

	loose := planarGrid(t, 2.0, 0)
	tight := planarGrid(t, 1.6, 0)
	require.Len(t, tight.Samples, len(loose.Samples))
	moved := 0
	for i := range loose.Samples {
		if tight.Samples[i].Inside {
			assert.True(t, loose.Samples[i].Inside, "sample %v became inside when shrinking the interval", loose.Samples[i].Coord)
		}
		if loose.Samples[i].Inside && !tight.Samples[i].Inside {
			moved++
		}
	}
	assert.Greater(t, moved, 0)
}

func TestGridValidationAndErrors(t *testing.T) {
	t.Parallel()

	crit := disc(1)
	_, err := Grid{Archetype: Translation{Dims: 2}, Criterion: crit, Axes: []Axis{{Max: 1, Steps: 2}}}.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, numeric.ErrInvalid)

	_, err = Grid{Archetype: Translation{Dims: 1}, Axes: []Axis{{Max: 1, Steps: 2}}}.Evaluate(context.Background(), nil)
	assert.ErrorIs(t, err, numeric.ErrInvalid)

	failing := disc(1)
	failing.failBelow = 0
	_, err = Grid{Archetype: Translation{Dims: 1}, Criterion: failing, Axes: []Axis{{Min: -1, Max: 1, Steps: 5}}}.Evaluate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "criterion failure")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Grid{Archetype: Translation{Dims: 1}, Criterion: crit, Axes: []Axis{{Min: -1, Max: 1, Steps: 5}}}.Evaluate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func hull(dims int, crit Criterion) Hull {
	center := make([]float64, dims)
	return Hull{
		Archetype:        Translation{Dims: dims},
		Criterion:        crit,
		Center:           center,
		Tolerance:        1e-6,
		MaxIterations:    60,
		MaxDepth:         2,
		FeatureThreshold: 0.05,
		MaxRadius:        4,
	}
}

func TestHullCircle(t *testing.T) {
	t.Parallel()

	res, err := hull(2, disc(1)).Evaluate(context.Background(), nil)
	require.NoError(t, err)

	// A round workspace needs no refinement.
	require.Len(t, res.Rays, 8)
	require.Len(t, res.Faces, 8)
	for i, ray := range res.Rays {
		assert.Equal(t, RayConverged, ray.Status)
		assert.InDelta(t, 1, ray.Radius, 1e-6)
		assert.LessOrEqual(t, ray.Radius, 1.0)
		assert.Equal(t, []int{i, (i + 1) % 8}, res.Faces[i])
	}
	sum := res.Summary()
	assert.InDelta(t, 1, sum.RadiusMean, 1e-6)
	assert.Zero(t, sum.LowConfidence)
}

func TestHullPlanarCableLengthBoundary(t *testing.T) {
	t.Parallel()

	const maxLength = 1.5
	crit, err := NewCableLength(kinematics.NewStandard(), 0, maxLength)
	require.NoError(t, err)
	h := hull(2, crit)
	h.MaxRadius = 1
	res, err := h.Evaluate(context.Background(), testutil.PlanarPointRobot())
	require.NoError(t, err)

	// Along +x the limiting cables are the two on the -x side.
	assert.InDelta(t, math.Sqrt(maxLength*maxLength-1)-1, res.Rays[0].Radius, 1e-5)
	assert.Greater(t, len(res.Rays), 8, "corners of the lens-shaped region trigger refinement")
	assert.Len(t, res.Faces, len(res.Rays))

	corners := []r3.Vec{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1}, {X: 1, Y: -1}}
	prev := -1.0
	for _, ray := range res.Rays {
		require.Equal(t, RayConverged, ray.Status)
		u := r3.Vec{X: ray.Direction[0], Y: ray.Direction[1]}
		want := math.Inf(1)
		for _, c := range corners {
			uc := r3.Dot(u, c)
			want = math.Min(want, uc+math.Sqrt(uc*uc-r3.Dot(c, c)+maxLength*maxLength))
		}
		assert.InDelta(t, want, ray.Radius, 1e-5)
		angle := angleOf(ray)
		assert.Greater(t, angle, prev, "rays are ordered by angle")
		prev = angle
	}
}

func TestHullSphereTopology(t *testing.T) {
	t.Parallel()

	crit := ellipsoid{axes: r3.Vec{X: 1, Y: 0.5, Z: 0.7}, failBelow: math.Inf(-1)}
	for _, depth := range []int{0, 1, 2} {
		h := hull(3, crit)
		h.MaxDepth = depth
		res, err := h.Evaluate(context.Background(), nil)
		require.NoError(t, err)

		v, f := len(res.Rays), len(res.Faces)
		if depth == 0 {
			assert.Equal(t, 6, v)
		} else {
			assert.Greater(t, v, 6)
		}
		// Closed triangulated sphere: V - E + F = 2 with E = 3F/2.
		assert.Equal(t, 2*v-4, f, "depth %d", depth)
		for _, face := range res.Faces {
			require.Len(t, face, 3)
		}
		for _, ray := range res.Rays {
			require.Equal(t, RayConverged, ray.Status)
			assert.InDelta(t, 1, crit.value(r3.Vec{X: ray.Point[0], Y: ray.Point[1], Z: ray.Point[2]}), 1e-5)
		}
	}
}

func TestHullSpatialCableLength(t *testing.T) {
	t.Parallel()

	const maxLength = 2.8
	r := testutil.SpatialTranslationalRobot()
	crit, err := NewCableLength(kinematics.NewStandard(), 0, maxLength)
	require.NoError(t, err)
	h := hull(3, crit)
	h.MaxDepth = 1
	res, err := h.Evaluate(context.Background(), r)
	require.NoError(t, err)

	for _, ray := range res.Rays {
		require.Equal(t, RayConverged, ray.Status)
		kr, err := kinematics.NewStandard().Backward(r, pose.At(ray.Point[0], ray.Point[1], ray.Point[2]))
		require.NoError(t, err)
		assert.InDelta(t, maxLength, slices.Max(kr.Lengths()), 1e-5)
	}
}

func TestHullRayOutcomes(t *testing.T) {
	t.Parallel()

	t.Run("clipped", func(t *testing.T) {
		h := hull(2, disc(10))
		h.MaxRadius = 0.5
		res, err := h.Evaluate(context.Background(), nil)
		require.NoError(t, err)
		for _, ray := range res.Rays {
			assert.Equal(t, RayClipped, ray.Status)
			assert.Equal(t, 0.5, ray.Radius)
		}
		assert.Equal(t, len(res.Rays), res.Summary().Clipped)
	})

	t.Run("not converged", func(t *testing.T) {
		h := hull(2, disc(1))
		h.MaxIterations = 2
		h.Tolerance = 1e-9
		res, err := h.Evaluate(context.Background(), nil)
		require.NoError(t, err)
		for _, ray := range res.Rays {
			assert.Equal(t, RayNotConverged, ray.Status)
			assert.True(t, ray.LowConfidence())
			assert.LessOrEqual(t, ray.Radius, 1.0)
			assert.Greater(t, ray.Radius, 0.5)
		}
	})

	t.Run("failure is isolated", func(t *testing.T) {
		crit := disc(1)
		crit.failBelow = -0.5
		h := hull(2, crit)
		h.MaxDepth = 0
		res, err := h.Evaluate(context.Background(), nil)
		require.NoError(t, err)
		failed := 0
		for _, ray := range res.Rays {
			if ray.Status == RayFailed {
				failed++
				assert.Contains(t, ray.Err, "criterion failure")
				assert.True(t, ray.LowConfidence())
				continue
			}
			assert.Equal(t, RayConverged, ray.Status)
		}
		assert.Equal(t, 3, failed, "rays pointing into x < -0.5 fail")
		assert.Equal(t, failed, res.Summary().LowConfidence)
	})

	t.Run("centre outside", func(t *testing.T) {
		h := hull(2, disc(1))
		h.Center = []float64{2, 0}
		_, err := h.Evaluate(context.Background(), nil)
		assert.ErrorIs(t, err, numeric.ErrInvalid)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := hull(2, disc(1)).Evaluate(ctx, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("one dimension", func(t *testing.T) {
		h := hull(1, disc(1))
		res, err := h.Evaluate(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, res.Rays, 2)
		assert.Equal(t, [][]int{{0, 1}}, res.Faces)
	})
}

func TestHullDeepRefinementStaysManifold(t *testing.T) {
	t.Parallel()

	crit := ellipsoid{axes: r3.Vec{X: 3, Y: 0.2, Z: 0.7}, failBelow: math.Inf(-1)}
	h := hull(3, crit)
	h.MaxRadius = 4
	h.FeatureThreshold = 0.01
	h.MaxDepth = 5
	res, err := h.Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	v, f := len(res.Rays), len(res.Faces)
	if v <= 6 {
		t.Fatalf("got %d rays, want refinement beyond the octahedron", v)
	}
	if f != 2*v-4 {
		t.Errorf("faces = %d, want 2V-4 = %d", f, 2*v-4)
	}

	// Every directed edge appears once and its reverse once; every ray is
	// used; faces wind counter-clockwise seen from outside.
	directed := make(map[[2]int]int)
	used := make([]bool, v)
	for _, face := range res.Faces {
		if len(face) != 3 {
			t.Fatalf("face %v is not a triangle", face)
		}
		for e := 0; e < 3; e++ {
			a, b := face[e], face[(e+1)%3]
			directed[[2]int{a, b}]++
			used[a] = true
		}
		a, b, c := vecOf(res.Rays[face[0]].Direction), vecOf(res.Rays[face[1]].Direction), vecOf(res.Rays[face[2]].Direction)
		if n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a)); r3.Dot(n, r3.Add(r3.Add(a, b), c)) <= 0 {
			t.Errorf("face %v faces inward", face)
		}
	}
	for e, n := range directed {
		if n != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			t.Errorf("edge %v used %d times, reverse %d times", e, n, directed[[2]int{e[1], e[0]}])
		}
	}
	for i, ok := range used {
		if !ok {
			t.Errorf("ray %d is not part of any face", i)
		}
	}
	for _, ray := range res.Rays {
		if got := crit.value(vecOf(ray.Point)); math.Abs(got-1) > 1e-5 {
			t.Errorf("ray %v ends at level %g, want 1", ray.Direction, got)
		}
	}
}

func TestHullRoundSphereNeedsNoRefinement(t *testing.T) {
	t.Parallel()

	res, err := hull(3, disc(1)).Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(res.Rays) != 6 || len(res.Faces) != 8 {
		t.Errorf("got %d rays and %d faces, want the octahedron (6, 8)", len(res.Rays), len(res.Faces))
	}
}

func vecOf(d []float64) r3.Vec { return r3.Vec{X: d[0], Y: d[1], Z: d[2]} }
