package kinematics

import (
	"iter"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// chainGeometry is the solved routing of one cable in world coordinates.
type chainGeometry struct {
	start       r3.Vec      // frame anchor (cable leaves the frame here)
	end         r3.Vec      // platform anchor
	exit        r3.Vec      // departure point of the straight segment
	swivel      quat.Number // world rotation of the cable plane
	swivelAngle float64
	radius      float64
	wrap        float64
	free        float64 // straight segment length
}

// Result is the immutable outcome of one backward solve for one platform.
// Pulley-only quantities are nil for the standard algorithm.
type Result struct {
	algorithm  string
	platform   int
	pose       pose.Pose
	pattern    robot.MotionPattern
	chains     []robot.Chain
	lengths    []float64
	directions *mat.Dense
	swivel     []float64
	wrap       []float64
	geometry   []chainGeometry
}

// Algorithm names the algorithm that produced the result.
func (r *Result) Algorithm() string { return r.algorithm }

// Platform is the index of the solved platform in the robot model.
func (r *Result) Platform() int { return r.platform }

// Pose is the platform pose the result was computed for.
func (r *Result) Pose() pose.Pose { return r.pose }

// Pattern is the platform's motion pattern.
func (r *Result) Pattern() robot.MotionPattern { return r.pattern }

// Chains returns the solved chains in column order.
func (r *Result) Chains() []robot.Chain { return slices.Clone(r.chains) }

// NumChains returns the number of solved chains.
func (r *Result) NumChains() int { return len(r.chains) }

// Lengths returns one cable length per chain.
func (r *Result) Lengths() []float64 { return slices.Clone(r.lengths) }

// Directions returns the n×m matrix of unit cable directions, one column per
// chain, where n is the platform's translational DOF. Each column points from
// the platform anchor along the cable toward the frame.
func (r *Result) Directions() *mat.Dense { return mat.DenseCopyOf(r.directions) }

// Direction returns column i of Directions.
func (r *Result) Direction(i int) []float64 {
	return mat.Col(nil, i, r.directions)
}

// HasPulleys reports whether swivel and wrap angles were solved.
func (r *Result) HasPulleys() bool { return r.swivel != nil }

// Swivel returns the per-chain swivel angles (radians), or nil.
func (r *Result) Swivel() []float64 { return slices.Clone(r.swivel) }

// Wrap returns the per-chain wrap angles (radians), or nil.
func (r *Result) Wrap() []float64 { return slices.Clone(r.wrap) }

// FrameAnchorPosition returns where chain i leaves the frame.
func (r *Result) FrameAnchorPosition(i int) r3.Vec { return r.geometry[i].start }

// PlatformAnchorPosition returns the world position of chain i's platform anchor.
func (r *Result) PlatformAnchorPosition(i int) r3.Vec { return r.geometry[i].end }

// ExitPoint returns the start of chain i's straight segment. Without a
// pulley it coincides with the frame anchor.
func (r *Result) ExitPoint(i int) r3.Vec { return r.geometry[i].exit }

// FreeLength returns the length of chain i's straight segment.
func (r *Result) FreeLength(i int) float64 { return r.geometry[i].free }

// Shape returns chain i's cable as a finite, restartable sequence of points
// from the frame anchor to the platform anchor: arcPoints samples over the
// wrap arc (including the frame anchor) followed by linePoints samples over
// the straight segment (ending exactly at the platform anchor).
func (r *Result) Shape(i, arcPoints, linePoints int) iter.Seq[r3.Vec] {
	g := r.geometry[i]
	arcPoints = max(arcPoints, 1)
	linePoints = max(linePoints, 1)
	return func(yield func(r3.Vec) bool) {
		if !yield(g.start) {
			return
		}
		if g.radius > 0 && g.wrap > 0 {
			for k := 1; k < arcPoints; k++ {
				phi := g.wrap * float64(k) / float64(arcPoints-1)
				if !yield(arcPoint(g, phi)) {
					return
				}
			}
		}
		for k := 1; k < linePoints; k++ {
			t := float64(k) / float64(linePoints)
			if !yield(r3.Add(g.exit, r3.Scale(t, r3.Sub(g.end, g.exit)))) {
				return
			}
		}
		yield(g.end)
	}
}

// arcPoint is the point on the pulley after wrapping phi radians.
func arcPoint(g chainGeometry, phi float64) r3.Vec {
	local := r3.Vec{X: g.radius * (1 - math.Cos(phi)), Z: -g.radius * math.Sin(phi)}
	return r3.Add(g.start, pose.Rotate(g.swivel, local))
}
