// Package structure builds the structure matrix of a platform: the linear map
// from cable tensions to the wrench the cables exert on the platform.
//
// Column j of the matrix is the unit direction u_j of chain j restricted to
// the platform's translational rows, followed by the moment rows
// (R·b_j) × u_j restricted to the platform's rotation axes, where b_j is the
// platform anchor in the platform frame and R the platform orientation.
package structure

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Build returns the (n+r)×m structure matrix for a platform with the given
// motion pattern at pose p. anchors holds the m platform anchors in the
// platform frame and directions the n×m unit cable directions.
func Build(pattern robot.MotionPattern, p pose.Pose, anchors []r3.Vec, directions mat.Matrix) (*mat.Dense, error) {
	if !pattern.Valid() {
		return nil, numeric.Unimplementedf("structure matrix for motion pattern %s", pattern)
	}
	rows, cols := directions.Dims()
	if rows != pattern.TranslationalDOF() {
		return nil, numeric.Invalidf("%s platform needs %d direction rows, got %d", pattern, pattern.TranslationalDOF(), rows)
	}
	if cols != len(anchors) {
		return nil, numeric.Invalidf("got %d directions for %d anchors", cols, len(anchors))
	}
	if cols == 0 {
		return nil, numeric.Invalidf("structure matrix needs at least one cable")
	}

	switch pattern {
	case robot.Pattern1T, robot.Pattern2T, robot.Pattern3T:
		return translational(directions), nil
	case robot.Pattern1R2T, robot.Pattern2R3T, robot.Pattern3R3T:
		return rotational(pattern, p, anchors, directions), nil
	}
	return nil, numeric.Unimplementedf("structure matrix for motion pattern %s", pattern)
}

// FromResult builds the structure matrix of a kinematics result, looking up
// the platform anchors of its chains in m.
func FromResult(m robot.Model, res *kinematics.Result) (*mat.Dense, error) {
	platform := m.Platform(res.Platform())
	chains := res.Chains()
	anchors := make([]r3.Vec, len(chains))
	for j, c := range chains {
		anchors[j] = platform.Anchors[c.PlatformAnchor].Position
	}
	return Build(res.Pattern(), res.Pose(), anchors, res.Directions())
}

func translational(directions mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(directions)
}

func rotational(pattern robot.MotionPattern, p pose.Pose, anchors []r3.Vec, directions mat.Matrix) *mat.Dense {
	n := pattern.TranslationalDOF()
	axes := pattern.RotationAxes()
	a := mat.NewDense(n+len(axes), len(anchors), nil)
	for j, b := range anchors {
		var u [3]float64
		for k := 0; k < n; k++ {
			u[k] = directions.At(k, j)
			a.Set(k, j, u[k])
		}
		// Planar directions lie in the xy plane.
		moment := r3.Cross(p.Rotate(b), r3.Vec{X: u[0], Y: u[1], Z: u[2]})
		m := [3]float64{moment.X, moment.Y, moment.Z}
		for k, axis := range axes {
			a.Set(n+k, j, m[axis])
		}
	}
	return a
}
