package workspace

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
)

// Coverage says how the verdicts of an archetype's poses at one coordinate
// combine.
type Coverage int

const (
	// CoverAll requires every pose to pass.
	CoverAll Coverage = iota
	// CoverAny requires at least one pose to pass.
	CoverAny
)

func (c Coverage) String() string {
	if c == CoverAny {
		return "any"
	}
	return "all"
}

// Archetype maps a workspace coordinate to the poses that decide it.
type Archetype interface {
	Name() string
	// Dim is the number of coordinate components.
	Dim() int
	Coverage() Coverage
	// Poses returns a finite, restartable sequence of poses at coord.
	Poses(coord []float64) iter.Seq[pose.Pose]
	Validate() error
}

// Translation sweeps the platform position at a fixed orientation. The
// coordinate holds the first Dims position components; the rest are zero.
type Translation struct {
	Dims        int
	Orientation quat.Number
}

// Name implements Archetype.
func (Translation) Name() string { return "translation" }

// Dim implements Archetype.
func (a Translation) Dim() int { return a.Dims }

// Coverage implements Archetype.
func (Translation) Coverage() Coverage { return CoverAll }

// Validate implements Archetype.
func (a Translation) Validate() error {
	if a.Dims < 1 || a.Dims > 3 {
		return numeric.Invalidf("translation archetype needs 1 to 3 dimensions, got %d", a.Dims)
	}
	q := a.Orientation
	if quat.IsNaN(q) || quat.IsInf(q) || (q != quat.Number{} && quat.Abs(q) < 1e-12) {
		return numeric.Invalidf("translation archetype orientation is not a rotation")
	}
	return nil
}

// Poses implements Archetype.
func (a Translation) Poses(coord []float64) iter.Seq[pose.Pose] {
	return func(yield func(pose.Pose) bool) {
		yield(poseAt(position(coord), a.Orientation))
	}
}

// Orientation sweeps the platform orientation at a fixed position. The
// coordinate holds the first Angles Euler angles (radians) under Sequence;
// the remaining angles are zero.
type Orientation struct {
	Position r3.Vec
	Sequence pose.Sequence
	Angles   int
}

// Name implements Archetype.
func (Orientation) Name() string { return "orientation" }

// Dim implements Archetype.
func (a Orientation) Dim() int { return a.Angles }

// Coverage implements Archetype.
func (Orientation) Coverage() Coverage { return CoverAll }

// Validate implements Archetype.
func (a Orientation) Validate() error {
	if a.Angles < 1 || a.Angles > 3 {
		return numeric.Invalidf("orientation archetype needs 1 to 3 angles, got %d", a.Angles)
	}
	if !finite(a.Position) {
		return numeric.Invalidf("orientation archetype position must be finite")
	}
	return sequenceOrDefault(a.Sequence).Validate()
}

// Poses implements Archetype.
func (a Orientation) Poses(coord []float64) iter.Seq[pose.Pose] {
	return func(yield func(pose.Pose) bool) {
		var angles [3]float64
		copy(angles[:], coord)
		q, err := pose.FromEuler(sequenceOrDefault(a.Sequence), angles)
		if err != nil {
			return
		}
		yield(poseAt(a.Position, q))
	}
}

// OrientationSweep is a box of Euler angles sampled with Steps points per
// angle (linspace, one step meaning the minimum only).
type OrientationSweep struct {
	Sequence pose.Sequence
	Min      [3]float64
	Max      [3]float64
	Steps    [3]int
}

// Validate checks the sweep.
func (s OrientationSweep) Validate() error {
	for i := 0; i < 3; i++ {
		if err := (Axis{Min: s.Min[i], Max: s.Max[i], Steps: s.Steps[i]}).Validate(); err != nil {
			return err
		}
	}
	return sequenceOrDefault(s.Sequence).Validate()
}

// Len is the number of orientations in the sweep.
func (s OrientationSweep) Len() int {
	return s.Steps[0] * s.Steps[1] * s.Steps[2]
}

// Orientations returns the swept rotations, the last angle varying fastest.
func (s OrientationSweep) Orientations() iter.Seq[quat.Number] {
	axes := []Axis{
		{Min: s.Min[0], Max: s.Max[0], Steps: s.Steps[0]},
		{Min: s.Min[1], Max: s.Max[1], Steps: s.Steps[1]},
		{Min: s.Min[2], Max: s.Max[2], Steps: s.Steps[2]},
	}
	seq := sequenceOrDefault(s.Sequence)
	return func(yield func(quat.Number) bool) {
		coord := make([]float64, 3)
		for i := 0; i < s.Len(); i++ {
			sampleCoord(axes, i, coord)
			q, err := pose.FromEuler(seq, [3]float64{coord[0], coord[1], coord[2]})
			if err != nil {
				return
			}
			if !yield(q) {
				return
			}
		}
	}
}

// Dexterous sweeps the platform position; a position belongs to the
// workspace when the criterion holds for every orientation of Sweep.
type Dexterous struct {
	Dims  int
	Sweep OrientationSweep
}

// Name implements Archetype.
func (Dexterous) Name() string { return "dexterous" }

// Dim implements Archetype.
func (a Dexterous) Dim() int { return a.Dims }

// Coverage implements Archetype.
func (Dexterous) Coverage() Coverage { return CoverAll }

// Validate implements Archetype.
func (a Dexterous) Validate() error {
	if err := (Translation{Dims: a.Dims}).Validate(); err != nil {
		return err
	}
	return a.Sweep.Validate()
}

// Poses implements Archetype.
func (a Dexterous) Poses(coord []float64) iter.Seq[pose.Pose] {
	return sweepAt(position(coord), a.Sweep)
}

// Maximum sweeps the platform position; a position belongs to the workspace
// when the criterion holds for at least one orientation of Sweep.
type Maximum struct {
	Dims  int
	Sweep OrientationSweep
}

// Name implements Archetype.
func (Maximum) Name() string { return "maximum" }

// Dim implements Archetype.
func (a Maximum) Dim() int { return a.Dims }

// Coverage implements Archetype.
func (Maximum) Coverage() Coverage { return CoverAny }

// Validate implements Archetype.
func (a Maximum) Validate() error {
	return Dexterous(a).Validate()
}

// Poses implements Archetype.
func (a Maximum) Poses(coord []float64) iter.Seq[pose.Pose] {
	return sweepAt(position(coord), a.Sweep)
}

func sweepAt(p r3.Vec, s OrientationSweep) iter.Seq[pose.Pose] {
	return func(yield func(pose.Pose) bool) {
		for q := range s.Orientations() {
			if !yield(poseAt(p, q)) {
				return
			}
		}
	}
}

func position(coord []float64) r3.Vec {
	var v [3]float64
	copy(v[:], coord)
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// poseAt builds a pose from validated components; a zero quaternion means
// identity.
func poseAt(p r3.Vec, q quat.Number) pose.Pose {
	if q == (quat.Number{}) {
		return pose.MustNew(p)
	}
	return pose.MustNew(p, pose.WithQuaternion(q))
}

func sequenceOrDefault(s pose.Sequence) pose.Sequence {
	if s == "" {
		return pose.DefaultSequence
	}
	return s
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
