package robot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
)

// Pulley is the redirection pulley mounted on a frame anchor. Orientation
// is relative to the anchor: the local z axis is the swivel axis and the
// local x axis points from the cable entry point toward the pulley centre at
// zero swivel.
type Pulley struct {
	Radius      float64
	Inertia     float64
	Orientation quat.Number
}

// Validate checks the physical quantities.
func (p Pulley) Validate() error {
	if !nonNegative(p.Radius) {
		return numeric.Invalidf("pulley radius must be non-negative, got %g", p.Radius)
	}
	if !nonNegative(p.Inertia) {
		return numeric.Invalidf("pulley inertia must be non-negative, got %g", p.Inertia)
	}
	return nil
}

// Drivetrain is the winch behind a frame anchor. It carries no kinematic
// behaviour and is kept for completeness of robot descriptions.
type Drivetrain struct {
	DrumRadius float64 `yaml:"drum_radius"`
	GearRatio  float64 `yaml:"gear_ratio"`
}

// Validate checks the physical quantities.
func (d Drivetrain) Validate() error {
	if !nonNegative(d.DrumRadius) {
		return numeric.Invalidf("drum radius must be non-negative, got %g", d.DrumRadius)
	}
	if !nonNegative(d.GearRatio) {
		return numeric.Invalidf("gear ratio must be non-negative, got %g", d.GearRatio)
	}
	return nil
}

// FrameAnchor is a cable attachment on the fixed frame, in world coordinates.
type FrameAnchor struct {
	Position    r3.Vec
	Orientation quat.Number
	Pulley      *Pulley
	Drivetrain  *Drivetrain
}

// Validate checks the anchor and its optional pulley and drivetrain.
func (a FrameAnchor) Validate() error {
	if !finiteVec(a.Position) {
		return numeric.Invalidf("frame anchor position %v is not finite", a.Position)
	}
	if a.Pulley != nil {
		if err := a.Pulley.Validate(); err != nil {
			return err
		}
	}
	if a.Drivetrain != nil {
		if err := a.Drivetrain.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Rotation returns the anchor orientation, defaulting to identity.
func (a FrameAnchor) Rotation() quat.Number {
	return orIdentity(a.Orientation)
}

// PulleyRotation returns the world orientation of the pulley frame.
func (a FrameAnchor) PulleyRotation() quat.Number {
	if a.Pulley == nil {
		return a.Rotation()
	}
	return quat.Mul(a.Rotation(), orIdentity(a.Pulley.Orientation))
}

// PlatformAnchor is a cable attachment in the platform's local frame.
type PlatformAnchor struct {
	Position    r3.Vec
	Orientation quat.Number
}

// Validate checks the anchor.
func (a PlatformAnchor) Validate() error {
	if !finiteVec(a.Position) {
		return numeric.Invalidf("platform anchor position %v is not finite", a.Position)
	}
	return nil
}

// Platform is a moving body carrying platform anchors.
type Platform struct {
	Name    string
	Anchors []PlatformAnchor
	Pattern MotionPattern
	Mass    float64
	// Inertia holds the principal moments of inertia.
	Inertia r3.Vec
	Pose    pose.Pose
}

// Validate checks the platform and its anchors.
func (p Platform) Validate() error {
	if !p.Pattern.Valid() {
		return numeric.Invalidf("platform %q has invalid motion pattern", p.Name)
	}
	if len(p.Anchors) == 0 {
		return numeric.Invalidf("platform %q has no anchors", p.Name)
	}
	if !nonNegative(p.Mass) {
		return numeric.Invalidf("platform %q mass must be non-negative, got %g", p.Name, p.Mass)
	}
	if !nonNegative(p.Inertia.X) || !nonNegative(p.Inertia.Y) || !nonNegative(p.Inertia.Z) {
		return numeric.Invalidf("platform %q inertia must be non-negative, got %v", p.Name, p.Inertia)
	}
	for i, a := range p.Anchors {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("platform %q anchor %d: %w", p.Name, i, err)
		}
	}
	return nil
}

// Cable holds material constants used by force criteria.
type Cable struct {
	Name         string
	Diameter     float64
	Modulus      float64
	BreakingLoad float64
}

// Validate checks the physical quantities.
func (c Cable) Validate() error {
	if !nonNegative(c.Diameter) {
		return numeric.Invalidf("cable %q diameter must be non-negative, got %g", c.Name, c.Diameter)
	}
	if !nonNegative(c.Modulus) {
		return numeric.Invalidf("cable %q modulus must be non-negative, got %g", c.Name, c.Modulus)
	}
	if !nonNegative(c.BreakingLoad) {
		return numeric.Invalidf("cable %q breaking load must be non-negative, got %g", c.Name, c.BreakingLoad)
	}
	return nil
}

// Chain routes one cable: frame anchor -> platform anchor on a platform.
// All fields are indices into the owning Robot's arenas.
type Chain struct {
	FrameAnchor    int `json:"frame_anchor" yaml:"frame_anchor"`
	Platform       int `json:"platform" yaml:"platform"`
	PlatformAnchor int `json:"platform_anchor" yaml:"platform_anchor"`
	Cable          int `json:"cable" yaml:"cable"`
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func finiteVec(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func orIdentity(q quat.Number) quat.Number {
	if q == (quat.Number{}) {
		return pose.Identity
	}
	return q
}
