// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers and reference robots to
// reduce duplication across test files.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/robot"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertVecNear fails the test if got differs from want by more than tol in
// any component.
func AssertVecNear(t *testing.T, want, got r3.Vec, tol float64) {
	t.Helper()
	d := r3.Sub(want, got)
	if math.Abs(d.X) > tol || math.Abs(d.Y) > tol || math.Abs(d.Z) > tol {
		t.Errorf("vector = %v, want %v (tol %g)", got, want, tol)
	}
}

func mustRobot(spec robot.Spec) *robot.Robot {
	r, err := robot.New(spec)
	if err != nil {
		panic(err)
	}
	return r
}

func cables(n int) []robot.Cable {
	out := make([]robot.Cable, n)
	for i := range out {
		out[i] = robot.Cable{Name: "dyneema", Diameter: 0.004, Modulus: 100e9, BreakingLoad: 4000}
	}
	return out
}

func identityChains(n int) []robot.Chain {
	out := make([]robot.Chain, n)
	for i := range out {
		out[i] = robot.Chain{FrameAnchor: i, Platform: 0, PlatformAnchor: i, Cable: i}
	}
	return out
}

// planarCorners are the (±1, ±1) corners in counter-clockwise order
// starting at (1, 1).
var planarCorners = []r3.Vec{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1}, {X: 1, Y: -1}}

// PlanarPointRobot is a 2T robot with frame anchors at (±1, ±1, 0) and a
// point platform.
func PlanarPointRobot() *robot.Robot {
	frame := make([]robot.FrameAnchor, len(planarCorners))
	anchors := make([]robot.PlatformAnchor, len(planarCorners))
	for i, c := range planarCorners {
		frame[i] = robot.FrameAnchor{Position: c}
	}
	return mustRobot(robot.Spec{
		Name:         "planar-point",
		FrameAnchors: frame,
		Platforms:    []robot.Platform{{Name: "effector", Anchors: anchors, Pattern: robot.Pattern2T, Mass: 1}},
		Cables:       cables(len(frame)),
		Chains:       identityChains(len(frame)),
	})
}

// PlanarRotationalRobot is a 1R2T robot with frame anchors at (±1, ±1, 0)
// and a 0.2 m square platform.
func PlanarRotationalRobot() *robot.Robot {
	frame := make([]robot.FrameAnchor, len(planarCorners))
	anchors := make([]robot.PlatformAnchor, len(planarCorners))
	for i, c := range planarCorners {
		frame[i] = robot.FrameAnchor{Position: c}
		anchors[i] = robot.PlatformAnchor{Position: r3.Scale(0.1, c)}
	}
	return mustRobot(robot.Spec{
		Name:         "planar-rotational",
		FrameAnchors: frame,
		Platforms:    []robot.Platform{{Name: "effector", Anchors: anchors, Pattern: robot.Pattern1R2T, Mass: 1}},
		Cables:       cables(len(frame)),
		Chains:       identityChains(len(frame)),
	})
}

// boxCorners returns the eight sign combinations of (±1, ±1, ±1).
func boxCorners() []r3.Vec {
	var out []r3.Vec
	for _, sz := range []float64{1, -1} {
		for _, c := range planarCorners {
			out = append(out, r3.Vec{X: c.X, Y: c.Y, Z: sz})
		}
	}
	return out
}

// SpatialRobot is a 3R3T robot with eight cables spanning a 4 x 3 x 2 m frame
// to a 0.2 m cube platform of 10 kg.
func SpatialRobot() *robot.Robot {
	return spatialRobot(robot.Pattern3R3T, 0)
}

// SpatialTranslationalRobot is SpatialRobot with a 3T point-like pattern.
func SpatialTranslationalRobot() *robot.Robot {
	return spatialRobot(robot.Pattern3T, 0)
}

// SpatialPulleyRobot is SpatialRobot with a pulley of the given radius on
// every frame anchor. Upper pulleys face down, lower pulleys face up.
func SpatialPulleyRobot(radius float64) *robot.Robot {
	return spatialRobot(robot.Pattern3R3T, radius)
}

func spatialRobot(pattern robot.MotionPattern, pulleyRadius float64) *robot.Robot {
	corners := boxCorners()
	frame := make([]robot.FrameAnchor, len(corners))
	anchors := make([]robot.PlatformAnchor, len(corners))
	for i, c := range corners {
		frame[i] = robot.FrameAnchor{Position: r3.Vec{X: 2 * c.X, Y: 1.5 * c.Y, Z: c.Z}}
		anchors[i] = robot.PlatformAnchor{Position: r3.Scale(0.1, c)}
		if pulleyRadius > 0 {
			p := &robot.Pulley{Radius: pulleyRadius, Inertia: 1e-4, Orientation: pose.Identity}
			if c.Z < 0 {
				p.Orientation = pose.AxisAngle(r3.Vec{X: 1}, math.Pi)
			}
			frame[i].Pulley = p
		}
	}
	return mustRobot(robot.Spec{
		Name:         "spatial-" + pattern.String(),
		FrameAnchors: frame,
		Platforms: []robot.Platform{{
			Name:    "effector",
			Anchors: anchors,
			Pattern: pattern,
			Mass:    10,
			Inertia: r3.Vec{X: 0.1, Y: 0.1, Z: 0.1},
		}},
		Cables: cables(len(frame)),
		Chains: identityChains(len(frame)),
	})
}

// SinglePulleyRobot is a 3T robot with one cable leaving a pulley of the
// given radius at (0, 0, 1) toward a point platform.
func SinglePulleyRobot(radius float64) *robot.Robot {
	return mustRobot(robot.Spec{
		Name: "single-pulley",
		FrameAnchors: []robot.FrameAnchor{{
			Position: r3.Vec{Z: 1},
			Pulley:   &robot.Pulley{Radius: radius},
		}},
		Platforms: []robot.Platform{{
			Name:    "effector",
			Anchors: []robot.PlatformAnchor{{}},
			Pattern: robot.Pattern3T,
		}},
		Cables: cables(1),
		Chains: identityChains(1),
	})
}

// TwoPlatformRobot carries two independent planar point platforms sharing
// one frame.
func TwoPlatformRobot() *robot.Robot {
	frame := make([]robot.FrameAnchor, 2*len(planarCorners))
	var chains []robot.Chain
	for i, c := range planarCorners {
		frame[i] = robot.FrameAnchor{Position: c}
		frame[i+len(planarCorners)] = robot.FrameAnchor{Position: r3.Add(c, r3.Vec{X: 3})}
		chains = append(chains, robot.Chain{FrameAnchor: i, Platform: 0, PlatformAnchor: 0, Cable: i})
	}
	for i := range planarCorners {
		j := i + len(planarCorners)
		chains = append(chains, robot.Chain{FrameAnchor: j, Platform: 1, PlatformAnchor: 0, Cable: j})
	}
	point := []robot.PlatformAnchor{{}}
	return mustRobot(robot.Spec{
		Name:         "two-platforms",
		FrameAnchors: frame,
		Platforms: []robot.Platform{
			{Name: "left", Anchors: point, Pattern: robot.Pattern2T},
			{Name: "right", Anchors: point, Pattern: robot.Pattern2T},
		},
		Cables: cables(len(frame)),
		Chains: chains,
	})
}
