// Package robot is the read-only robot model consumed by the kinematics and
// workspace packages.
//
// A Robot owns contiguous arenas of frame anchors, platforms and cables.
// Kinematic chains reference those arenas by index and are resolved in O(1).
// A Robot is validated once at construction and never mutated afterwards;
// the With* methods return re-validated copies.
package robot

import (
	"fmt"
	"slices"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
)

// Model is the read-only accessor the solver packages depend on.
type Model interface {
	NumPlatforms() int
	Platform(i int) Platform
	NumFrameAnchors() int
	FrameAnchor(i int) FrameAnchor
	NumCables() int
	Cable(i int) Cable
	Chains() []Chain
	ChainsWhere(f ChainFilter) []Chain
}

// Any is the wildcard value in a ChainFilter.
const Any = -1

// ChainFilter selects chains by index; fields set to Any match everything.
type ChainFilter struct {
	FrameAnchor    int
	Platform       int
	PlatformAnchor int
	Cable          int
}

// AllChains matches every chain.
var AllChains = ChainFilter{FrameAnchor: Any, Platform: Any, PlatformAnchor: Any, Cable: Any}

// PlatformChains matches the chains attached to platform i.
func PlatformChains(i int) ChainFilter {
	f := AllChains
	f.Platform = i
	return f
}

// Match reports whether c passes the filter.
func (f ChainFilter) Match(c Chain) bool {
	return (f.FrameAnchor == Any || f.FrameAnchor == c.FrameAnchor) &&
		(f.Platform == Any || f.Platform == c.Platform) &&
		(f.PlatformAnchor == Any || f.PlatformAnchor == c.PlatformAnchor) &&
		(f.Cable == Any || f.Cable == c.Cable)
}

// Robot is a validated cable-driven parallel robot description.
type Robot struct {
	name         string
	frameAnchors []FrameAnchor
	platforms    []Platform
	cables       []Cable
	chains       []Chain
}

var _ Model = (*Robot)(nil)

// Spec is the plain input to New.
type Spec struct {
	Name         string
	FrameAnchors []FrameAnchor
	Platforms    []Platform
	Cables       []Cable
	Chains       []Chain
}

// New validates spec and returns the robot. The slices are copied.
func New(spec Spec) (*Robot, error) {
	r := &Robot{
		name:         spec.Name,
		frameAnchors: cloneFrameAnchors(spec.FrameAnchors),
		platforms:    clonePlatforms(spec.Platforms),
		cables:       slices.Clone(spec.Cables),
		chains:       slices.Clone(spec.Chains),
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Robot) validate() error {
	if len(r.platforms) == 0 {
		return numeric.Invalidf("robot %q has no platforms", r.name)
	}
	for i, a := range r.frameAnchors {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("frame anchor %d: %w", i, err)
		}
	}
	for i, p := range r.platforms {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("platform %d: %w", i, err)
		}
	}
	for i, c := range r.cables {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cable %d: %w", i, err)
		}
	}
	for i, c := range r.chains {
		if c.FrameAnchor < 0 || c.FrameAnchor >= len(r.frameAnchors) {
			return numeric.Invalidf("chain %d: frame anchor %d out of range [0,%d)", i, c.FrameAnchor, len(r.frameAnchors))
		}
		if c.Platform < 0 || c.Platform >= len(r.platforms) {
			return numeric.Invalidf("chain %d: platform %d out of range [0,%d)", i, c.Platform, len(r.platforms))
		}
		if n := len(r.platforms[c.Platform].Anchors); c.PlatformAnchor < 0 || c.PlatformAnchor >= n {
			return numeric.Invalidf("chain %d: platform anchor %d out of range [0,%d)", i, c.PlatformAnchor, n)
		}
		if c.Cable < 0 || c.Cable >= len(r.cables) {
			return numeric.Invalidf("chain %d: cable %d out of range [0,%d)", i, c.Cable, len(r.cables))
		}
	}
	for i := range r.platforms {
		if len(r.ChainsWhere(PlatformChains(i))) == 0 {
			return numeric.Invalidf("platform %d has no kinematic chains", i)
		}
	}
	return nil
}

// Name returns the robot name.
func (r *Robot) Name() string { return r.name }

// NumPlatforms returns the number of platforms.
func (r *Robot) NumPlatforms() int { return len(r.platforms) }

// Platform returns a copy of platform i.
func (r *Robot) Platform(i int) Platform {
	p := r.platforms[i]
	p.Anchors = slices.Clone(p.Anchors)
	return p
}

// NumFrameAnchors returns the number of frame anchors.
func (r *Robot) NumFrameAnchors() int { return len(r.frameAnchors) }

// FrameAnchor returns frame anchor i.
func (r *Robot) FrameAnchor(i int) FrameAnchor { return r.frameAnchors[i] }

// NumCables returns the number of cables.
func (r *Robot) NumCables() int { return len(r.cables) }

// Cable returns cable i.
func (r *Robot) Cable(i int) Cable { return r.cables[i] }

// Chains returns a copy of all kinematic chains in declaration order.
func (r *Robot) Chains() []Chain { return slices.Clone(r.chains) }

// ChainsWhere returns the chains matching f in declaration order.
func (r *Robot) ChainsWhere(f ChainFilter) []Chain {
	var out []Chain
	for _, c := range r.chains {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Spec returns a copy of the robot's description.
func (r *Robot) Spec() Spec {
	return Spec{
		Name:         r.name,
		FrameAnchors: cloneFrameAnchors(r.frameAnchors),
		Platforms:    clonePlatforms(r.platforms),
		Cables:       slices.Clone(r.cables),
		Chains:       slices.Clone(r.chains),
	}
}

// WithPlatformPose returns a copy of r with platform i at p.
func (r *Robot) WithPlatformPose(i int, p pose.Pose) (*Robot, error) {
	if i < 0 || i >= len(r.platforms) {
		return nil, numeric.Invalidf("platform %d out of range [0,%d)", i, len(r.platforms))
	}
	spec := r.Spec()
	spec.Platforms[i].Pose = p
	return New(spec)
}

// WithCable returns a copy of r with cable i replaced.
func (r *Robot) WithCable(i int, c Cable) (*Robot, error) {
	if i < 0 || i >= len(r.cables) {
		return nil, numeric.Invalidf("cable %d out of range [0,%d)", i, len(r.cables))
	}
	spec := r.Spec()
	spec.Cables[i] = c
	return New(spec)
}

// WithFrameAnchor returns a copy of r with frame anchor i replaced.
func (r *Robot) WithFrameAnchor(i int, a FrameAnchor) (*Robot, error) {
	if i < 0 || i >= len(r.frameAnchors) {
		return nil, numeric.Invalidf("frame anchor %d out of range [0,%d)", i, len(r.frameAnchors))
	}
	spec := r.Spec()
	spec.FrameAnchors[i] = a
	return New(spec)
}

func clonePlatforms(ps []Platform) []Platform {
	out := slices.Clone(ps)
	for i := range out {
		out[i].Anchors = slices.Clone(out[i].Anchors)
	}
	return out
}

func cloneFrameAnchors(as []FrameAnchor) []FrameAnchor {
	out := slices.Clone(as)
	for i := range out {
		if p := out[i].Pulley; p != nil {
			cp := *p
			out[i].Pulley = &cp
		}
		if d := out[i].Drivetrain; d != nil {
			cd := *d
			out[i].Drivetrain = &cd
		}
	}
	return out
}
