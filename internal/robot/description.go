package robot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/pose"
)

// maxDescriptionSize caps robot description files.
const maxDescriptionSize = 1 * 1024 * 1024

// Description is the on-disk robot document. YAML and JSON are both accepted.
type Description struct {
	Name      string                `yaml:"name"`
	Frame     FrameDescription      `yaml:"frame"`
	Platforms []PlatformDescription `yaml:"platforms"`
	Cables    []CableDescription    `yaml:"cables"`
	// Chains may be omitted when every frame anchor i routes cable i to
	// anchor i of a single platform.
	Chains []Chain `yaml:"chains"`
}

// FrameDescription lists the frame anchors.
type FrameDescription struct {
	Anchors []FrameAnchorDescription `yaml:"anchors"`
}

// OrientationDescription gives an orientation either as a quaternion
// [w, x, y, z] or as Euler angles in degrees under Sequence.
type OrientationDescription struct {
	Quaternion []float64 `yaml:"quaternion,omitempty"`
	Euler      []float64 `yaml:"euler,omitempty"`
	Sequence   string    `yaml:"sequence,omitempty"`
}

// FrameAnchorDescription describes one frame anchor.
type FrameAnchorDescription struct {
	Position    []float64               `yaml:"position"`
	Orientation *OrientationDescription `yaml:"orientation,omitempty"`
	Pulley      *PulleyDescription      `yaml:"pulley,omitempty"`
	Drivetrain  *Drivetrain             `yaml:"drivetrain,omitempty"`
}

// PulleyDescription describes a redirection pulley.
type PulleyDescription struct {
	Radius      float64                 `yaml:"radius"`
	Inertia     float64                 `yaml:"inertia"`
	Orientation *OrientationDescription `yaml:"orientation,omitempty"`
}

// PlatformDescription describes a platform.
type PlatformDescription struct {
	Name          string                      `yaml:"name"`
	MotionPattern MotionPattern               `yaml:"motion_pattern"`
	Mass          float64                     `yaml:"mass"`
	Inertia       []float64                   `yaml:"inertia,omitempty"`
	Anchors       []PlatformAnchorDescription `yaml:"anchors"`
}

// PlatformAnchorDescription describes a platform anchor.
type PlatformAnchorDescription struct {
	Position    []float64               `yaml:"position"`
	Orientation *OrientationDescription `yaml:"orientation,omitempty"`
}

// CableDescription describes a cable's material.
type CableDescription struct {
	Name         string  `yaml:"name"`
	Diameter     float64 `yaml:"diameter"`
	Modulus      float64 `yaml:"modulus"`
	BreakingLoad float64 `yaml:"breaking_load"`
}

// LoadFile reads and validates a robot description.
func LoadFile(path string) (*Robot, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("robot description must be .yaml, .yml or .json, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat robot description: %w", err)
	}
	if info.Size() > maxDescriptionSize {
		return nil, fmt.Errorf("robot description too large: %d bytes (max %d)", info.Size(), maxDescriptionSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read robot description: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON robot description.
func Parse(data []byte) (*Robot, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse robot description: %w", err)
	}
	return d.Build()
}

// Build converts the description into a validated Robot.
func (d Description) Build() (*Robot, error) {
	spec := Spec{Name: d.Name}
	for i, a := range d.Frame.Anchors {
		pos, err := vec3(a.Position)
		if err != nil {
			return nil, fmt.Errorf("frame anchor %d position: %w", i, err)
		}
		q, err := a.Orientation.quaternion()
		if err != nil {
			return nil, fmt.Errorf("frame anchor %d orientation: %w", i, err)
		}
		fa := FrameAnchor{Position: pos, Orientation: q}
		if a.Pulley != nil {
			pq, err := a.Pulley.Orientation.quaternion()
			if err != nil {
				return nil, fmt.Errorf("frame anchor %d pulley orientation: %w", i, err)
			}
			fa.Pulley = &Pulley{Radius: a.Pulley.Radius, Inertia: a.Pulley.Inertia, Orientation: pq}
		}
		if a.Drivetrain != nil {
			dt := *a.Drivetrain
			fa.Drivetrain = &dt
		}
		spec.FrameAnchors = append(spec.FrameAnchors, fa)
	}
	for i, p := range d.Platforms {
		pl := Platform{Name: p.Name, Pattern: p.MotionPattern, Mass: p.Mass, Pose: pose.At(0, 0, 0)}
		if len(p.Inertia) > 0 {
			in, err := vec3(p.Inertia)
			if err != nil {
				return nil, fmt.Errorf("platform %d inertia: %w", i, err)
			}
			pl.Inertia = in
		}
		for j, a := range p.Anchors {
			pos, err := vec3(a.Position)
			if err != nil {
				return nil, fmt.Errorf("platform %d anchor %d position: %w", i, j, err)
			}
			q, err := a.Orientation.quaternion()
			if err != nil {
				return nil, fmt.Errorf("platform %d anchor %d orientation: %w", i, j, err)
			}
			pl.Anchors = append(pl.Anchors, PlatformAnchor{Position: pos, Orientation: q})
		}
		spec.Platforms = append(spec.Platforms, pl)
	}
	for _, c := range d.Cables {
		spec.Cables = append(spec.Cables, Cable(c))
	}
	spec.Chains = d.Chains
	if len(spec.Chains) == 0 {
		chains, err := defaultChains(spec)
		if err != nil {
			return nil, err
		}
		spec.Chains = chains
	}
	return New(spec)
}

// defaultChains pairs frame anchor i with cable i and anchor i of the only
// platform.
func defaultChains(spec Spec) ([]Chain, error) {
	if len(spec.Platforms) != 1 {
		return nil, numeric.Invalidf("chains must be listed explicitly for %d platforms", len(spec.Platforms))
	}
	n := len(spec.FrameAnchors)
	if len(spec.Platforms[0].Anchors) != n || len(spec.Cables) != n {
		return nil, numeric.Invalidf("implicit chains need equal counts of frame anchors (%d), platform anchors (%d) and cables (%d)",
			n, len(spec.Platforms[0].Anchors), len(spec.Cables))
	}
	chains := make([]Chain, n)
	for i := range chains {
		chains[i] = Chain{FrameAnchor: i, Platform: 0, PlatformAnchor: i, Cable: i}
	}
	return chains, nil
}

func (o *OrientationDescription) quaternion() (quat.Number, error) {
	if o == nil {
		return pose.Identity, nil
	}
	switch {
	case len(o.Quaternion) > 0 && len(o.Euler) > 0:
		return quat.Number{}, numeric.Invalidf("orientation gives both quaternion and euler angles")
	case len(o.Quaternion) > 0:
		if len(o.Quaternion) != 4 {
			return quat.Number{}, numeric.Invalidf("quaternion needs 4 components, got %d", len(o.Quaternion))
		}
		q := quat.Number{Real: o.Quaternion[0], Imag: o.Quaternion[1], Jmag: o.Quaternion[2], Kmag: o.Quaternion[3]}
		if quat.Abs(q) < 1e-12 {
			return quat.Number{}, numeric.Invalidf("quaternion has zero norm")
		}
		return quat.Scale(1/quat.Abs(q), q), nil
	case len(o.Euler) > 0:
		if len(o.Euler) != 3 {
			return quat.Number{}, numeric.Invalidf("euler angles need 3 components, got %d", len(o.Euler))
		}
		seq := pose.Sequence(o.Sequence)
		if seq == "" {
			seq = pose.DefaultSequence
		}
		deg := math.Pi / 180
		return pose.FromEuler(seq, [3]float64{o.Euler[0] * deg, o.Euler[1] * deg, o.Euler[2] * deg})
	default:
		return pose.Identity, nil
	}
}

// vec3 accepts one to three components; missing trailing components are zero
// so planar robots can list [x, y].
func vec3(v []float64) (r3.Vec, error) {
	if len(v) == 0 || len(v) > 3 {
		return r3.Vec{}, numeric.Invalidf("vector needs 1 to 3 components, got %d", len(v))
	}
	var out [3]float64
	copy(out[:], v)
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}, nil
}
