package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/cdpr/internal/pose"
)

// parseCSVFloatSlice parses a comma-separated list of floats.
func parseCSVFloatSlice(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCSVIntSlice parses a comma-separated list of integers.
func parseCSVIntSlice(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseSteps3 parses exactly three sample counts.
func parseSteps3(s string) ([3]int, error) {
	vals, err := parseCSVIntSlice(s)
	if err != nil {
		return [3]int{}, err
	}
	if len(vals) != 3 {
		return [3]int{}, fmt.Errorf("expected 3 step counts, got %d", len(vals))
	}
	return [3]int{vals[0], vals[1], vals[2]}, nil
}

// parseVec3 parses "x,y,z"; missing trailing components are zero.
func parseVec3(s string) (r3.Vec, error) {
	vals, err := parseCSVFloatSlice(s)
	if err != nil {
		return r3.Vec{}, err
	}
	if len(vals) > 3 {
		return r3.Vec{}, fmt.Errorf("expected at most 3 components, got %d", len(vals))
	}
	var v [3]float64
	copy(v[:], vals)
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
}

// poseFlags describe a platform pose on the command line.
type poseFlags struct {
	position string
	rotation string
	euler    string
	sequence string
}

func (f *poseFlags) register(cmd *cobra.Command, prefix, what string) {
	fs := cmd.Flags()
	fs.StringVar(&f.position, prefix+"position", "", what+" position x,y,z (m)")
	fs.StringVar(&f.rotation, prefix+"rotation", "", what+" rotation vector rx,ry,rz (rad)")
	fs.StringVar(&f.euler, prefix+"euler", "", what+" Euler angles a,b,c (rad)")
	fs.StringVar(&f.sequence, prefix+"sequence", string(pose.DefaultSequence), "Euler sequence, lowercase extrinsic or uppercase intrinsic")
}

func (f *poseFlags) set() bool { return f.position != "" || f.rotation != "" || f.euler != "" }

func (f *poseFlags) pose() (pose.Pose, error) {
	pos, err := parseVec3(f.position)
	if err != nil {
		return pose.Pose{}, fmt.Errorf("position: %w", err)
	}
	var opts []pose.Option
	switch {
	case f.rotation != "" && f.euler != "":
		return pose.Pose{}, fmt.Errorf("give either a rotation vector or Euler angles, not both")
	case f.rotation != "":
		rv, err := parseVec3(f.rotation)
		if err != nil {
			return pose.Pose{}, fmt.Errorf("rotation: %w", err)
		}
		opts = append(opts, pose.WithRotationVector(rv))
	case f.euler != "":
		e, err := parseVec3(f.euler)
		if err != nil {
			return pose.Pose{}, fmt.Errorf("euler: %w", err)
		}
		opts = append(opts, pose.WithEuler(pose.Sequence(f.sequence), [3]float64{e.X, e.Y, e.Z}))
	}
	opts = append(opts, pose.WithSequence(pose.Sequence(f.sequence)))
	return pose.New(pos, opts...)
}

// poseJSON is the printed form of a pose.
type poseJSON struct {
	Position       [3]float64 `json:"position"`
	Quaternion     [4]float64 `json:"quaternion"`
	RotationVector [3]float64 `json:"rotation_vector"`
	Euler          [3]float64 `json:"euler"`
	Sequence       string     `json:"sequence"`
}

func toPoseJSON(p pose.Pose) poseJSON {
	pos, q, rv := p.Position(), p.Quaternion(), p.RotationVector()
	return poseJSON{
		Position:       [3]float64{pos.X, pos.Y, pos.Z},
		Quaternion:     [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
		RotationVector: [3]float64{rv.X, rv.Y, rv.Z},
		Euler:          p.Euler(),
		Sequence:       string(p.Sequence()),
	}
}
