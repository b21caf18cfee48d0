package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/report"
	"github.com/banshee-data/cdpr/internal/robot"
	"github.com/banshee-data/cdpr/internal/structure"
)

type chainJSON struct {
	Cable          int        `json:"cable"`
	FrameAnchor    int        `json:"frame_anchor"`
	PlatformAnchor int        `json:"platform_anchor"`
	Length         float64    `json:"length"`
	Direction      []float64  `json:"direction"`
	FreeLength     float64    `json:"free_length"`
	ExitPoint      [3]float64 `json:"exit_point"`
	Swivel         *float64   `json:"swivel,omitempty"`
	Wrap           *float64   `json:"wrap,omitempty"`
}

type backwardJSON struct {
	Platform  int         `json:"platform"`
	Algorithm string      `json:"algorithm"`
	Pattern   string      `json:"pattern"`
	Pose      poseJSON    `json:"pose"`
	Chains    []chainJSON `json:"chains"`
	Structure [][]float64 `json:"structure_matrix,omitempty"`
}

func toBackwardJSON(m robot.Model, res *kinematics.Result, withStructure bool) (backwardJSON, error) {
	out := backwardJSON{
		Platform:  res.Platform(),
		Algorithm: res.Algorithm(),
		Pattern:   res.Pattern().String(),
		Pose:      toPoseJSON(res.Pose()),
	}
	lengths, swivel, wrap := res.Lengths(), res.Swivel(), res.Wrap()
	for i, c := range res.Chains() {
		exit := res.ExitPoint(i)
		cj := chainJSON{
			Cable:          c.Cable,
			FrameAnchor:    c.FrameAnchor,
			PlatformAnchor: c.PlatformAnchor,
			Length:         lengths[i],
			Direction:      res.Direction(i),
			FreeLength:     res.FreeLength(i),
			ExitPoint:      [3]float64{exit.X, exit.Y, exit.Z},
		}
		if res.HasPulleys() {
			cj.Swivel, cj.Wrap = &swivel[i], &wrap[i]
		}
		out.Chains = append(out.Chains, cj)
	}
	if withStructure {
		a, err := structure.FromResult(m, res)
		if err != nil {
			return out, err
		}
		r, _ := a.Dims()
		for k := range r {
			row := make([]float64, len(lengths))
			for j := range row {
				row[j] = a.At(k, j)
			}
			out.Structure = append(out.Structure, row)
		}
	}
	return out, nil
}

func newBackwardCmd(a *app) *cobra.Command {
	var (
		pf            poseFlags
		algorithm     string
		withStructure bool
		plotPath      string
		plane         string
	)
	cmd := &cobra.Command{
		Use:   "backward ROBOT",
		Short: "Cable lengths and directions for a platform pose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := robot.LoadFile(args[0])
			if err != nil {
				return err
			}
			alg, err := kinematics.ByName(algorithm)
			if err != nil {
				return err
			}
			p := m.Platform(0).Pose
			if pf.set() {
				if p, err = pf.pose(); err != nil {
					return err
				}
			}
			poses := make([]pose.Pose, m.NumPlatforms())
			for i := range poses {
				poses[i] = m.Platform(i).Pose
			}
			poses[0] = p

			results, err := alg.BackwardAll(m, poses)
			if err != nil {
				return err
			}
			a.log.Debug("backward kinematics", "robot", m.Name(), "algorithm", alg.Name(), "platforms", len(results))

			out := make([]backwardJSON, len(results))
			for i, res := range results {
				if out[i], err = toBackwardJSON(m, res, withStructure); err != nil {
					return err
				}
			}
			if plotPath != "" {
				pl, err := report.ParsePlane(plane)
				if err != nil {
					return err
				}
				plt, err := report.PlotCableShapes(results, pl, a.solver.GetShapeArcPoints(), a.solver.GetShapeLinePoints())
				if err != nil {
					return err
				}
				if err := report.SavePNG(plt, plotPath, 6*vg.Inch, 6*vg.Inch); err != nil {
					return err
				}
				a.log.Info("wrote cable shape plot", "path", plotPath)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	pf.register(cmd, "", "platform 0")
	cmd.Flags().StringVar(&algorithm, "algorithm", kinematics.StandardName, "kinematics algorithm (standard or pulley)")
	cmd.Flags().BoolVar(&withStructure, "structure", false, "include the structure matrix")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write a PNG of the cable shapes")
	cmd.Flags().StringVar(&plane, "plane", "xy", "projection plane for --plot (xy, xz, yz)")
	return cmd
}

func newForwardCmd(a *app) *cobra.Command {
	var (
		lengths   string
		algorithm string
		seed      poseFlags
	)
	cmd := &cobra.Command{
		Use:   "forward ROBOT",
		Short: "Platform pose for given cable lengths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := robot.LoadFile(args[0])
			if err != nil {
				return err
			}
			if m.NumPlatforms() != 1 {
				return fmt.Errorf("forward command supports single-platform robots, %s has %d", m.Name(), m.NumPlatforms())
			}
			alg, err := kinematics.ByName(algorithm)
			if err != nil {
				return err
			}
			l, err := parseCSVFloatSlice(lengths)
			if err != nil {
				return fmt.Errorf("lengths: %w", err)
			}
			opts := []kinematics.ForwardOption{kinematics.WithSettings(a.solver.ForwardSettings())}
			if seed.set() {
				s, err := seed.pose()
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				opts = append(opts, kinematics.WithSeed(s))
			}
			p, err := alg.Forward(cmd.Context(), m, l, opts...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), toPoseJSON(p))
		},
	}
	cmd.Flags().StringVar(&lengths, "lengths", "", "cable lengths l1,l2,... in chain order (m)")
	cmd.Flags().StringVar(&algorithm, "algorithm", kinematics.StandardName, "kinematics algorithm (standard or pulley)")
	seed.register(cmd, "seed-", "initial guess")
	_ = cmd.MarkFlagRequired("lengths")
	return cmd
}
