package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cdpr/internal/forcedist"
	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/report"
	"github.com/banshee-data/cdpr/internal/robot"
	"github.com/banshee-data/cdpr/internal/workspace"
)

// workspaceFlags select the archetype and criterion of a workspace run.
type workspaceFlags struct {
	archetype string
	dims      int
	fixed     poseFlags

	sweepMin   string
	sweepMax   string
	sweepSteps string

	criterion  string
	algorithm  string
	minLength  float64
	maxLength  float64
	minTension float64
	maxTension float64
	safety     float64
	wrench     string

	save bool
}

func (f *workspaceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.archetype, "archetype", "translation", "translation, orientation, dexterous or maximum")
	fs.IntVar(&f.dims, "dims", 0, "coordinates swept (0: the platform's translational or rotational DOF)")
	f.fixed.register(cmd, "fixed-", "fixed")
	fs.StringVar(&f.sweepMin, "sweep-min", "0,0,0", "orientation sweep lower Euler angles (rad)")
	fs.StringVar(&f.sweepMax, "sweep-max", "0,0,0", "orientation sweep upper Euler angles (rad)")
	fs.StringVar(&f.sweepSteps, "sweep-steps", "1,1,1", "orientation sweep samples per angle")

	fs.StringVar(&f.criterion, "criterion", "cable-length", "cable-length, singularities or wrench-feasible")
	fs.StringVar(&f.algorithm, "algorithm", kinematics.StandardName, "kinematics algorithm (standard or pulley)")
	fs.Float64Var(&f.minLength, "min-length", 0, "minimum cable length (m)")
	fs.Float64Var(&f.maxLength, "max-length", 10, "maximum cable length (m)")
	fs.Float64Var(&f.minTension, "min-tension", 1, "minimum cable tension (N)")
	fs.Float64Var(&f.maxTension, "max-tension", 0, "maximum cable tension (N); 0 rates cables by breaking load")
	fs.Float64Var(&f.safety, "safety", 3, "breaking load safety factor")
	fs.StringVar(&f.wrench, "wrench", "", "external wrench on the platform; default is gravity")
	fs.BoolVar(&f.save, "save", false, "store the result in the run store")
}

func (f *workspaceFlags) orientationSweep() (workspace.OrientationSweep, error) {
	lo, err := parseVec3(f.sweepMin)
	if err != nil {
		return workspace.OrientationSweep{}, fmt.Errorf("sweep-min: %w", err)
	}
	hi, err := parseVec3(f.sweepMax)
	if err != nil {
		return workspace.OrientationSweep{}, fmt.Errorf("sweep-max: %w", err)
	}
	steps, err := parseSteps3(f.sweepSteps)
	if err != nil {
		return workspace.OrientationSweep{}, fmt.Errorf("sweep-steps: %w", err)
	}
	return workspace.OrientationSweep{
		Sequence: pose.Sequence(f.fixed.sequence),
		Min:      [3]float64{lo.X, lo.Y, lo.Z},
		Max:      [3]float64{hi.X, hi.Y, hi.Z},
		Steps:    steps,
	}, nil
}

func (f *workspaceFlags) buildArchetype(m robot.Model) (workspace.Archetype, error) {
	pattern := m.Platform(0).Pattern
	fixed, err := f.fixed.pose()
	if err != nil {
		return nil, fmt.Errorf("fixed pose: %w", err)
	}
	dims := f.dims
	if dims == 0 {
		dims = pattern.TranslationalDOF()
	}
	var a workspace.Archetype
	switch f.archetype {
	case "translation":
		a = workspace.Translation{Dims: dims, Orientation: fixed.Quaternion()}
	case "orientation":
		angles := f.dims
		if angles == 0 {
			angles = max(pattern.RotationalDOF(), 1)
		}
		a = workspace.Orientation{Position: fixed.Position(), Sequence: pose.Sequence(f.fixed.sequence), Angles: angles}
	case "dexterous", "maximum":
		sweep, err := f.orientationSweep()
		if err != nil {
			return nil, err
		}
		if f.archetype == "dexterous" {
			a = workspace.Dexterous{Dims: dims, Sweep: sweep}
		} else {
			a = workspace.Maximum{Dims: dims, Sweep: sweep}
		}
	default:
		return nil, fmt.Errorf("unknown archetype %q", f.archetype)
	}
	return a, a.Validate()
}

func (f *workspaceFlags) buildCriterion(a *app, m robot.Model) (workspace.Criterion, error) {
	alg, err := kinematics.ByName(f.algorithm)
	if err != nil {
		return nil, err
	}
	switch f.criterion {
	case "cable-length":
		return workspace.NewCableLength(alg, f.minLength, f.maxLength)
	case "singularities":
		return workspace.NewSingularities(alg, a.solver.GetRankTolerance())
	case "wrench-feasible":
		external := workspace.GravityWrench(m.Platform(0), r3.Vec{Z: -workspace.StandardGravity})
		if f.wrench != "" {
			if external, err = parseCSVFloatSlice(f.wrench); err != nil {
				return nil, fmt.Errorf("wrench: %w", err)
			}
		}
		bounds := workspace.CableRatedBounds(f.minTension, f.safety, 0)
		if f.maxTension > 0 {
			bounds = workspace.UniformBounds(f.minTension, f.maxTension)
		}
		return workspace.NewWrenchFeasible(alg, forcedist.NewLinearProgram(), external, bounds)
	}
	return nil, fmt.Errorf("unknown criterion %q", f.criterion)
}

func newGridCmd(a *app) *cobra.Command {
	var (
		wf       workspaceFlags
		axes     []string
		pngPath  string
		htmlPath string
		x, y     int
	)
	cmd := &cobra.Command{
		Use:   "grid ROBOT",
		Short: "Classify a sample grid against a workspace criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := robot.LoadFile(args[0])
			if err != nil {
				return err
			}
			arch, err := wf.buildArchetype(m)
			if err != nil {
				return err
			}
			crit, err := wf.buildCriterion(a, m)
			if err != nil {
				return err
			}
			g := workspace.Grid{Archetype: arch, Criterion: crit, Workers: a.solver.GetWorkers()}
			for _, s := range axes {
				ax, err := workspace.ParseAxis(s)
				if err != nil {
					return err
				}
				g.Axes = append(g.Axes, ax)
			}

			start := time.Now()
			res, err := g.Evaluate(cmd.Context(), m)
			if err != nil {
				return err
			}
			took := time.Since(start)
			sum := res.Summary()
			a.log.Info("grid evaluated", "robot", m.Name(), "samples", sum.Samples, "inside", sum.Inside, "took", took.Round(time.Millisecond))

			if pngPath != "" {
				p, err := report.PlotGrid(res, x, y)
				if err != nil {
					return err
				}
				if err := report.SavePNG(p, pngPath, 6*vg.Inch, 6*vg.Inch); err != nil {
					return err
				}
			}
			if htmlPath != "" {
				if err := writeHTML(htmlPath, func(w io.Writer) error { return report.GridHTML(w, res, x, y) }); err != nil {
					return err
				}
			}
			if wf.save {
				d, err := a.openDB()
				if err != nil {
					return err
				}
				defer d.Close()
				run, err := d.SaveGridRun(cmd.Context(), m.Name(), res, took)
				if err != nil {
					return err
				}
				a.log.Info("saved run", "id", run.ID)
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
	wf.register(cmd)
	cmd.Flags().StringArrayVar(&axes, "axis", nil, "sample range min:max:steps, once per coordinate")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG scatter of the classification")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an interactive HTML chart")
	cmd.Flags().IntVar(&x, "x", 0, "coordinate on the horizontal axis of plots")
	cmd.Flags().IntVar(&y, "y", 1, "coordinate on the vertical axis of plots")
	_ = cmd.MarkFlagRequired("axis")
	return cmd
}

func newHullCmd(a *app) *cobra.Command {
	var (
		wf       workspaceFlags
		center   string
		htmlPath string
	)
	cmd := &cobra.Command{
		Use:   "hull ROBOT",
		Short: "Search the workspace boundary from an interior point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := robot.LoadFile(args[0])
			if err != nil {
				return err
			}
			arch, err := wf.buildArchetype(m)
			if err != nil {
				return err
			}
			crit, err := wf.buildCriterion(a, m)
			if err != nil {
				return err
			}
			c, err := parseCSVFloatSlice(center)
			if err != nil {
				return fmt.Errorf("center: %w", err)
			}
			if c == nil {
				c = make([]float64, arch.Dim())
			}
			h := workspace.Hull{
				Archetype:        arch,
				Criterion:        crit,
				Center:           c,
				Tolerance:        a.solver.GetHullTolerance(),
				MaxIterations:    a.solver.GetHullMaxIterations(),
				MaxDepth:         a.solver.GetHullMaxDepth(),
				FeatureThreshold: a.solver.GetHullFeatureThreshold(),
				MaxRadius:        a.solver.GetHullMaxRadius(),
				Workers:          a.solver.GetWorkers(),
			}

			start := time.Now()
			res, err := h.Evaluate(cmd.Context(), m)
			if err != nil {
				return err
			}
			took := time.Since(start)
			sum := res.Summary()
			a.log.Info("hull evaluated", "robot", m.Name(), "rays", sum.Rays, "faces", sum.Faces, "took", took.Round(time.Millisecond))
			if sum.LowConfidence > 0 {
				a.log.Warn("hull has low-confidence rays", "count", sum.LowConfidence)
			}

			if htmlPath != "" {
				if err := writeHTML(htmlPath, func(w io.Writer) error { return report.HullHTML(w, res) }); err != nil {
					return err
				}
			}
			if wf.save {
				d, err := a.openDB()
				if err != nil {
					return err
				}
				defer d.Close()
				run, err := d.SaveHullRun(cmd.Context(), m.Name(), res, took)
				if err != nil {
					return err
				}
				a.log.Info("saved run", "id", run.ID)
			}
			return writeJSON(cmd.OutOrStdout(), sum)
		},
	}
	wf.register(cmd)
	cmd.Flags().StringVar(&center, "center", "", "interior starting coordinate (default origin)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an interactive HTML chart")
	return cmd
}
