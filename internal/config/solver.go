package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/cdpr/internal/numeric"
)

// DefaultConfigPath is the path to the canonical solver defaults file.
const DefaultConfigPath = "config/solver.defaults.json"

// SolverConfig holds the numerical budgets of the kinematics and workspace
// solvers. Every field is optional; the Get* methods supply defaults for
// fields left out, so partial files are safe.
type SolverConfig struct {
	// Forward kinematics (Levenberg–Marquardt)
	ForwardTolerance     *float64 `json:"forward_tolerance,omitempty"`
	ForwardMaxIterations *int     `json:"forward_max_iterations,omitempty"`
	ForwardDamping       *float64 `json:"forward_damping,omitempty"`

	// Singularity criterion
	RankTolerance *float64 `json:"rank_tolerance,omitempty"`

	// Hull calculator
	HullTolerance        *float64 `json:"hull_tolerance,omitempty"`
	HullMaxIterations    *int     `json:"hull_max_iterations,omitempty"`
	HullMaxDepth         *int     `json:"hull_max_depth,omitempty"`
	HullFeatureThreshold *float64 `json:"hull_feature_threshold,omitempty"`
	HullMaxRadius        *float64 `json:"hull_max_radius,omitempty"`

	// Worker pool size; 0 means GOMAXPROCS.
	Workers *int `json:"workers,omitempty"`

	// Cable shape sampling
	ShapeArcPoints  *int `json:"shape_arc_points,omitempty"`
	ShapeLinePoints *int `json:"shape_line_points,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySolverConfig returns a SolverConfig with all fields unset.
func EmptySolverConfig() *SolverConfig {
	return &SolverConfig{}
}

// DefaultSolverConfig returns a SolverConfig with every field set to its
// default.
func DefaultSolverConfig() *SolverConfig {
	c := EmptySolverConfig()
	return &SolverConfig{
		ForwardTolerance:     ptrFloat64(c.GetForwardTolerance()),
		ForwardMaxIterations: ptrInt(c.GetForwardMaxIterations()),
		ForwardDamping:       ptrFloat64(c.GetForwardDamping()),
		RankTolerance:        ptrFloat64(c.GetRankTolerance()),
		HullTolerance:        ptrFloat64(c.GetHullTolerance()),
		HullMaxIterations:    ptrInt(c.GetHullMaxIterations()),
		HullMaxDepth:         ptrInt(c.GetHullMaxDepth()),
		HullFeatureThreshold: ptrFloat64(c.GetHullFeatureThreshold()),
		HullMaxRadius:        ptrFloat64(c.GetHullMaxRadius()),
		Workers:              ptrInt(0),
		ShapeArcPoints:       ptrInt(c.GetShapeArcPoints()),
		ShapeLinePoints:      ptrInt(c.GetShapeLinePoints()),
	}
}

// LoadSolverConfig loads a SolverConfig from a JSON file.
// The file must have a .json extension and be under 1 MiB.
func LoadSolverConfig(path string) (*SolverConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySolverConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *SolverConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSolverConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *SolverConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"forward_tolerance", c.ForwardTolerance},
		{"forward_damping", c.ForwardDamping},
		{"hull_tolerance", c.HullTolerance},
		{"hull_feature_threshold", c.HullFeatureThreshold},
		{"hull_max_radius", c.HullMaxRadius},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0) {
			return numeric.Invalidf("%s must be positive, got %g", p.name, *p.v)
		}
	}
	if c.RankTolerance != nil && !(*c.RankTolerance > 0 && *c.RankTolerance < 1) {
		return numeric.Invalidf("rank_tolerance must be between 0 and 1, got %g", *c.RankTolerance)
	}

	counts := []struct {
		name string
		v    *int
		min  int
	}{
		{"forward_max_iterations", c.ForwardMaxIterations, 1},
		{"hull_max_iterations", c.HullMaxIterations, 1},
		{"hull_max_depth", c.HullMaxDepth, 0},
		{"workers", c.Workers, 0},
		{"shape_arc_points", c.ShapeArcPoints, 1},
		{"shape_line_points", c.ShapeLinePoints, 1},
	}
	for _, n := range counts {
		if n.v != nil && *n.v < n.min {
			return numeric.Invalidf("%s must be at least %d, got %d", n.name, n.min, *n.v)
		}
	}
	if c.HullMaxRadius != nil && *c.HullMaxRadius <= c.GetHullTolerance() {
		return numeric.Invalidf("hull_max_radius %g must exceed hull_tolerance %g", *c.HullMaxRadius, c.GetHullTolerance())
	}
	return nil
}

// ForwardSettings returns the least-squares settings for forward kinematics.
func (c *SolverConfig) ForwardSettings() numeric.LMSettings {
	s := numeric.DefaultLMSettings()
	s.Tolerance = c.GetForwardTolerance()
	s.MaxIterations = c.GetForwardMaxIterations()
	s.Damping = c.GetForwardDamping()
	return s
}

// GetForwardTolerance returns the forward_tolerance value or the default.
func (c *SolverConfig) GetForwardTolerance() float64 {
	if c.ForwardTolerance == nil {
		return 1e-10 // default
	}
	return *c.ForwardTolerance
}

// GetForwardMaxIterations returns the forward_max_iterations value or the default.
func (c *SolverConfig) GetForwardMaxIterations() int {
	if c.ForwardMaxIterations == nil {
		return 100 // default
	}
	return *c.ForwardMaxIterations
}

// GetForwardDamping returns the forward_damping value or the default.
func (c *SolverConfig) GetForwardDamping() float64 {
	if c.ForwardDamping == nil {
		return 1e-3 // default
	}
	return *c.ForwardDamping
}

// GetRankTolerance returns the rank_tolerance value or the default.
func (c *SolverConfig) GetRankTolerance() float64 {
	if c.RankTolerance == nil {
		return 1e-9 // default
	}
	return *c.RankTolerance
}

// GetHullTolerance returns the hull_tolerance value or the default.
func (c *SolverConfig) GetHullTolerance() float64 {
	if c.HullTolerance == nil {
		return 1e-3 // default
	}
	return *c.HullTolerance
}

// GetHullMaxIterations returns the hull_max_iterations value or the default.
func (c *SolverConfig) GetHullMaxIterations() int {
	if c.HullMaxIterations == nil {
		return 40 // default
	}
	return *c.HullMaxIterations
}

// GetHullMaxDepth returns the hull_max_depth value or the default.
func (c *SolverConfig) GetHullMaxDepth() int {
	if c.HullMaxDepth == nil {
		return 3 // default
	}
	return *c.HullMaxDepth
}

// GetHullFeatureThreshold returns the hull_feature_threshold value or the default.
func (c *SolverConfig) GetHullFeatureThreshold() float64 {
	if c.HullFeatureThreshold == nil {
		return 0.05 // default
	}
	return *c.HullFeatureThreshold
}

// GetHullMaxRadius returns the hull_max_radius value or the default.
func (c *SolverConfig) GetHullMaxRadius() float64 {
	if c.HullMaxRadius == nil {
		return 10 // default
	}
	return *c.HullMaxRadius
}

// GetWorkers returns the worker count, resolving 0 to GOMAXPROCS.
func (c *SolverConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetShapeArcPoints returns the shape_arc_points value or the default.
func (c *SolverConfig) GetShapeArcPoints() int {
	if c.ShapeArcPoints == nil {
		return 16 // default
	}
	return *c.ShapeArcPoints
}

// GetShapeLinePoints returns the shape_line_points value or the default.
func (c *SolverConfig) GetShapeLinePoints() int {
	if c.ShapeLinePoints == nil {
		return 2 // default
	}
	return *c.ShapeLinePoints
}
