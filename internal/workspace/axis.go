package workspace

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/cdpr/internal/numeric"
)

// MaxGridSamples caps the Cartesian product of a grid.
const MaxGridSamples = 1 << 24

// Axis is a sampled coordinate range: Steps evenly spaced values from Min to
// Max inclusive. A single step samples Min.
type Axis struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Steps int     `json:"steps"`
}

// ParseAxis parses a "min:max:steps" string.
func ParseAxis(s string) (Axis, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Axis{}, numeric.Invalidf("invalid axis %q: expected min:max:steps", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Axis{}, fmt.Errorf("%w: invalid min value %q: %v", numeric.ErrInvalid, parts[0], err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Axis{}, fmt.Errorf("%w: invalid max value %q: %v", numeric.ErrInvalid, parts[1], err)
	}
	steps, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return Axis{}, fmt.Errorf("%w: invalid steps value %q: %v", numeric.ErrInvalid, parts[2], err)
	}
	a := Axis{Min: lo, Max: hi, Steps: steps}
	return a, a.Validate()
}

// Validate checks that the axis is finite, ordered and sampled at least once.
func (a Axis) Validate() error {
	if math.IsNaN(a.Min) || math.IsNaN(a.Max) || math.IsInf(a.Min, 0) || math.IsInf(a.Max, 0) {
		return numeric.Invalidf("axis bounds must be finite, got [%g, %g]", a.Min, a.Max)
	}
	if a.Max < a.Min {
		return numeric.Invalidf("axis max %g is below min %g", a.Max, a.Min)
	}
	if a.Steps < 1 {
		return numeric.Invalidf("axis needs at least one step, got %d", a.Steps)
	}
	return nil
}

// Value returns sample k of the axis.
func (a Axis) Value(k int) float64 {
	if a.Steps == 1 {
		return a.Min
	}
	if k == a.Steps-1 {
		return a.Max
	}
	return a.Min + (a.Max-a.Min)*float64(k)/float64(a.Steps-1)
}

func (a Axis) String() string {
	return fmt.Sprintf("%g:%g:%d", a.Min, a.Max, a.Steps)
}

// sampleCount returns the size of the Cartesian product of axes.
func sampleCount(axes []Axis) (int, error) {
	total := 1
	for i, a := range axes {
		if err := a.Validate(); err != nil {
			return 0, fmt.Errorf("axis %d: %w", i, err)
		}
		total *= a.Steps
		if total > MaxGridSamples {
			return 0, numeric.Invalidf("grid would exceed %d samples", MaxGridSamples)
		}
	}
	return total, nil
}

// sampleCoord decodes sample index i into dst, the last axis varying
// fastest.
func sampleCoord(axes []Axis, i int, dst []float64) {
	for d := len(axes) - 1; d >= 0; d-- {
		n := axes[d].Steps
		dst[d] = axes[d].Value(i % n)
		i /= n
	}
}
