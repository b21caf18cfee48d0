package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cdpr/internal/monitoring"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Grid classifies every point of a Cartesian sample grid over the
// archetype's coordinates.
type Grid struct {
	Archetype Archetype
	Criterion Criterion
	// Axes holds one sampled range per archetype coordinate.
	Axes []Axis
	// Workers bounds the goroutines used; zero means GOMAXPROCS.
	Workers int
}

// GridSample is one classified grid point.
type GridSample struct {
	Index  int       `json:"index"`
	Coord  []float64 `json:"coord"`
	Inside bool      `json:"inside"`
	Margin float64   `json:"margin"`
}

// MarshalJSON encodes a non-finite margin as null.
func (s GridSample) MarshalJSON() ([]byte, error) {
	type plain GridSample
	out := struct {
		plain
		Margin *float64 `json:"margin"`
	}{plain: plain(s)}
	if !isInf(s.Margin) {
		out.Margin = &s.Margin
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null margin as the outside sentinel -Inf, or +Inf
// for an inside sample.
func (s *GridSample) UnmarshalJSON(data []byte) error {
	type plain GridSample
	in := struct {
		*plain
		Margin *float64 `json:"margin"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.Margin != nil:
		s.Margin = *in.Margin
	case s.Inside:
		s.Margin = math.Inf(1)
	default:
		s.Margin = math.Inf(-1)
	}
	return nil
}

// GridResult is the classification of a full grid, samples in index order.
type GridResult struct {
	Archetype string       `json:"archetype"`
	Criterion string       `json:"criterion"`
	Axes      []Axis       `json:"axes"`
	Samples   []GridSample `json:"samples"`
}

func (g Grid) validate() (int, error) {
	if g.Archetype == nil || g.Criterion == nil {
		return 0, numeric.Invalidf("grid needs an archetype and a criterion")
	}
	if err := g.Archetype.Validate(); err != nil {
		return 0, fmt.Errorf("%s archetype: %w", g.Archetype.Name(), err)
	}
	if len(g.Axes) != g.Archetype.Dim() {
		return 0, numeric.Invalidf("%s archetype needs %d axes, got %d", g.Archetype.Name(), g.Archetype.Dim(), len(g.Axes))
	}
	return sampleCount(g.Axes)
}

// Evaluate classifies every sample. Samples are independent; the first
// criterion error aborts the run.
func (g Grid) Evaluate(ctx context.Context, m robot.Model) (*GridResult, error) {
	n, err := g.validate()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	monitoring.Logf("grid: %s/%s over %d samples", g.Archetype.Name(), g.Criterion.Name(), n)

	samples := make([]GridSample, n)
	err = forEach(ctx, n, g.Workers, func(_ context.Context, i int) error {
		coord := make([]float64, len(g.Axes))
		sampleCoord(g.Axes, i, coord)
		v, err := Classify(m, g.Archetype, g.Criterion, coord)
		if err != nil {
			return fmt.Errorf("sample %d at %v: %w", i, coord, err)
		}
		samples[i] = GridSample{Index: i, Coord: coord, Inside: v.Pass, Margin: v.Margin}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &GridResult{
		Archetype: g.Archetype.Name(),
		Criterion: g.Criterion.Name(),
		Axes:      slices.Clone(g.Axes),
		Samples:   samples,
	}
	monitoring.Logf("grid: %d/%d inside in %v", len(res.Inside()), n, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// Inside returns the coordinates classified inside, in index order.
func (r *GridResult) Inside() [][]float64 { return r.filter(true) }

// Outside returns the coordinates classified outside, in index order.
func (r *GridResult) Outside() [][]float64 { return r.filter(false) }

func (r *GridResult) filter(inside bool) [][]float64 {
	var out [][]float64
	for _, s := range r.Samples {
		if s.Inside == inside {
			out = append(out, s.Coord)
		}
	}
	return out
}

// GridSummary condenses a grid result.
type GridSummary struct {
	Samples     int     `json:"samples"`
	Inside      int     `json:"inside"`
	InsideRatio float64 `json:"inside_ratio"`
	// MarginMean and MarginStdDev cover the finite margins of inside samples.
	MarginMean   float64 `json:"margin_mean"`
	MarginStdDev float64 `json:"margin_stddev"`
}

// Summary computes the inside ratio and margin statistics.
func (r *GridResult) Summary() GridSummary {
	s := GridSummary{Samples: len(r.Samples)}
	var margins []float64
	for _, smp := range r.Samples {
		if !smp.Inside {
			continue
		}
		s.Inside++
		if !isInf(smp.Margin) {
			margins = append(margins, smp.Margin)
		}
	}
	if s.Samples > 0 {
		s.InsideRatio = float64(s.Inside) / float64(s.Samples)
	}
	if len(margins) > 0 {
		s.MarginMean, s.MarginStdDev = stat.MeanStdDev(margins, nil)
		if len(margins) == 1 {
			s.MarginStdDev = 0
		}
	}
	return s
}
