package workspace

import (
	"math"

	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Classify decides coordinate coord of archetype a under criterion c. For
// CoverAll the verdict passes when every pose passes and carries the
// smallest margin; for CoverAny it passes when one pose passes and carries
// the largest margin. Evaluation stops as soon as the outcome is decided.
func Classify(m robot.Model, a Archetype, c Criterion, coord []float64) (Verdict, error) {
	if len(coord) != a.Dim() {
		return Verdict{}, numeric.Invalidf("%s coordinate needs %d components, got %d", a.Name(), a.Dim(), len(coord))
	}
	all := a.Coverage() == CoverAll
	out := Verdict{Pass: all, Margin: math.Inf(-1)}
	if all {
		out.Margin = math.Inf(1)
	}
	n := 0
	for p := range a.Poses(coord) {
		n++
		v, err := c.Evaluate(m, p)
		if err != nil {
			return Verdict{}, err
		}
		if all {
			out.Margin = min(out.Margin, v.Margin)
			if !v.Pass {
				out.Pass = false
				break
			}
			continue
		}
		out.Margin = max(out.Margin, v.Margin)
		if v.Pass {
			out.Pass = true
			break
		}
	}
	if n == 0 {
		return Verdict{}, numeric.Invalidf("%s archetype produced no poses", a.Name())
	}
	return out, nil
}

func isInf(v float64) bool { return math.IsInf(v, 0) || math.IsNaN(v) }
