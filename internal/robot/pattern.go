package robot

import (
	"strings"

	"github.com/banshee-data/cdpr/internal/numeric"
)

// MotionPattern classifies a platform by its translational and rotational
// degrees of freedom. The set is closed; every switch over it is exhaustive.
type MotionPattern int

const (
	Pattern1T MotionPattern = iota + 1
	Pattern2T
	Pattern3T
	Pattern1R2T
	Pattern2R3T
	Pattern3R3T
)

// MotionPatterns lists every valid pattern.
var MotionPatterns = []MotionPattern{Pattern1T, Pattern2T, Pattern3T, Pattern1R2T, Pattern2R3T, Pattern3R3T}

// TranslationalDOF returns the number of translational degrees of freedom.
func (m MotionPattern) TranslationalDOF() int {
	switch m {
	case Pattern1T:
		return 1
	case Pattern2T, Pattern1R2T:
		return 2
	case Pattern3T, Pattern2R3T, Pattern3R3T:
		return 3
	}
	panic("robot: unknown motion pattern " + m.String())
}

// RotationalDOF returns the number of rotational degrees of freedom.
func (m MotionPattern) RotationalDOF() int {
	return len(m.RotationAxes())
}

// RotationAxes returns the world axes (0=x, 1=y, 2=z) about which the
// platform may rotate. A planar 1R2T platform turns about z; a 2R3T platform
// tilts about x and y.
func (m MotionPattern) RotationAxes() []int {
	switch m {
	case Pattern1T, Pattern2T, Pattern3T:
		return nil
	case Pattern1R2T:
		return []int{2}
	case Pattern2R3T:
		return []int{0, 1}
	case Pattern3R3T:
		return []int{0, 1, 2}
	}
	panic("robot: unknown motion pattern " + m.String())
}

// DOF returns the total degrees of freedom, i.e. the wrench dimension.
func (m MotionPattern) DOF() int {
	return m.TranslationalDOF() + m.RotationalDOF()
}

// Valid reports whether m is one of the enumerated patterns.
func (m MotionPattern) Valid() bool {
	return m >= Pattern1T && m <= Pattern3R3T
}

func (m MotionPattern) String() string {
	switch m {
	case Pattern1T:
		return "1T"
	case Pattern2T:
		return "2T"
	case Pattern3T:
		return "3T"
	case Pattern1R2T:
		return "1R2T"
	case Pattern2R3T:
		return "2R3T"
	case Pattern3R3T:
		return "3R3T"
	default:
		return "MotionPattern(invalid)"
	}
}

// ParseMotionPattern parses names such as "3R3T" (case-insensitive).
func ParseMotionPattern(s string) (MotionPattern, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, m := range MotionPatterns {
		if m.String() == want {
			return m, nil
		}
	}
	return 0, numeric.Invalidf("unknown motion pattern %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m MotionPattern) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, numeric.Invalidf("invalid motion pattern %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MotionPattern) UnmarshalText(b []byte) error {
	p, err := ParseMotionPattern(string(b))
	if err != nil {
		return err
	}
	*m = p
	return nil
}
