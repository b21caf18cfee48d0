package workspace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cdpr/internal/monitoring"
	"github.com/banshee-data/cdpr/internal/numeric"
	"github.com/banshee-data/cdpr/internal/robot"
)

// Hull searches the workspace boundary along rays cast from a centre known
// to be inside, refining the ray set where neighbouring boundary distances
// differ, and meshes the boundary points.
type Hull struct {
	Archetype Archetype
	Criterion Criterion
	// Center is the interior start point in archetype coordinates.
	Center []float64
	// Tolerance is the bracket width at which a ray search stops.
	Tolerance float64
	// MaxIterations bounds the bisection steps of one ray.
	MaxIterations int
	// MaxDepth bounds the refinement rounds of the ray set.
	MaxDepth int
	// FeatureThreshold is the relative radius difference between
	// neighbouring rays above which the pair is refined.
	FeatureThreshold float64
	// MaxRadius bounds the search distance along every ray.
	MaxRadius float64
	// Workers bounds the goroutines used; zero means GOMAXPROCS.
	Workers int
}

// RayStatus tells how a ray search ended.
type RayStatus int

const (
	// RayConverged located the boundary within the tolerance.
	RayConverged RayStatus = iota
	// RayNotConverged ran out of iterations; the last inside bound is used.
	RayNotConverged
	// RayClipped stayed inside up to MaxRadius.
	RayClipped
	// RayFailed hit a criterion error; the last inside bound is used.
	RayFailed
)

func (s RayStatus) String() string {
	switch s {
	case RayConverged:
		return "converged"
	case RayNotConverged:
		return "not-converged"
	case RayClipped:
		return "clipped"
	case RayFailed:
		return "failed"
	}
	return fmt.Sprintf("RayStatus(%d)", int(s))
}

// Ray is the boundary estimate along one unit direction.
type Ray struct {
	Direction  []float64 `json:"direction"`
	Point      []float64 `json:"point"`
	Radius     float64   `json:"radius"`
	Iterations int       `json:"iterations"`
	Status     RayStatus `json:"status"`
	Err        string    `json:"error,omitempty"`
}

// LowConfidence reports whether the ray's boundary point is a best-effort
// estimate.
func (r Ray) LowConfidence() bool {
	return r.Status == RayNotConverged || r.Status == RayFailed
}

// HullResult is the boundary mesh. Vertices are the ray points; faces index
// rays and have Dim() vertices each (segments in 2-D, triangles in 3-D).
type HullResult struct {
	Archetype string    `json:"archetype"`
	Criterion string    `json:"criterion"`
	Center    []float64 `json:"center"`
	Rays      []Ray     `json:"rays"`
	Faces     [][]int   `json:"faces"`
}

// Dim is the coordinate dimension of the mesh.
func (r *HullResult) Dim() int { return len(r.Center) }

// Vertices returns the boundary points in ray order.
func (r *HullResult) Vertices() [][]float64 {
	out := make([][]float64, len(r.Rays))
	for i, ray := range r.Rays {
		out[i] = ray.Point
	}
	return out
}

// HullSummary condenses a hull result.
type HullSummary struct {
	Rays          int     `json:"rays"`
	Faces         int     `json:"faces"`
	LowConfidence int     `json:"low_confidence"`
	Clipped       int     `json:"clipped"`
	RadiusMean    float64 `json:"radius_mean"`
	RadiusStdDev  float64 `json:"radius_stddev"`
	RadiusMin     float64 `json:"radius_min"`
	RadiusMax     float64 `json:"radius_max"`
}

// Summary computes radius statistics and counts low-confidence rays.
func (r *HullResult) Summary() HullSummary {
	s := HullSummary{Rays: len(r.Rays), Faces: len(r.Faces)}
	if len(r.Rays) == 0 {
		return s
	}
	radii := make([]float64, len(r.Rays))
	for i, ray := range r.Rays {
		radii[i] = ray.Radius
		if ray.LowConfidence() {
			s.LowConfidence++
		}
		if ray.Status == RayClipped {
			s.Clipped++
		}
	}
	s.RadiusMean, s.RadiusStdDev = stat.MeanStdDev(radii, nil)
	if len(radii) == 1 {
		s.RadiusStdDev = 0
	}
	s.RadiusMin, s.RadiusMax = floats.Min(radii), floats.Max(radii)
	return s
}

func (h Hull) validate() error {
	if h.Archetype == nil || h.Criterion == nil {
		return numeric.Invalidf("hull needs an archetype and a criterion")
	}
	if err := h.Archetype.Validate(); err != nil {
		return fmt.Errorf("%s archetype: %w", h.Archetype.Name(), err)
	}
	dim := h.Archetype.Dim()
	if len(h.Center) != dim {
		return numeric.Invalidf("hull centre needs %d components, got %d", dim, len(h.Center))
	}
	for _, c := range h.Center {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return numeric.Invalidf("hull centre must be finite")
		}
	}
	switch {
	case !(h.Tolerance > 0):
		return numeric.Invalidf("hull tolerance must be positive, got %g", h.Tolerance)
	case h.MaxIterations < 1:
		return numeric.Invalidf("hull max iterations must be positive, got %d", h.MaxIterations)
	case h.MaxDepth < 0:
		return numeric.Invalidf("hull max depth must not be negative, got %d", h.MaxDepth)
	case !(h.FeatureThreshold > 0):
		return numeric.Invalidf("hull feature threshold must be positive, got %g", h.FeatureThreshold)
	case !(h.MaxRadius > h.Tolerance) || math.IsInf(h.MaxRadius, 0):
		return numeric.Invalidf("hull max radius %g must be finite and exceed the tolerance", h.MaxRadius)
	}
	return nil
}

// Evaluate runs the boundary search. The centre must be inside. Ray failures
// are recorded on the ray and never abort the run; cancellation does.
func (h Hull) Evaluate(ctx context.Context, m robot.Model) (*HullResult, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	v, err := Classify(m, h.Archetype, h.Criterion, h.Center)
	if err != nil {
		return nil, fmt.Errorf("hull centre: %w", err)
	}
	if !v.Pass {
		return nil, numeric.Invalidf("hull centre %v is outside the workspace", h.Center)
	}
	start := time.Now()

	var mesh directionMesh
	switch h.Archetype.Dim() {
	case 1:
		mesh = newLineMesh()
	case 2:
		mesh = newCircleMesh()
	case 3:
		mesh = newSphereMesh()
	default:
		return nil, numeric.Unimplementedf("hull in %d dimensions", h.Archetype.Dim())
	}

	var rays []Ray
	pending := mesh.directions()
	for depth := 0; ; depth++ {
		found, err := h.searchAll(ctx, m, pending)
		if err != nil {
			return nil, err
		}
		rays = append(rays, found...)
		if depth == h.MaxDepth {
			break
		}
		pending = mesh.refine(rays, h.FeatureThreshold)
		if len(pending) == 0 {
			break
		}
	}
	rays, faces := mesh.faces(rays)

	res := &HullResult{
		Archetype: h.Archetype.Name(),
		Criterion: h.Criterion.Name(),
		Center:    slices.Clone(h.Center),
		Rays:      rays,
		Faces:     faces,
	}
	sum := res.Summary()
	monitoring.Logf("hull: %s/%s %d rays, %d faces, %d low-confidence in %v",
		res.Archetype, res.Criterion, sum.Rays, sum.Faces, sum.LowConfidence, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// searchAll searches the given directions in parallel.
func (h Hull) searchAll(ctx context.Context, m robot.Model, dirs [][]float64) ([]Ray, error) {
	out := make([]Ray, len(dirs))
	err := forEach(ctx, len(dirs), h.Workers, func(ctx context.Context, i int) error {
		ray, err := h.search(ctx, m, dirs[i])
		if err != nil {
			return err
		}
		out[i] = ray
		return nil
	})
	return out, err
}

// search locates the boundary along dir: the bracket grows geometrically
// until a point outside is found (or MaxRadius is reached) and is then
// bisected down to the tolerance.
func (h Hull) search(ctx context.Context, m robot.Model, dir []float64) (Ray, error) {
	ray := Ray{Direction: dir}
	coord := make([]float64, len(dir))
	inside := func(s float64) (bool, error) {
		for k := range coord {
			coord[k] = h.Center[k] + s*dir[k]
		}
		v, err := Classify(m, h.Archetype, h.Criterion, coord)
		return v.Pass, err
	}
	fail := func(in float64, err error) (Ray, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Ray{}, ctxErr
		}
		monitoring.Logf("hull: ray %v failed at radius %g: %v", dir, in, err)
		ray.Status = RayFailed
		ray.Err = err.Error()
		return h.finish(ray, in), nil
	}

	in := 0.0
	out := math.Min(h.MaxRadius, math.Max(h.Tolerance, h.MaxRadius/16))
	for {
		ok, err := inside(out)
		if err != nil {
			return fail(in, err)
		}
		if !ok {
			break
		}
		in = out
		if out == h.MaxRadius {
			ray.Status = RayClipped
			return h.finish(ray, in), nil
		}
		out = math.Min(2*out, h.MaxRadius)
	}

	in, out, iter, err := numeric.Bisect(ctx, inside, in, out, h.Tolerance, h.MaxIterations)
	ray.Iterations = iter
	switch {
	case err == nil:
		ray.Status = RayConverged
	case errors.Is(err, numeric.ErrNotConverged):
		monitoring.Logf("hull: ray %v not converged, bracket [%g, %g]", dir, in, out)
		ray.Status = RayNotConverged
	default:
		return fail(in, err)
	}
	return h.finish(ray, in), nil
}

func (h Hull) finish(ray Ray, radius float64) Ray {
	ray.Radius = radius
	ray.Point = make([]float64, len(ray.Direction))
	for k, d := range ray.Direction {
		ray.Point[k] = h.Center[k] + radius*d
	}
	return ray
}

// directionMesh generates and refines the ray directions of one dimension
// and meshes the final rays.
type directionMesh interface {
	directions() [][]float64
	// refine returns new directions between neighbouring rays whose radii
	// differ by more than threshold relative to the larger one.
	refine(rays []Ray, threshold float64) [][]float64
	// faces orders rays and returns the mesh faces indexing them.
	faces(rays []Ray) ([]Ray, [][]int)
}

func featureEdge(a, b Ray, threshold float64) bool {
	r := math.Max(a.Radius, b.Radius)
	return r > 0 && math.Abs(a.Radius-b.Radius)/r > threshold
}

// lineMesh covers a 1-D coordinate with the two directions ±1.
type lineMesh struct{}

func newLineMesh() lineMesh { return lineMesh{} }

func (lineMesh) directions() [][]float64 { return [][]float64{{1}, {-1}} }

func (lineMesh) refine([]Ray, float64) [][]float64 { return nil }

func (lineMesh) faces(rays []Ray) ([]Ray, [][]int) { return rays, [][]int{{0, 1}} }

// circleMesh covers 2-D coordinates with directions at angles that are
// bisected between neighbours showing a feature.
type circleMesh struct{}

const initialCircleRays = 8

func newCircleMesh() circleMesh { return circleMesh{} }

func (circleMesh) directions() [][]float64 {
	out := make([][]float64, initialCircleRays)
	for k := range out {
		out[k] = unitAngle(2 * math.Pi * float64(k) / initialCircleRays)
	}
	return out
}

func unitAngle(theta float64) []float64 {
	return []float64{math.Cos(theta), math.Sin(theta)}
}

func angleOf(r Ray) float64 {
	a := math.Atan2(r.Direction[1], r.Direction[0])
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

func sortByAngle(rays []Ray) []Ray {
	out := slices.Clone(rays)
	slices.SortFunc(out, func(a, b Ray) int {
		switch x, y := angleOf(a), angleOf(b); {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
	return out
}

func (circleMesh) refine(rays []Ray, threshold float64) [][]float64 {
	sorted := sortByAngle(rays)
	var out [][]float64
	for k, a := range sorted {
		b := sorted[(k+1)%len(sorted)]
		if !featureEdge(a, b, threshold) {
			continue
		}
		ta, tb := angleOf(a), angleOf(b)
		if tb <= ta {
			tb += 2 * math.Pi
		}
		out = append(out, unitAngle(0.5*(ta+tb)))
	}
	return out
}

func (circleMesh) faces(rays []Ray) ([]Ray, [][]int) {
	sorted := sortByAngle(rays)
	faces := make([][]int, len(sorted))
	for k := range sorted {
		faces[k] = []int{k, (k + 1) % len(sorted)}
	}
	return sorted, faces
}

// sphereMesh covers 3-D coordinates starting from the octahedron. Each
// refinement round splits the feature edges of the current triangulation at
// their normalised midpoints and re-triangulates the touched faces in place,
// so a shared edge is split once and the mesh stays closed.
type sphereMesh struct {
	dirs []r3.Vec
	tris [][3]int
}

func newSphereMesh() *sphereMesh {
	return &sphereMesh{
		dirs: []r3.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}},
		// Counter-clockwise seen from outside.
		tris: [][3]int{
			{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
			{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
		},
	}
}

func (s *sphereMesh) directions() [][]float64 {
	out := make([][]float64, len(s.dirs))
	for i, d := range s.dirs {
		out[i] = []float64{d.X, d.Y, d.Z}
	}
	return out
}

type edgeKey [2]int

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// refine relies on rays[i] having been searched along s.dirs[i].
func (s *sphereMesh) refine(rays []Ray, threshold float64) [][]float64 {
	mid := make(map[edgeKey]int)
	var out [][]float64
	for _, t := range s.tris {
		for e := 0; e < 3; e++ {
			k := keyOf(t[e], t[(e+1)%3])
			if _, ok := mid[k]; ok || !featureEdge(rays[k[0]], rays[k[1]], threshold) {
				continue
			}
			d := r3.Unit(r3.Add(s.dirs[k[0]], s.dirs[k[1]]))
			mid[k] = len(s.dirs)
			s.dirs = append(s.dirs, d)
			out = append(out, []float64{d.X, d.Y, d.Z})
		}
	}
	if len(out) == 0 {
		return nil
	}
	tris := make([][3]int, 0, len(s.tris)+2*len(out))
	for _, t := range s.tris {
		tris = append(tris, splitTriangle(t, mid)...)
	}
	s.tris = tris
	return out
}

// splitTriangle replaces t by the triangles produced by its split edges,
// keeping t's orientation.
func splitTriangle(t [3]int, mid map[edgeKey]int) [][3]int {
	var m [3]int // m[e] is the midpoint of edge t[e]→t[e+1], or -1
	n := 0
	for e := 0; e < 3; e++ {
		m[e] = -1
		if v, ok := mid[keyOf(t[e], t[(e+1)%3])]; ok {
			m[e] = v
			n++
		}
	}
	// Rotate so that edge 0 is split and, with two splits, edge 2 is not.
	for r := 0; r < 3 && n > 0 && n < 3; r++ {
		if m[0] >= 0 && (n == 1 || m[2] < 0) {
			break
		}
		t = [3]int{t[1], t[2], t[0]}
		m = [3]int{m[1], m[2], m[0]}
	}
	v0, v1, v2 := t[0], t[1], t[2]
	switch n {
	case 0:
		return [][3]int{t}
	case 1:
		return [][3]int{{v0, m[0], v2}, {m[0], v1, v2}}
	case 2:
		return [][3]int{{m[0], v1, m[1]}, {v0, m[0], m[1]}, {v0, m[1], v2}}
	default:
		return [][3]int{{v0, m[0], m[2]}, {m[0], v1, m[1]}, {m[2], m[1], v2}, {m[0], m[1], m[2]}}
	}
}

func (s *sphereMesh) faces(rays []Ray) ([]Ray, [][]int) {
	faces := make([][]int, len(s.tris))
	for i, t := range s.tris {
		faces[i] = []int{t[0], t[1], t[2]}
	}
	return rays, faces
}
