// Package report renders kinematics and workspace results as PNG plots and
// interactive HTML charts.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/workspace"
)

var (
	insideColor  = color.RGBA{R: 0x35, G: 0xb7, B: 0x79, A: 0xff}
	outsideColor = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
	anchorColor  = color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff}
)

// Plane selects the two world axes a 3-D drawing is projected onto.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) project(v r3.Vec) plotter.XY {
	switch p {
	case PlaneXZ:
		return plotter.XY{X: v.X, Y: v.Z}
	case PlaneYZ:
		return plotter.XY{X: v.Y, Y: v.Z}
	default:
		return plotter.XY{X: v.X, Y: v.Y}
	}
}

func (p Plane) labels() (string, string) {
	switch p {
	case PlaneXZ:
		return "X (m)", "Z (m)"
	case PlaneYZ:
		return "Y (m)", "Z (m)"
	default:
		return "X (m)", "Y (m)"
	}
}

// ParsePlane accepts "xy", "xz" or "yz".
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "xy", "":
		return PlaneXY, nil
	case "xz":
		return PlaneXZ, nil
	case "yz":
		return PlaneYZ, nil
	}
	return 0, fmt.Errorf("unknown plane %q (want xy, xz or yz)", s)
}

// gridPoint projects a sample coordinate onto the (x, y) axes. A 1-D grid is
// drawn along y = 0.
func gridPoint(coord []float64, x, y int) plotter.XY {
	pt := plotter.XY{X: coord[x]}
	if y < len(coord) {
		pt.Y = coord[y]
	}
	return pt
}

func checkAxes(dim, x, y int) error {
	if x < 0 || x >= dim {
		return fmt.Errorf("x axis %d out of range for %d coordinates", x, dim)
	}
	if dim > 1 && (y < 0 || y >= dim || y == x) {
		return fmt.Errorf("y axis %d invalid for %d coordinates (x axis %d)", y, dim, x)
	}
	return nil
}

// PlotGrid scatters grid samples projected onto coordinates x and y, inside
// samples in green and outside samples in grey.
func PlotGrid(res *workspace.GridResult, x, y int) (*plot.Plot, error) {
	if err := checkAxes(len(res.Axes), x, y); err != nil {
		return nil, err
	}
	inside := make(plotter.XYs, 0, len(res.Samples))
	outside := make(plotter.XYs, 0, len(res.Samples))
	for _, s := range res.Samples {
		if s.Inside {
			inside = append(inside, gridPoint(s.Coord, x, y))
		} else {
			outside = append(outside, gridPoint(s.Coord, x, y))
		}
	}

	p := plot.New()
	sum := res.Summary()
	p.Title.Text = fmt.Sprintf("%s / %s: %d of %d inside", res.Archetype, res.Criterion, sum.Inside, sum.Samples)
	p.X.Label.Text = fmt.Sprintf("coordinate %d", x)
	p.Y.Label.Text = fmt.Sprintf("coordinate %d", y)
	p.Legend.Top = true

	for _, series := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
	}{
		{"outside", outside, outsideColor},
		{"inside", inside, insideColor},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return nil, fmt.Errorf("%s samples: %w", series.name, err)
		}
		sc.GlyphStyle.Color = series.color
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(series.name, sc)
	}
	return p, nil
}

// PlotCableShapes draws every chain's cable of the given results projected
// onto plane, with frame and platform anchors marked.
func PlotCableShapes(results []*kinematics.Result, plane Plane, arcPoints, linePoints int) (*plot.Plot, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no kinematics results to plot")
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cable shapes (%s)", results[0].Algorithm())
	p.X.Label.Text, p.Y.Label.Text = plane.labels()

	var anchors plotter.XYs
	for _, res := range results {
		for i := range res.NumChains() {
			var pts plotter.XYs
			for v := range res.Shape(i, arcPoints, linePoints) {
				pts = append(pts, plane.project(v))
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("platform %d chain %d: %w", res.Platform(), i, err)
			}
			line.Width = vg.Points(1)
			line.Color = chainColor(i)
			p.Add(line)
			anchors = append(anchors, plane.project(res.FrameAnchorPosition(i)), plane.project(res.PlatformAnchorPosition(i)))
		}
	}
	sc, err := plotter.NewScatter(anchors)
	if err != nil {
		return nil, fmt.Errorf("anchors: %w", err)
	}
	sc.GlyphStyle.Color = anchorColor
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(2.5)
	p.Add(sc)
	p.Legend.Add("anchors", sc)
	p.Legend.Top = true
	return p, nil
}

// chainColor spreads chain colours around the hue circle.
func chainColor(i int) color.Color {
	h := math.Mod(float64(i)*0.618033988749895, 1) * 6
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	const v = 0.8
	return color.RGBA{R: uint8(r * v * 255), G: uint8(g * v * 255), B: uint8(b * v * 255), A: 0xff}
}

// WritePNG renders p as a PNG of the given size to w.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG renders p to path, creating parent directories as needed.
func SavePNG(p *plot.Plot, path string, width, height vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(width, height, path)
}
