package report

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/cdpr/internal/kinematics"
	"github.com/banshee-data/cdpr/internal/pose"
	"github.com/banshee-data/cdpr/internal/testutil"
	"github.com/banshee-data/cdpr/internal/workspace"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleGrid() *workspace.GridResult {
	return &workspace.GridResult{
		Archetype: "translation",
		Criterion: "cable-length",
		Axes:      []workspace.Axis{{Min: -1, Max: 1, Steps: 2}, {Min: -1, Max: 1, Steps: 2}},
		Samples: []workspace.GridSample{
			{Index: 0, Coord: []float64{-1, -1}, Inside: false, Margin: math.Inf(-1)},
			{Index: 1, Coord: []float64{-1, 1}, Inside: true, Margin: 0.1},
			{Index: 2, Coord: []float64{1, -1}, Inside: true, Margin: 0.3},
			{Index: 3, Coord: []float64{1, 1}, Inside: false, Margin: -0.2},
		},
	}
}

func sampleHull(dim int) *workspace.HullResult {
	res := &workspace.HullResult{Archetype: "translation", Criterion: "cable-length", Center: make([]float64, dim)}
	for k := range dim {
		for _, sign := range []float64{1, -1} {
			d := make([]float64, dim)
			d[k] = sign
			status := workspace.RayConverged
			if k == 0 && sign < 0 {
				status = workspace.RayNotConverged
			}
			res.Rays = append(res.Rays, workspace.Ray{Direction: d, Point: d, Radius: 1, Status: status})
		}
	}
	return res
}

func TestPlotGrid(t *testing.T) {
	t.Parallel()
	p, err := PlotGrid(sampleGrid(), 0, 1)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "2 of 4 inside")

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, 4*vg.Inch, 4*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPlotGridAxes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		x, y    int
		wantErr bool
	}{
		{"swapped", 1, 0, false},
		{"same axis", 0, 0, true},
		{"x out of range", 2, 0, true},
		{"negative y", 0, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlotGrid(sampleGrid(), tt.x, tt.y)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	oneDim := &workspace.GridResult{
		Axes:    []workspace.Axis{{Min: 0, Max: 1, Steps: 2}},
		Samples: []workspace.GridSample{{Coord: []float64{0}, Inside: true}, {Index: 1, Coord: []float64{1}}},
	}
	_, err := PlotGrid(oneDim, 0, 1)
	assert.NoError(t, err)
}

func TestPlotCableShapes(t *testing.T) {
	t.Parallel()
	m := testutil.SpatialPulleyRobot(0.05)
	res, err := kinematics.NewPulley().Backward(m, pose.At(0.1, -0.2, 0.3))
	require.NoError(t, err)

	for _, plane := range []string{"xy", "xz", "yz"} {
		pl, err := ParsePlane(plane)
		require.NoError(t, err)
		p, err := PlotCableShapes([]*kinematics.Result{res}, pl, 8, 2)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "shapes", plane+".png")
		require.NoError(t, SavePNG(p, path, 5*vg.Inch, 5*vg.Inch))
	}

	_, err = PlotCableShapes(nil, PlaneXY, 8, 2)
	assert.Error(t, err)
	_, err = ParsePlane("zz")
	assert.Error(t, err)
}

func TestGridHTML(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, GridHTML(&buf, sampleGrid(), 0, 1))
	html := buf.String()
	assert.Contains(t, html, "CDPR Workspace Grid")
	assert.Contains(t, html, "inside=2 samples=4")
	assert.Contains(t, html, `"visualMap"`)
	assert.NotContains(t, html, "+Inf")

	assert.Error(t, GridHTML(&buf, sampleGrid(), 0, 5))
}

func TestHullHTML(t *testing.T) {
	t.Parallel()
	for _, dim := range []int{1, 2, 3} {
		var buf bytes.Buffer
		require.NoError(t, HullHTML(&buf, sampleHull(dim)))
		html := buf.String()
		assert.Contains(t, html, "low confidence")
		assert.Equal(t, dim == 3, strings.Contains(html, "scatter3D"), "dim %d", dim)
	}

	var buf bytes.Buffer
	assert.Error(t, HullHTML(&buf, sampleHull(4)))
}
