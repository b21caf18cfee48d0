package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/cdpr/internal/workspace"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"})
}

// scatterValue drops a non-finite margin; echarts data must be JSON numbers.
func scatterValue(x, y, margin float64) []interface{} {
	if math.IsInf(margin, 0) || math.IsNaN(margin) {
		return []interface{}{x, y}
	}
	return []interface{}{x, y, margin}
}

// GridHTML writes an interactive scatter of a grid result projected onto
// coordinates x and y. Inside samples are coloured by margin.
func GridHTML(w io.Writer, res *workspace.GridResult, x, y int) error {
	if err := checkAxes(len(res.Axes), x, y); err != nil {
		return err
	}
	var inside, outside []opts.ScatterData
	minMargin, maxMargin := math.Inf(1), math.Inf(-1)
	for _, s := range res.Samples {
		pt := gridPoint(s.Coord, x, y)
		d := opts.ScatterData{Value: scatterValue(pt.X, pt.Y, s.Margin)}
		if s.Inside {
			inside = append(inside, d)
			if !math.IsInf(s.Margin, 0) {
				minMargin = math.Min(minMargin, s.Margin)
				maxMargin = math.Max(maxMargin, s.Margin)
			}
		} else {
			outside = append(outside, d)
		}
	}

	sum := res.Summary()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		initOpts("CDPR Workspace Grid"),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s / %s", res.Archetype, res.Criterion),
			Subtitle: fmt.Sprintf("inside=%d samples=%d ratio=%.3f", sum.Inside, sum.Samples, sum.InsideRatio),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: fmt.Sprintf("coordinate %d", x), NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: fmt.Sprintf("coordinate %d", y), NameLocation: "middle", NameGap: 30}),
	)
	if len(inside) > 0 && maxMargin > minMargin {
		scatter.SetGlobalOptions(charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Dimension:  "2",
			Min:        float32(minMargin),
			Max:        float32(maxMargin),
			Text:       []string{"margin"},
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}))
	}
	scatter.AddSeries("inside", inside, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("outside", outside, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	return renderPage(w, "CDPR Workspace Grid", scatter)
}

// HullHTML writes an interactive chart of a hull boundary: a 2-D scatter for
// one- and two-dimensional hulls, a 3-D scatter otherwise. Low-confidence
// rays are a separate series.
func HullHTML(w io.Writer, res *workspace.HullResult) error {
	dim := res.Dim()
	if dim < 1 || dim > 3 {
		return fmt.Errorf("cannot chart a %d-dimensional hull", dim)
	}
	sum := res.Summary()
	title := opts.Title{
		Title:    fmt.Sprintf("%s / %s", res.Archetype, res.Criterion),
		Subtitle: fmt.Sprintf("rays=%d faces=%d low-confidence=%d radius=%.3f±%.3f", sum.Rays, sum.Faces, sum.LowConfidence, sum.RadiusMean, sum.RadiusStdDev),
	}

	if dim == 3 {
		var good, weak []opts.Chart3DData
		for _, r := range res.Rays {
			d := opts.Chart3DData{Value: []interface{}{r.Point[0], r.Point[1], r.Point[2]}}
			if r.LowConfidence() {
				weak = append(weak, d)
			} else {
				good = append(good, d)
			}
		}
		sc := charts.NewScatter3D()
		sc.SetGlobalOptions(
			initOpts("CDPR Workspace Hull"),
			charts.WithTitleOpts(title),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxis3DOpts(opts.XAxis3D{Name: "coordinate 0", Show: opts.Bool(true)}),
			charts.WithYAxis3DOpts(opts.YAxis3D{Name: "coordinate 1", Show: opts.Bool(true)}),
			charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "coordinate 2", Show: opts.Bool(true)}),
		)
		sc.AddSeries("boundary", good)
		sc.AddSeries("low confidence", weak)
		return renderPage(w, "CDPR Workspace Hull", sc)
	}

	var good, weak []opts.ScatterData
	for _, r := range res.Rays {
		x, y := r.Point[0], 0.0
		if dim == 2 {
			y = r.Point[1]
		}
		d := opts.ScatterData{Value: []interface{}{x, y}}
		if r.LowConfidence() {
			weak = append(weak, d)
		} else {
			good = append(good, d)
		}
	}
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		initOpts("CDPR Workspace Hull"),
		charts.WithTitleOpts(title),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "coordinate 0", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "coordinate 1", NameLocation: "middle", NameGap: 30}),
	)
	sc.AddSeries("boundary", good, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	sc.AddSeries("low confidence", weak, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6, Symbol: "triangle"}))
	return renderPage(w, "CDPR Workspace Hull", sc)
}

func renderPage(w io.Writer, title string, c components.Charter) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(c)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render %s: %w", title, err)
	}
	return nil
}
