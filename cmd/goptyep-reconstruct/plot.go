package main

import (
	"math"
	"math/cmplx"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// errorCurve renders the per-iteration mean amplitude error collected by a
// solver.Config.Callback as a line chart.
func errorCurve(errs []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Reconstruction error"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mean amplitude error"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: opts.Bool(true),
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{Show: opts.Bool(true)},
				DataZoom:    &opts.ToolBoxFeatureDataZoom{Show: opts.Bool(true)},
			},
		}),
	)

	x := make([]int, len(errs))
	y := make([]opts.LineData, len(errs))
	for i, e := range errs {
		x[i] = i
		y[i] = opts.LineData{Value: e}
	}
	line.SetXAxis(x).AddSeries("error", y)
	return line
}

// amplitudePhaseHeatmaps renders the recovered object's amplitude and phase
// as two side-by-side heatmaps, the host-program visualization spec.md's
// core leaves to callers (§1 "Deliberately OUT of scope": plotting).
func amplitudePhaseHeatmaps(n int, object []complex128) (*charts.HeatMap, *charts.HeatMap) {
	amp := make([]opts.HeatMapData, 0, n*n)
	phase := make([]opts.HeatMapData, 0, n*n)
	var maxAmp float64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := object[r*n+c]
			a := cmplx.Abs(v)
			if a > maxAmp {
				maxAmp = a
			}
			amp = append(amp, opts.HeatMapData{Value: [3]interface{}{c, r, a}})
			phase = append(phase, opts.HeatMapData{Value: [3]interface{}{c, r, cmplx.Phase(v)}})
		}
	}

	ampChart := charts.NewHeatMap()
	ampChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Object amplitude"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        maxAmp,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#ffffbf", "#a50026"}},
		}),
	)
	ampChart.AddSeries("amplitude", amp)

	phaseChart := charts.NewHeatMap()
	phaseChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Object phase"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        -math.Pi,
			Max:        math.Pi,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#ffffbf", "#a50026"}},
		}),
	)
	phaseChart.AddSeries("phase", phase)

	return ampChart, phaseChart
}

// renderReport writes a single HTML page containing the error curve and the
// amplitude/phase heatmaps to path, in the multi-chart components.Page
// idiom.
func renderReport(path string, n int, object []complex128, errs []float64) error {
	page := components.NewPage()
	page.SetPageTitle("goptyep reconstruction report")
	ampChart, phaseChart := amplitudePhaseHeatmaps(n, object)
	page.AddCharts(errorCurve(errs), ampChart, phaseChart)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
