// Package chart renders lap comparisons as standalone HTML pages.
package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	lapdelta "github.com/pitwall/lapdelta"
)

// RenderComparison writes an HTML page with the paired speed traces and the
// delta-time curve of one comparison, both over lap distance.
func RenderComparison(w io.Writer, cmp *lapdelta.Comparison, refLabel, cmpLabel string) error {
	page := components.NewPage()
	page.AddCharts(speedChart(cmp, refLabel, cmpLabel), deltaChart(cmp, cmpLabel))
	return page.Render(w)
}

func speedChart(cmp *lapdelta.Comparison, refLabel, cmpLabel string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lap comparison", Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Speed vs distance",
			Subtitle: fmt.Sprintf("%s vs %s", refLabel, cmpLabel),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "speed (kph)"}),
	)

	dists := make([]string, 0, len(cmp.SpeedSeries))
	refSpeeds := make([]opts.LineData, 0, len(cmp.SpeedSeries))
	cmpSpeeds := make([]opts.LineData, 0, len(cmp.SpeedSeries))
	for _, p := range cmp.SpeedSeries {
		dists = append(dists, fmt.Sprintf("%.0f", p.Distance))
		refSpeeds = append(refSpeeds, opts.LineData{Value: p.ReferenceSpeed})
		cmpSpeeds = append(cmpSpeeds, opts.LineData{Value: p.CompareSpeed})
	}
	line.SetXAxis(dists).
		AddSeries(refLabel, refSpeeds).
		AddSeries(cmpLabel, cmpSpeeds).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}

func deltaChart(cmp *lapdelta.Comparison, cmpLabel string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Delta time vs distance",
			Subtitle: fmt.Sprintf("negative = %s ahead | total %+.3f s", cmpLabel, cmp.Summary.TotalDelta),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "distance (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "delta (s)"}),
	)

	dists := make([]string, 0, len(cmp.DeltaSeries))
	deltas := make([]opts.LineData, 0, len(cmp.DeltaSeries))
	for _, p := range cmp.DeltaSeries {
		dists = append(dists, fmt.Sprintf("%.0f", p.Distance))
		deltas = append(deltas, opts.LineData{Value: p.Delta})
	}
	line.SetXAxis(dists).
		AddSeries("delta", deltas).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return line
}
