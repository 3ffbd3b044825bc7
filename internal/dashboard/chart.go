package dashboard

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when there is nothing to chart.
var ErrNoData = errors.New("no inspections to chart")

const (
	chartHeight   = 480
	minChartWidth = 640
	barWidth      = 24
	barSpacing    = 6
)

var (
	okColor     = drawing.ColorFromHex("16a34a")
	defectColor = drawing.ColorFromHex("dc2626")

	okStyle     = chart.Style{FillColor: okColor, StrokeColor: okColor, StrokeWidth: 1}
	defectStyle = chart.Style{FillColor: defectColor, StrokeColor: defectColor, StrokeWidth: 1}
	gapStyle    = chart.Style{FillColor: drawing.ColorTransparent, StrokeColor: drawing.ColorTransparent}
)

// RenderChart writes the summary as an SVG bar chart: one group per
// inspection, an OK bar next to a Defect bar, labelled "Truck <n>".
// Inspections with no items keep their group with two empty bars.
func RenderChart(w io.Writer, s Summary) error {
	if s.Empty || s.Chart == nil || len(s.Chart.Labels) == 0 {
		return ErrNoData
	}

	maxValue := 1.0
	bars := make([]chart.Value, 0, 3*len(s.Chart.Labels))
	for i, label := range s.Chart.Labels {
		ok, defect := float64(s.Chart.OK[i]), float64(s.Chart.Defect[i])
		maxValue = max(maxValue, ok, defect)
		bars = append(bars,
			chart.Value{Label: label, Value: ok, Style: okStyle},
			chart.Value{Value: defect, Style: defectStyle},
		)
		if i < len(s.Chart.Labels)-1 {
			bars = append(bars, chart.Value{Value: 0, Style: gapStyle})
		}
	}

	width := len(bars)*(barWidth+barSpacing) + 200
	if width < minChartWidth {
		width = minChartWidth
	}

	graph := chart.BarChart{
		Title:      "Inspections (OK / Defect)",
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		// An explicit range keeps all-zero data drawable.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue},
		},
		Bars: bars,
	}
	return graph.Render(chart.SVG, w)
}
