package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderEODChart renders the portfolio EOD balance of both sources as a
// PNG line chart. Source A is drawn solid, source B dashed.
func RenderEODChart(a, b domain.EODSeries) ([]byte, error) {
	if len(a) < 2 && len(b) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d and %d", len(a), len(b))
	}

	var series []chart.Series
	lo, hi := 0.0, 0.0
	first := true
	for _, s := range []struct {
		name   string
		points domain.EODSeries
		style  chart.Style
	}{
		{"Source A", a, chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		}},
		{"Source B", b, chart.Style{
			StrokeColor:     drawing.ColorFromHex("dc2626"),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		}},
	} {
		if len(s.points) < 2 {
			continue
		}
		xs := make([]time.Time, len(s.points))
		ys := make([]float64, len(s.points))
		for i, p := range s.points {
			xs[i] = p.Date
			ys[i] = p.Balance.InexactFloat64()
			if first || ys[i] < lo {
				lo = ys[i]
			}
			if first || ys[i] > hi {
				hi = ys[i]
			}
			first = false
		}
		series = append(series, chart.TimeSeries{Name: s.name, Style: s.style, XValues: xs, YValues: ys})
	}

	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%.0f", f)
			}
			return ""
		},
	}
	if lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := chart.Chart{
		Title:  "Portfolio EOD balance",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis:  yAxis,
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
