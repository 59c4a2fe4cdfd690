package carddoc

import (
	"fmt"
	"strings"

	"cardgrid/internal/chart"
)

// chartMode 是适配层内部的绘制模式。
type chartMode int

const (
	modeBar chartMode = iota
	modeHorizontalBar
	modeLine
	modePie
	modeDonut
	modeGauge
)

// palette is the fixed series palette. Order is load-bearing: repeated
// renders of the same data must color identically.
var palette = [8]string{
	"#0078d4", "#e3008c", "#00b7c3", "#ffaa44",
	"#8764b8", "#498205", "#d13438", "#69797e",
}

// resolveChartMode maps the open set of chart kind tags onto the drawing
// modes. Unrecognized kinds fall back to vertical bars.
func resolveChartMode(kind string) chartMode {
	normalized := strings.TrimPrefix(kind, chartTypePrefix+".")
	switch strings.ToLower(normalized) {
	case "donut", "doughnut":
		return modeDonut
	case "pie":
		return modePie
	case "line":
		return modeLine
	case "horizontalbar":
		return modeHorizontalBar
	case "gauge":
		return modeGauge
	case "verticalbar", "bar":
		return modeBar
	default:
		return modeBar
	}
}

// RenderChart normalizes a ChartSpec and delegates to the SVG back-end.
// Gauge 图不受支持，渲染为明确的提示文案而不是错误。
func RenderChart(spec *ChartSpec) string {
	if spec == nil {
		return renderErrorPanel("chart specification missing")
	}

	mode := resolveChartMode(spec.Kind)
	if mode == modeGauge {
		return fmt.Sprintf(`<div class="card-chart-unsupported">%s</div>`,
			escapeHTML("Gauge charts are not supported"))
	}

	opt := chart.Options{
		Width:  480,
		Height: 300,
		Title:  spec.Title,
	}

	switch mode {
	case modePie, modeDonut:
		labels, values := pieSeries(spec.Data)
		colors := seriesColors(len(values))
		if mode == modeDonut {
			return wrapChart(chart.Donut(labels, values, colors, opt))
		}
		return wrapChart(chart.Pie(labels, values, colors, opt))
	default:
		labels, values := axisSeries(spec.Data)
		// Axis titles render only when non-empty.
		opt.XLabel = spec.XAxisTitle
		opt.YLabel = spec.YAxisTitle
		datasets := []chart.Dataset{{Values: values, Color: palette[0]}}
		switch mode {
		case modeLine:
			return wrapChart(chart.Line(labels, datasets, opt))
		case modeHorizontalBar:
			return wrapChart(chart.BarHorizontal(labels, datasets, opt))
		default:
			return wrapChart(chart.Bar(labels, datasets, opt))
		}
	}
}

func wrapChart(svg string) string {
	return `<div class="card-chart">` + svg + `</div>`
}

// axisSeries extracts (x,y) pairs for bar/line charts, falling back to
// (legend,value); missing labels become "" and missing values 0.
func axisSeries(data []DataPoint) ([]string, []float64) {
	labels := make([]string, 0, len(data))
	values := make([]float64, 0, len(data))
	for _, p := range data {
		label := p.X
		if label == "" {
			label = p.Legend
		}
		v := 0.0
		switch {
		case p.Y != nil:
			v = *p.Y
		case p.Value != nil:
			v = *p.Value
		}
		labels = append(labels, label)
		values = append(values, v)
	}
	return labels, values
}

// pieSeries extracts (legend,value) pairs for pie/donut charts.
func pieSeries(data []DataPoint) ([]string, []float64) {
	labels := make([]string, 0, len(data))
	values := make([]float64, 0, len(data))
	for _, p := range data {
		v := 0.0
		if p.Value != nil {
			v = *p.Value
		}
		labels = append(labels, p.Legend)
		values = append(values, v)
	}
	return labels, values
}

// seriesColors slices/cycles the fixed palette to the series length.
func seriesColors(n int) []string {
	colors := make([]string, n)
	for i := 0; i < n; i++ {
		colors[i] = palette[i%len(palette)]
	}
	return colors
}
