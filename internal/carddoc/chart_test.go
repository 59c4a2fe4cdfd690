package carddoc

import (
	"strings"
	"testing"
)

func point(x string, y float64) DataPoint {
	return DataPoint{X: x, Y: &y}
}

func slicePoint(legend string, value float64) DataPoint {
	return DataPoint{Legend: legend, Value: &value}
}

func TestResolveChartMode(t *testing.T) {
	cases := map[string]chartMode{
		"Donut":               modeDonut,
		"Doughnut":            modeDonut,
		"Chart.Doughnut":      modeDonut,
		"Pie":                 modePie,
		"Line":                modeLine,
		"Chart.Line":          modeLine,
		"VerticalBar":         modeBar,
		"Bar":                 modeBar,
		"HorizontalBar":       modeHorizontalBar,
		"Chart.HorizontalBar": modeHorizontalBar,
		"Gauge":               modeGauge,
		"Sparkline":           modeBar, // unknown kinds default to bar
		"":                    modeBar,
	}
	for kind, want := range cases {
		if got := resolveChartMode(kind); got != want {
			t.Fatalf("resolveChartMode(%q) = %d, want %d", kind, got, want)
		}
	}
}

func TestRenderChartBarExample(t *testing.T) {
	spec := &ChartSpec{
		Kind: "Chart.Bar",
		Data: []DataPoint{point("Q1", 10), point("Q2", 20)},
	}
	out := RenderChart(spec)
	if !strings.Contains(out, "Q1") || !strings.Contains(out, "Q2") {
		t.Fatalf("x labels missing: %q", out)
	}
	if strings.Count(out, "<rect x=") != 2 {
		t.Fatalf("want two bars, got %d", strings.Count(out, "<rect x="))
	}
	// Zero-based y-axis: the tick origin must be 0.
	if !strings.Contains(out, ">0</text>") {
		t.Fatalf("y-axis not zero-based: %q", out)
	}
}

func TestRenderChartFallsBackToLegendValue(t *testing.T) {
	spec := &ChartSpec{
		Kind: "Bar",
		Data: []DataPoint{slicePoint("North", 5)},
	}
	out := RenderChart(spec)
	if !strings.Contains(out, "North") {
		t.Fatalf("legend fallback label missing: %q", out)
	}
}

func TestRenderChartGaugeUnsupported(t *testing.T) {
	out := RenderChart(&ChartSpec{Kind: "Gauge"})
	if !strings.Contains(out, "not supported") {
		t.Fatalf("gauge should render an explicit message: %q", out)
	}
	if strings.Contains(out, "<svg") {
		t.Fatalf("gauge must not reach the chart back-end: %q", out)
	}
}

func TestRenderChartAxisTitlesOnlyWhenPresent(t *testing.T) {
	withTitles := RenderChart(&ChartSpec{
		Kind:       "Line",
		Data:       []DataPoint{point("a", 1)},
		XAxisTitle: "Quarter",
		YAxisTitle: "Revenue",
	})
	if !strings.Contains(withTitles, "Quarter") || !strings.Contains(withTitles, "Revenue") {
		t.Fatalf("axis titles missing: %q", withTitles)
	}

	without := RenderChart(&ChartSpec{Kind: "Line", Data: []DataPoint{point("a", 1)}})
	if strings.Contains(without, "Quarter") {
		t.Fatal("axis title leaked into untitled chart")
	}
}

func TestChartColorAssignmentIsStable(t *testing.T) {
	spec := &ChartSpec{
		Kind: "Pie",
		Data: []DataPoint{
			slicePoint("a", 1), slicePoint("b", 2), slicePoint("c", 3),
		},
	}
	first := RenderChart(spec)
	second := RenderChart(spec)
	if first != second {
		t.Fatal("repeated renders of the same data differ")
	}
	for i := 0; i < 3; i++ {
		if !strings.Contains(first, palette[i]) {
			t.Fatalf("series %d not colored from the fixed palette: %q", i, first)
		}
	}
}

func TestSeriesColorsCyclePalette(t *testing.T) {
	colors := seriesColors(10)
	if len(colors) != 10 {
		t.Fatalf("len = %d, want 10", len(colors))
	}
	if colors[8] != palette[0] || colors[9] != palette[1] {
		t.Fatalf("palette does not cycle: %v", colors[8:])
	}
}

func TestChartMissingValuesDefaultToZero(t *testing.T) {
	labels, values := axisSeries([]DataPoint{{X: "a"}, {Legend: "b"}})
	if values[0] != 0 || values[1] != 0 {
		t.Fatalf("missing values should be 0, got %v", values)
	}
	if labels[0] != "a" || labels[1] != "b" {
		t.Fatalf("labels = %v", labels)
	}
}
