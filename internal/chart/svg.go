// Package chart renders bar, line, pie and donut charts as standalone SVG
// fragments. It is the drawing back-end behind the card chart adapter and
// accepts data in the normalized (labels, datasets) shape.
package chart

import (
	"fmt"
	"math"
	"strings"
)

// Dataset is one named series of values aligned with the label axis.
type Dataset struct {
	Label  string
	Values []float64
	Color  string
}

// Options control the shared chart frame.
type Options struct {
	Width  float64
	Height float64
	Title  string
	XLabel string
	YLabel string
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escape(s string) string { return xmlEscaper.Replace(s) }

type frame struct {
	opt        Options
	margin     map[string]float64
	plotWidth  float64
	plotHeight float64
}

func newFrame(opt Options) frame {
	if opt.Width <= 0 {
		opt.Width = 480
	}
	if opt.Height <= 0 {
		opt.Height = 300
	}
	margin := map[string]float64{"top": 40, "right": 30, "bottom": 50, "left": 60}
	return frame{
		opt:        opt,
		margin:     margin,
		plotWidth:  opt.Width - margin["left"] - margin["right"],
		plotHeight: opt.Height - margin["top"] - margin["bottom"],
	}
}

func (f frame) open(sb *strings.Builder) {
	fmt.Fprintf(sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`,
		int(f.opt.Width), int(f.opt.Height), int(f.opt.Width), int(f.opt.Height))
	fmt.Fprintf(sb, `<rect width="%d" height="%d" fill="#f8f9fa" rx="8"/>`,
		int(f.opt.Width), int(f.opt.Height))
	if f.opt.Title != "" {
		fmt.Fprintf(sb, `<text x="%.1f" y="25" text-anchor="middle" font-family="Arial, sans-serif" font-size="16" font-weight="bold">%s</text>`,
			f.opt.Width/2, escape(f.opt.Title))
	}
}

func (f frame) axes(sb *strings.Builder) {
	left := f.margin["left"]
	top := f.margin["top"]
	fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		left, top, left, top+f.plotHeight)
	fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		left, top+f.plotHeight, left+f.plotWidth, top+f.plotHeight)

	if f.opt.XLabel != "" {
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12">%s</text>`,
			left+f.plotWidth/2, f.opt.Height-10, escape(f.opt.XLabel))
	}
	if f.opt.YLabel != "" {
		midY := top + f.plotHeight/2
		fmt.Fprintf(sb, `<text x="15" y="%.1f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" transform="rotate(-90, 15, %.1f)">%s</text>`,
			midY, midY, escape(f.opt.YLabel))
	}
}

// yTicks draws horizontal grid lines and value labels for a zero-based
// value axis ending at max.
func (f frame) yTicks(sb *strings.Builder, max float64) {
	const ticks = 5
	left := f.margin["left"]
	top := f.margin["top"]
	for i := 0; i <= ticks; i++ {
		v := max * float64(i) / float64(ticks)
		py := top + f.plotHeight - (v/max)*f.plotHeight
		fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="1"/>`,
			left-5, py, left, py)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%s</text>`,
			left-10, py+4, formatTick(v))
		fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ddd" stroke-width="0.5"/>`,
			left, py, left+f.plotWidth, py)
	}
}

func (f frame) legend(sb *strings.Builder, datasets []Dataset) {
	hasLabel := false
	for _, d := range datasets {
		if d.Label != "" {
			hasLabel = true
			break
		}
	}
	if !hasLabel {
		return
	}
	legendY := f.margin["top"] + 10
	for _, d := range datasets {
		if d.Label == "" {
			continue
		}
		x1 := f.opt.Width - f.margin["right"] - 50
		x2 := f.opt.Width - f.margin["right"] - 30
		fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="3"/>`,
			x1, legendY, x2, legendY, d.Color)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" font-family="Arial, sans-serif" font-size="10">%s</text>`,
			x2+5, legendY+4, escape(d.Label))
		legendY += 20
	}
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e7 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// maxValue returns the largest value across datasets; the value axis is
// always zero-based, so only the upper bound matters. A non-positive
// maximum is padded to 1 to keep scaling finite.
func maxValue(datasets []Dataset) float64 {
	max := 0.0
	for _, d := range datasets {
		for _, v := range d.Values {
			if v > max {
				max = v
			}
		}
	}
	if max <= 0 {
		max = 1
	}
	return max
}

// Bar renders grouped vertical bars, one group per label.
func Bar(labels []string, datasets []Dataset, opt Options) string {
	f := newFrame(opt)
	sb := &strings.Builder{}
	f.open(sb)
	f.axes(sb)

	max := maxValue(datasets)
	f.yTicks(sb, max)

	left := f.margin["left"]
	top := f.margin["top"]
	groups := len(labels)
	if groups > 0 {
		groupWidth := f.plotWidth / float64(groups)
		barWidth := groupWidth * 0.7 / float64(maxInt(len(datasets), 1))
		for gi, label := range labels {
			gx := left + groupWidth*float64(gi)
			for di, d := range datasets {
				v := 0.0
				if gi < len(d.Values) {
					v = d.Values[gi]
				}
				h := (v / max) * f.plotHeight
				if h < 0 {
					h = 0
				}
				bx := gx + groupWidth*0.15 + barWidth*float64(di)
				fmt.Fprintf(sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
					bx, top+f.plotHeight-h, barWidth, h, d.Color)
			}
			fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-family="Arial, sans-serif" font-size="10">%s</text>`,
				gx+groupWidth/2, top+f.plotHeight+20, escape(label))
		}
	}

	f.legend(sb, datasets)
	sb.WriteString(`</svg>`)
	return sb.String()
}

// BarHorizontal renders bars along the value axis with labels on the
// left; the index axis is swapped relative to Bar.
func BarHorizontal(labels []string, datasets []Dataset, opt Options) string {
	f := newFrame(opt)
	sb := &strings.Builder{}
	f.open(sb)
	f.axes(sb)

	max := maxValue(datasets)

	left := f.margin["left"]
	top := f.margin["top"]
	groups := len(labels)
	if groups > 0 {
		groupHeight := f.plotHeight / float64(groups)
		barHeight := groupHeight * 0.7 / float64(maxInt(len(datasets), 1))
		for gi, label := range labels {
			gy := top + groupHeight*float64(gi)
			for di, d := range datasets {
				v := 0.0
				if gi < len(d.Values) {
					v = d.Values[gi]
				}
				w := (v / max) * f.plotWidth
				if w < 0 {
					w = 0
				}
				by := gy + groupHeight*0.15 + barHeight*float64(di)
				fmt.Fprintf(sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
					left, by, w, barHeight, d.Color)
			}
			fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%s</text>`,
				left-10, gy+groupHeight/2+4, escape(label))
		}
	}

	f.legend(sb, datasets)
	sb.WriteString(`</svg>`)
	return sb.String()
}

// Line renders one polyline per dataset across the label axis.
func Line(labels []string, datasets []Dataset, opt Options) string {
	f := newFrame(opt)
	sb := &strings.Builder{}
	f.open(sb)
	f.axes(sb)

	max := maxValue(datasets)
	f.yTicks(sb, max)

	left := f.margin["left"]
	top := f.margin["top"]
	points := len(labels)
	if points > 0 {
		step := f.plotWidth
		if points > 1 {
			step = f.plotWidth / float64(points-1)
		}
		for i, label := range labels {
			px := left + step*float64(i)
			if points == 1 {
				px = left + f.plotWidth/2
			}
			fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-family="Arial, sans-serif" font-size="10">%s</text>`,
				px, top+f.plotHeight+20, escape(label))
		}
		for _, d := range datasets {
			path := strings.Builder{}
			for i := 0; i < points; i++ {
				v := 0.0
				if i < len(d.Values) {
					v = d.Values[i]
				}
				px := left + step*float64(i)
				if points == 1 {
					px = left + f.plotWidth/2
				}
				py := top + f.plotHeight - (v/max)*f.plotHeight
				if i == 0 {
					fmt.Fprintf(&path, "M%.1f,%.1f", px, py)
				} else {
					fmt.Fprintf(&path, " L%.1f,%.1f", px, py)
				}
			}
			fmt.Fprintf(sb, `<path d="%s" stroke="%s" stroke-width="2" fill="none"/>`,
				path.String(), d.Color)
		}
	}

	f.legend(sb, datasets)
	sb.WriteString(`</svg>`)
	return sb.String()
}

// Pie renders a full pie; Donut renders the same wedges with a hole.
func Pie(labels []string, values []float64, colors []string, opt Options) string {
	return renderPie(labels, values, colors, opt, 0)
}

// Donut renders a pie chart with an inner hole at 55% of the radius.
func Donut(labels []string, values []float64, colors []string, opt Options) string {
	return renderPie(labels, values, colors, opt, 0.55)
}

func renderPie(labels []string, values []float64, colors []string, opt Options, innerRatio float64) string {
	f := newFrame(opt)
	sb := &strings.Builder{}
	f.open(sb)

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}

	cx := f.margin["left"] + f.plotWidth*0.38
	cy := f.margin["top"] + f.plotHeight/2
	radius := math.Min(f.plotWidth, f.plotHeight) / 2
	inner := radius * innerRatio

	if total <= 0 {
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" fill="#666">no data</text>`,
			cx, cy)
		sb.WriteString(`</svg>`)
		return sb.String()
	}

	angle := -math.Pi / 2
	for i, v := range values {
		if v <= 0 {
			continue
		}
		sweep := (v / total) * 2 * math.Pi
		color := ""
		if i < len(colors) {
			color = colors[i]
		}
		writeWedge(sb, cx, cy, radius, inner, angle, angle+sweep, color)
		angle += sweep
	}

	// Legend with percentage labels on the right side.
	legendY := f.margin["top"] + 10
	for i, label := range labels {
		if i >= len(values) {
			break
		}
		color := ""
		if i < len(colors) {
			color = colors[i]
		}
		pct := values[i] / total * 100
		lx := f.opt.Width - f.margin["right"] - 110
		fmt.Fprintf(sb, `<rect x="%.1f" y="%.1f" width="10" height="10" fill="%s"/>`,
			lx, legendY-8, color)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" font-family="Arial, sans-serif" font-size="10">%s (%.1f%%)</text>`,
			lx+15, legendY, escape(label), pct)
		legendY += 18
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

// writeWedge emits an annular sector path between the two angles; a zero
// inner radius yields a plain pie wedge.
func writeWedge(sb *strings.Builder, cx, cy, outer, inner, from, to float64, color string) {
	largeArc := 0
	if to-from > math.Pi {
		largeArc = 1
	}

	x1 := cx + outer*math.Cos(from)
	y1 := cy + outer*math.Sin(from)
	x2 := cx + outer*math.Cos(to)
	y2 := cy + outer*math.Sin(to)

	path := strings.Builder{}
	if inner > 0 {
		x3 := cx + inner*math.Cos(to)
		y3 := cy + inner*math.Sin(to)
		x4 := cx + inner*math.Cos(from)
		y4 := cy + inner*math.Sin(from)
		fmt.Fprintf(&path, "M%.2f,%.2f A%.2f,%.2f 0 %d 1 %.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d 0 %.2f,%.2f Z",
			x1, y1, outer, outer, largeArc, x2, y2, x3, y3, inner, inner, largeArc, x4, y4)
	} else {
		fmt.Fprintf(&path, "M%.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d 1 %.2f,%.2f Z",
			cx, cy, x1, y1, outer, outer, largeArc, x2, y2)
	}

	fmt.Fprintf(sb, `<path d="%s" fill="%s" stroke="#fff" stroke-width="1"/>`, path.String(), color)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
