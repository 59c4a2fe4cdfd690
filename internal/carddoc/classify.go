package carddoc

import (
	"strings"
)

// Kind 是文档分类结果，决定走哪条渲染路径。
type Kind string

const (
	KindEmpty      Kind = "empty"
	KindError      Kind = "error"
	KindChart      Kind = "chart"
	KindSimpleCard Kind = "simpleCard"
	KindRichCard   Kind = "richCard"
)

// chartTypePrefix marks chart documents and chart elements ("Chart.Bar",
// "Chart.Line", ...). A bare "Chart" element counts as well.
const chartTypePrefix = "Chart"

const defaultChartKind = "Chart.VerticalBar"

// richElementTypes are the top-level body types that force the full
// element-tree renderer instead of the simple-card path.
var richElementTypes = map[string]struct{}{
	"Table":         {},
	"ImageSet":      {},
	"ColumnSet":     {},
	"Container":     {},
	"Media":         {},
	"FactSet":       {},
	"RichTextBlock": {},
}

// Classification 汇总分类结果；Chart 类型附带规范化的 ChartSpec。
type Classification struct {
	Kind  Kind
	Title string
	Doc   *Document
	Chart *ChartSpec
}

// ChartSpec 是图表的规范化描述，与绘图后端解耦。
type ChartSpec struct {
	Kind       string
	Title      string
	Data       []DataPoint
	XAxisTitle string
	YAxisTitle string
}

// Classify decides which rendering path applies to raw card JSON.
//
// Precedence is deliberate and must be preserved: explicit chart tag
// first, then a nested-chart search, then richness heuristics, then the
// generic AdaptiveCard fallback. A document may match several categories;
// only the first in this order wins.
func Classify(text, title string) Classification {
	if strings.TrimSpace(text) == "" {
		return Classification{Kind: KindEmpty, Title: title}
	}

	doc, err := ParseDocument(text)
	if err != nil {
		return Classification{Kind: KindError, Title: title}
	}

	if isChartType(doc.Type) {
		return Classification{
			Kind:  KindChart,
			Title: title,
			Doc:   doc,
			Chart: chartSpecFromDocument(doc, title),
		}
	}

	if len(doc.Body) > 0 {
		if el := findChartElement(doc.Body); el != nil {
			return Classification{
				Kind:  KindChart,
				Title: title,
				Doc:   doc,
				Chart: chartSpecFromElement(el, title),
			}
		}
		if hasRichElement(doc.Body) {
			return Classification{Kind: KindRichCard, Title: title, Doc: doc}
		}
		if doc.Type == "AdaptiveCard" || doc.Version != "" {
			return Classification{Kind: KindSimpleCard, Title: title, Doc: doc}
		}
		return Classification{Kind: KindError, Title: title}
	}

	if doc.Type == "AdaptiveCard" || doc.Version != "" {
		return Classification{Kind: KindSimpleCard, Title: title, Doc: doc}
	}

	return Classification{Kind: KindError, Title: title}
}

func isChartType(t string) bool {
	return t == chartTypePrefix || strings.HasPrefix(t, chartTypePrefix+".")
}

// findChartElement walks the element tree in document order and returns
// the first chart-typed element, descending through items and columns.
func findChartElement(elements []Element) *Element {
	for i := range elements {
		el := &elements[i]
		if isChartType(el.Type) {
			return el
		}
		if found := findChartElement(el.Items); found != nil {
			return found
		}
		for j := range el.Columns {
			if found := findChartElement(el.Columns[j].Items); found != nil {
				return found
			}
		}
	}
	return nil
}

func hasRichElement(body []Element) bool {
	for i := range body {
		el := &body[i]
		if _, ok := richElementTypes[el.Type]; ok {
			return true
		}
		if strings.HasPrefix(el.Type, "Input.") {
			return true
		}
		if el.Type == "ActionSet" && len(el.Actions) > 0 {
			return true
		}
	}
	return false
}

func chartSpecFromDocument(doc *Document, fallbackTitle string) *ChartSpec {
	title := doc.Title
	if title == "" {
		title = fallbackTitle
	}
	return &ChartSpec{
		Kind:       resolveChartKind(doc.ChartType, doc.Type),
		Title:      title,
		Data:       doc.Data,
		XAxisTitle: doc.XAxisTitle,
		YAxisTitle: doc.YAxisTitle,
	}
}

func chartSpecFromElement(el *Element, fallbackTitle string) *ChartSpec {
	title := el.Title
	if title == "" {
		title = fallbackTitle
	}
	return &ChartSpec{
		Kind:       resolveChartKind(el.ChartType, el.Type),
		Title:      title,
		Data:       el.Data,
		XAxisTitle: el.XAxisTitle,
		YAxisTitle: el.YAxisTitle,
	}
}

// resolveChartKind prefers the explicit chartType field, falls back to the
// element type tag, and defaults to the bar kind when neither resolves.
func resolveChartKind(chartType, typeTag string) string {
	if chartType != "" {
		return chartType
	}
	if typeTag != "" && typeTag != chartTypePrefix {
		return typeTag
	}
	return defaultChartKind
}
