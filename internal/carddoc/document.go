// Package carddoc implements the card-document rendering engine: JSON
// classification, element-tree rendering to HTML fragments, chart
// normalization and action dispatch.
package carddoc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document 表示一张卡片的完整 JSON 文档（AdaptiveCard 形态）。
type Document struct {
	Type    string    `json:"type"`
	Version string    `json:"version,omitempty"`
	Body    []Element `json:"body,omitempty"`
	Actions []Action  `json:"actions,omitempty"`

	// Chart documents carry their spec at the top level.
	Title      string      `json:"title,omitempty"`
	ChartType  string      `json:"chartType,omitempty"`
	Data       []DataPoint `json:"data,omitempty"`
	XAxisTitle string      `json:"xAxisTitle,omitempty"`
	YAxisTitle string      `json:"yAxisTitle,omitempty"`
}

// Element 是元素树中的一个节点，通过 Type 字段区分种类。
// 未知的 Type 是合法输入，渲染为占位符而不是错误。
type Element struct {
	Type string `json:"type"`

	// Text-like fields.
	Text     string `json:"text,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	AltText  string `json:"altText,omitempty"`
	Label    string `json:"label,omitempty"`
	Value    string `json:"value,omitempty"`
	Wrap     bool   `json:"wrap,omitempty"`
	IsSubtle bool   `json:"isSubtle,omitempty"`

	// Style attributes; empty string means "default".
	Size                string `json:"size,omitempty"`
	Weight              string `json:"weight,omitempty"`
	Color               string `json:"color,omitempty"`
	HorizontalAlignment string `json:"horizontalAlignment,omitempty"`
	VerticalAlignment   string `json:"verticalContentAlignment,omitempty"`
	Spacing             string `json:"spacing,omitempty"`
	Style               string `json:"style,omitempty"`

	// Container-like children, all recursed in document order.
	Items   []Element `json:"items,omitempty"`
	Columns []Column  `json:"columns,omitempty"`
	Inlines []Element `json:"inlines,omitempty"`
	Images  []Element `json:"images,omitempty"`
	Facts   []Fact    `json:"facts,omitempty"`
	Actions []Action  `json:"actions,omitempty"`

	// Table fields.
	TableColumns      []TableColumn `json:"tableColumns,omitempty"`
	Rows              []TableRow    `json:"rows,omitempty"`
	FirstRowAsHeaders *bool         `json:"firstRowAsHeaders,omitempty"`
	ShowGridLines     *bool         `json:"showGridLines,omitempty"`

	// Input fields.
	Placeholder   string   `json:"placeholder,omitempty"`
	Choices       []Choice `json:"choices,omitempty"`
	IsMultiSelect bool     `json:"isMultiSelect,omitempty"`

	// ProgressBar fields. ProgressValue is fed from the shared "value"
	// key by the custom unmarshaller below.
	ProgressValue *float64 `json:"-"`
	ProgressMin   *float64 `json:"min,omitempty"`
	ProgressMax   *float64 `json:"max,omitempty"`

	// Media fields.
	Sources []MediaSource `json:"sources,omitempty"`
	Poster  string        `json:"poster,omitempty"`

	// CompoundButton fields.
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`

	// Chart fields for embedded chart elements.
	ChartType  string      `json:"chartType,omitempty"`
	Data       []DataPoint `json:"data,omitempty"`
	XAxisTitle string      `json:"xAxisTitle,omitempty"`
	YAxisTitle string      `json:"yAxisTitle,omitempty"`
}

// elementJSON mirrors Element for decoding; ProgressBar reuses the "value"
// key for a number while inputs use it for a string, so decoding resolves
// the collision by inspecting the raw token.
type elementJSON Element

// UnmarshalJSON decodes an element, coercing the shared "value" key into
// either the string Value or the numeric ProgressValue.
func (e *Element) UnmarshalJSON(data []byte) error {
	var aux elementJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var probe struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && len(probe.Value) > 0 {
		raw := strings.TrimSpace(string(probe.Value))
		switch {
		case strings.HasPrefix(raw, `"`):
			var s string
			if err := json.Unmarshal(probe.Value, &s); err == nil {
				aux.Value = s
			}
		case raw == "null":
		default:
			var f float64
			if err := json.Unmarshal(probe.Value, &f); err == nil {
				aux.ProgressValue = &f
			}
		}
	}

	*e = Element(aux)
	return nil
}

// Column 是 ColumnSet 中的一列。
type Column struct {
	Type              string    `json:"type,omitempty"`
	Width             string    `json:"width,omitempty"`
	Items             []Element `json:"items,omitempty"`
	VerticalAlignment string    `json:"verticalContentAlignment,omitempty"`
}

// UnmarshalJSON tolerates numeric widths ("width": 2) alongside string ones.
func (c *Column) UnmarshalJSON(data []byte) error {
	type columnJSON Column
	var aux struct {
		columnJSON
		Width json.RawMessage `json:"width,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Column(aux.columnJSON)
	if len(aux.Width) > 0 {
		var s string
		if err := json.Unmarshal(aux.Width, &s); err == nil {
			c.Width = s
		} else {
			var f float64
			if err := json.Unmarshal(aux.Width, &f); err == nil {
				c.Width = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", f), "0"), ".")
			}
		}
	}
	return nil
}

// TableColumn 描述 Table 的一列（宽度与默认对齐）。
type TableColumn struct {
	Width               json.RawMessage `json:"width,omitempty"`
	Title               string          `json:"title,omitempty"`
	HorizontalAlignment string          `json:"horizontalCellContentAlignment,omitempty"`
	VerticalAlignment   string          `json:"verticalCellContentAlignment,omitempty"`
}

// TableRow 是 Table 的一行。
type TableRow struct {
	Type  string      `json:"type,omitempty"`
	Cells []TableCell `json:"cells,omitempty"`
}

// TableCell 是 Table 的一个单元格，内容递归渲染。
type TableCell struct {
	Type                string    `json:"type,omitempty"`
	Items               []Element `json:"items,omitempty"`
	HorizontalAlignment string    `json:"horizontalCellContentAlignment,omitempty"`
	VerticalAlignment   string    `json:"verticalCellContentAlignment,omitempty"`
}

// Fact 是 FactSet 中的一条键值对。
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Choice 是 Input.ChoiceSet 的一个选项。
type Choice struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// MediaSource 是 Media 元素的一个播放源。
type MediaSource struct {
	MimeType string `json:"mimeType,omitempty"`
	URL      string `json:"url"`
}

// Action 表示卡片中的一个交互动作。Content 为 Popover 的嵌套内容。
type Action struct {
	Type    string          `json:"type"`
	Title   string          `json:"title,omitempty"`
	URL     string          `json:"url,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Content *Element        `json:"content,omitempty"`
}

// DataPoint 是图表数据中的一个点。bar/line 读取 (X,Y) 并回退到
// (Legend,Value)；pie/donut 只读取 (Legend,Value)。
type DataPoint struct {
	Legend string   `json:"legend,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	X      string   `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
}

// UnmarshalJSON accepts numbers or strings for the x field.
func (p *DataPoint) UnmarshalJSON(data []byte) error {
	var aux struct {
		Legend string          `json:"legend"`
		Value  *float64        `json:"value"`
		X      json.RawMessage `json:"x"`
		Y      *float64        `json:"y"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Legend = aux.Legend
	p.Value = aux.Value
	p.Y = aux.Y
	p.X = ""
	if len(aux.X) > 0 {
		var s string
		if err := json.Unmarshal(aux.X, &s); err == nil {
			p.X = s
		} else {
			var n json.Number
			if err := json.Unmarshal(aux.X, &n); err == nil {
				p.X = n.String()
			}
		}
	}
	return nil
}

// ParseDocument decodes raw card JSON into a Document.
func ParseDocument(text string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parse card document: %w", err)
	}
	return &doc, nil
}
