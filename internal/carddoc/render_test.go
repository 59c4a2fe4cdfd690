package carddoc

import (
	"strings"
	"testing"
)

func TestRenderIsDeterministic(t *testing.T) {
	text := `{
		"type": "AdaptiveCard",
		"body": [
			{"type": "TextBlock", "text": "Totals", "weight": "Bold"},
			{"type": "Chart.Bar", "data": [{"x": "Q1", "y": 10}, {"x": "Q2", "y": 20}]},
			{"type": "Container", "items": [{"type": "FactSet", "facts": [{"title": "a", "value": "1"}]}]}
		]
	}`
	first, kind1 := Render(text, "t")
	second, kind2 := Render(text, "t")
	if first != second || kind1 != kind2 {
		t.Fatal("rendering the same document twice produced different output")
	}
}

func TestRenderMalformedNeverEscapes(t *testing.T) {
	html, kind := Render("{not json", "Budget")
	if kind != KindError {
		t.Fatalf("kind = %s, want %s", kind, KindError)
	}
	if !strings.Contains(html, "card-error") {
		t.Fatalf("output %q missing error indicator", html)
	}
}

func TestRenderUnknownTypePlaceholder(t *testing.T) {
	el := &Element{Type: "Mystery.Widget", Text: "x"}
	out := RenderElement(el)
	if !strings.Contains(out, "Mystery.Widget") {
		t.Fatalf("placeholder %q does not carry the literal type string", out)
	}
	if !strings.Contains(out, "card-unsupported") {
		t.Fatalf("placeholder %q missing unsupported marker", out)
	}
}

func TestRenderUnknownDoesNotAbortSiblings(t *testing.T) {
	doc := &Document{
		Type: "AdaptiveCard",
		Body: []Element{
			{Type: "Gizmo"},
			{Type: "TextBlock", Text: "still here"},
		},
	}
	out := RenderDocument(doc)
	if !strings.Contains(out, "still here") {
		t.Fatalf("sibling rendering aborted: %q", out)
	}
}

func TestTextBlockStyleMappingIsTotal(t *testing.T) {
	cases := []struct {
		size, want string
	}{
		{"Small", "12px"},
		{"Medium", "16px"},
		{"Large", "20px"},
		{"", "14px"},
		{"Gigantic", "14px"}, // unrecognized maps to default
	}
	for _, tc := range cases {
		out := RenderElement(&Element{Type: "TextBlock", Text: "x", Size: tc.size})
		if !strings.Contains(out, "font-size:"+tc.want) {
			t.Fatalf("size %q: output %q missing font-size %s", tc.size, out, tc.want)
		}
	}
}

func TestTextBlockEscapesContent(t *testing.T) {
	out := RenderElement(&Element{Type: "TextBlock", Text: `<script>alert("x")</script>`})
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped script tag in %q", out)
	}
}

func TestTableImplicitHeaderRow(t *testing.T) {
	text := `{
		"type": "AdaptiveCard",
		"body": [{
			"type": "Table",
			"rows": [
				{"cells": [{"items": [{"type": "TextBlock", "text": "Name"}]}]},
				{"cells": [{"items": [{"type": "TextBlock", "text": "Ada"}]}]}
			]
		}]
	}`
	out, _ := Render(text, "t")
	if !strings.Contains(out, "<thead>") {
		t.Fatalf("firstRowAsHeaders default did not produce a header row: %q", out)
	}
	headEnd := strings.Index(out, "</thead>")
	if !strings.Contains(out[:headEnd], "Name") {
		t.Fatalf("row 0 content not in header: %q", out)
	}
	if !strings.Contains(out[headEnd:], "Ada") {
		t.Fatalf("row 1 content missing from body: %q", out)
	}
}

func TestTableExplicitColumnsAndGridLines(t *testing.T) {
	f := false
	el := &Element{
		Type:          "Table",
		ShowGridLines: &f,
		TableColumns: []TableColumn{
			{Title: "Region", HorizontalAlignment: "Center"},
			{Title: "Total"},
		},
		Rows: []TableRow{
			{Cells: []TableCell{
				{Items: []Element{{Type: "TextBlock", Text: "EMEA"}}},
				{Items: []Element{{Type: "TextBlock", Text: "12"}}},
			}},
		},
	}
	out := RenderElement(el)
	if strings.Contains(out, "card-table-grid") {
		t.Fatalf("grid lines not suppressed: %q", out)
	}
	if !strings.Contains(out, ">Region</th>") || !strings.Contains(out, "text-align:center") {
		t.Fatalf("explicit column header/alignment missing: %q", out)
	}
	// With explicit columns, row 0 stays a data row.
	if !strings.Contains(out, "card-table-row-even") {
		t.Fatalf("data row missing parity class: %q", out)
	}
}

func TestTableRowShadingAlternates(t *testing.T) {
	f := false
	el := &Element{
		Type:              "Table",
		FirstRowAsHeaders: &f,
		Rows: []TableRow{
			{Cells: []TableCell{{}}},
			{Cells: []TableCell{{}}},
			{Cells: []TableCell{{}}},
		},
	}
	out := RenderElement(el)
	if strings.Count(out, "card-table-row-even") != 2 || strings.Count(out, "card-table-row-odd") != 1 {
		t.Fatalf("unexpected shading parity: %q", out)
	}
}

func TestProgressBarClamping(t *testing.T) {
	value := func(f float64) *float64 { return &f }

	cases := []struct {
		name    string
		el      Element
		percent string
	}{
		{"above max clamps", Element{Type: "ProgressBar", ProgressValue: value(250)}, "100.0%"},
		{"below min clamps", Element{Type: "ProgressBar", ProgressValue: value(-5)}, "0.0%"},
		{"midpoint", Element{Type: "ProgressBar", ProgressValue: value(25), ProgressMin: value(0), ProgressMax: value(50)}, "50.0%"},
		{"degenerate range", Element{Type: "ProgressBar", ProgressValue: value(10), ProgressMin: value(5), ProgressMax: value(5)}, "0.0%"},
	}
	for _, tc := range cases {
		out := RenderElement(&tc.el)
		if !strings.Contains(out, "width:"+tc.percent) {
			t.Fatalf("%s: output %q, want fill %s", tc.name, out, tc.percent)
		}
	}
}

func TestProgressBarValueKeyDecodesAsNumber(t *testing.T) {
	doc, err := ParseDocument(`{"body": [{"type": "ProgressBar", "value": 30}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bar := doc.Body[0]
	if bar.ProgressValue == nil || *bar.ProgressValue != 30 {
		t.Fatalf("ProgressValue = %v, want 30", bar.ProgressValue)
	}
}

func TestColumnSetRecursesInDocumentOrder(t *testing.T) {
	el := &Element{
		Type: "ColumnSet",
		Columns: []Column{
			{Items: []Element{{Type: "TextBlock", Text: "first"}}},
			{Items: []Element{{Type: "TextBlock", Text: "second"}}},
		},
	}
	out := RenderElement(el)
	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Fatalf("columns rendered out of document order: %q", out)
	}
}

func TestActionRendering(t *testing.T) {
	doc := &Document{
		Type: "AdaptiveCard",
		Body: []Element{{
			Type: "ActionSet",
			Actions: []Action{
				{Type: ActionOpenURL, Title: "Docs", URL: "https://example.com"},
				{Type: ActionSubmit, Title: "Send"},
				{Type: ActionPopover, Title: "More", Content: &Element{Type: "TextBlock", Text: "details inside"}},
			},
		}},
	}
	out := RenderDocument(doc)
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Fatalf("OpenUrl link missing: %q", out)
	}
	if !strings.Contains(out, `data-action-type="Action.Submit"`) {
		t.Fatalf("Submit button payload missing: %q", out)
	}
	if !strings.Contains(out, "card-popover") || !strings.Contains(out, "details inside") {
		t.Fatalf("popover content not rendered locally: %q", out)
	}
}

func TestInputChoiceSetSelectsValue(t *testing.T) {
	el := &Element{
		Type:  "Input.ChoiceSet",
		Value: "b",
		Choices: []Choice{
			{Title: "Alpha", Value: "a"},
			{Title: "Beta", Value: "b"},
		},
	}
	out := RenderElement(el)
	if !strings.Contains(out, `value="b" selected`) {
		t.Fatalf("choice not selected: %q", out)
	}
}

func TestRenderEmptyContentDistinctFromError(t *testing.T) {
	html, kind := Render("", "Weather")
	if kind != KindEmpty {
		t.Fatalf("kind = %s, want %s", kind, KindEmpty)
	}
	if strings.Contains(html, "card-error") {
		t.Fatalf("empty content rendered as an error: %q", html)
	}
	if !strings.Contains(html, "Weather") {
		t.Fatalf("empty panel missing candidate title: %q", html)
	}
}
