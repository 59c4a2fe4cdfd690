package carddoc

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Render 是每张卡片独立的渲染边界：分类失败只影响本卡片，渲染结果
// 永远是一个 HTML 片段，不会向外抛出异常。
func Render(text, title string) (string, Kind) {
	c := Classify(text, title)
	switch c.Kind {
	case KindEmpty:
		return renderEmptyPanel(title), c.Kind
	case KindError:
		return renderErrorPanel("card content could not be parsed"), c.Kind
	case KindChart:
		return RenderChart(c.Chart), c.Kind
	default:
		return RenderDocument(c.Doc), c.Kind
	}
}

// RenderDocument renders a card document's body and root actions in
// document order.
func RenderDocument(doc *Document) string {
	if doc == nil {
		return renderErrorPanel("card document missing")
	}
	sb := &strings.Builder{}
	sb.WriteString(`<div class="card-body">`)
	for i := range doc.Body {
		sb.WriteString(RenderElement(&doc.Body[i]))
	}
	if len(doc.Actions) > 0 {
		renderActions(sb, doc.Actions)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// RenderElement renders one node of the element tree. It is a pure
// function of the subtree: identical input yields identical output.
// Unknown types render as a visible placeholder, never an error.
func RenderElement(el *Element) string {
	if el == nil {
		return ""
	}
	sb := &strings.Builder{}
	switch el.Type {
	case "TextBlock":
		renderTextBlock(sb, el)
	case "RichTextBlock":
		renderRichTextBlock(sb, el)
	case "TextRun":
		renderTextRun(sb, el)
	case "Image":
		renderImage(sb, el)
	case "ImageSet":
		renderImageSet(sb, el)
	case "Media":
		renderMedia(sb, el)
	case "Table":
		renderTable(sb, el)
	case "FactSet":
		renderFactSet(sb, el)
	case "ActionSet":
		renderActions(sb, el.Actions)
	case "ColumnSet":
		renderColumnSet(sb, el)
	case "Container":
		renderContainer(sb, el)
	case "Input.Text":
		renderInputText(sb, el, "text")
	case "Input.Number":
		renderInputText(sb, el, "number")
	case "Input.Date":
		renderInputText(sb, el, "date")
	case "Input.Time":
		renderInputText(sb, el, "time")
	case "Input.Toggle":
		renderInputToggle(sb, el)
	case "Input.ChoiceSet":
		renderInputChoiceSet(sb, el)
	case "ProgressBar":
		renderProgressBar(sb, el)
	case "CompoundButton":
		renderCompoundButton(sb, el)
	default:
		if isChartType(el.Type) {
			sb.WriteString(RenderChart(chartSpecFromElement(el, el.Title)))
		} else {
			renderUnknown(sb, el)
		}
	}
	return sb.String()
}

func escapeHTML(s string) string { return html.EscapeString(s) }

func renderErrorPanel(msg string) string {
	return `<div class="card-error" role="alert">` + escapeHTML(msg) + `</div>`
}

func renderEmptyPanel(title string) string {
	label := strings.TrimSpace(title)
	if label == "" {
		label = "card"
	}
	return `<div class="card-empty">No content available for ` + escapeHTML(label) + `</div>`
}

// Style attribute mappings. Every mapping is total: any unrecognized
// input value falls through to the default.

func fontSize(size string) string {
	switch strings.ToLower(size) {
	case "small":
		return "12px"
	case "medium":
		return "16px"
	case "large":
		return "20px"
	case "extralarge":
		return "24px"
	default:
		return "14px"
	}
}

func fontWeight(weight string) string {
	switch strings.ToLower(weight) {
	case "bolder":
		return "700"
	case "bold":
		return "600"
	default:
		return "400"
	}
}

func textColor(color string) string {
	switch strings.ToLower(color) {
	case "dark":
		return "#201f1e"
	case "light":
		return "#8a8886"
	case "accent":
		return "#0078d4"
	case "good":
		return "#498205"
	case "warning":
		return "#ffaa44"
	case "attention":
		return "#d13438"
	default:
		return "#323130"
	}
}

func textAlign(alignment string) string {
	switch strings.ToLower(alignment) {
	case "center":
		return "center"
	case "right":
		return "right"
	default:
		return "left"
	}
}

func spacingMargin(spacing string) string {
	switch strings.ToLower(spacing) {
	case "none":
		return "0"
	case "small":
		return "4px"
	case "large":
		return "16px"
	case "extralarge":
		return "24px"
	default:
		return "8px"
	}
}

func renderTextBlock(sb *strings.Builder, el *Element) {
	wrap := "nowrap"
	if el.Wrap {
		wrap = "normal"
	}
	fmt.Fprintf(sb,
		`<p class="card-text" style="font-size:%s;font-weight:%s;color:%s;text-align:%s;margin-top:%s;white-space:%s">%s</p>`,
		fontSize(el.Size), fontWeight(el.Weight), textColor(el.Color),
		textAlign(el.HorizontalAlignment), spacingMargin(el.Spacing), wrap,
		escapeHTML(el.Text))
}

func renderRichTextBlock(sb *strings.Builder, el *Element) {
	fmt.Fprintf(sb, `<p class="card-richtext" style="text-align:%s">`, textAlign(el.HorizontalAlignment))
	for i := range el.Inlines {
		inline := &el.Inlines[i]
		if inline.Type == "" || inline.Type == "TextRun" {
			renderTextRun(sb, inline)
		} else {
			sb.WriteString(RenderElement(inline))
		}
	}
	sb.WriteString(`</p>`)
}

func renderTextRun(sb *strings.Builder, el *Element) {
	style := fmt.Sprintf("font-size:%s;font-weight:%s;color:%s",
		fontSize(el.Size), fontWeight(el.Weight), textColor(el.Color))
	if el.IsSubtle {
		style += ";opacity:0.7"
	}
	fmt.Fprintf(sb, `<span class="card-textrun" style="%s">%s</span>`, style, escapeHTML(el.Text))
}

func imageWidth(size string) string {
	switch strings.ToLower(size) {
	case "small":
		return "40px"
	case "medium":
		return "80px"
	case "large":
		return "160px"
	case "stretch":
		return "100%"
	default:
		return "auto"
	}
}

func renderImage(sb *strings.Builder, el *Element) {
	fmt.Fprintf(sb, `<img class="card-image" src="%s" alt="%s" style="width:%s"/>`,
		escapeHTML(el.URL), escapeHTML(el.AltText), imageWidth(el.Size))
}

func renderImageSet(sb *strings.Builder, el *Element) {
	sb.WriteString(`<div class="card-imageset">`)
	for i := range el.Images {
		renderImage(sb, &el.Images[i])
	}
	sb.WriteString(`</div>`)
}

func renderMedia(sb *strings.Builder, el *Element) {
	poster := ""
	if el.Poster != "" {
		poster = fmt.Sprintf(` poster="%s"`, escapeHTML(el.Poster))
	}
	fmt.Fprintf(sb, `<video class="card-media" controls%s>`, poster)
	for _, src := range el.Sources {
		mime := ""
		if src.MimeType != "" {
			mime = fmt.Sprintf(` type="%s"`, escapeHTML(src.MimeType))
		}
		fmt.Fprintf(sb, `<source src="%s"%s/>`, escapeHTML(src.URL), mime)
	}
	sb.WriteString(`</video>`)
}

func cellAlign(cellAlignment, columnAlignment string) string {
	if cellAlignment != "" {
		return textAlign(cellAlignment)
	}
	return textAlign(columnAlignment)
}

func cellVAlign(cellAlignment, columnAlignment string) string {
	alignment := cellAlignment
	if alignment == "" {
		alignment = columnAlignment
	}
	switch strings.ToLower(alignment) {
	case "top":
		return "top"
	case "bottom":
		return "bottom"
	default:
		return "middle"
	}
}

// renderTable renders header rows from an explicit tableColumns spec or,
// absent one, treats row 0 as headers when firstRowAsHeaders (default
// true). Row shading alternates by index parity; grid lines honor
// showGridLines (default true).
func renderTable(sb *strings.Builder, el *Element) {
	showGrid := true
	if el.ShowGridLines != nil {
		showGrid = *el.ShowGridLines
	}
	firstRowHeaders := true
	if el.FirstRowAsHeaders != nil {
		firstRowHeaders = *el.FirstRowAsHeaders
	}

	tableClass := "card-table"
	if showGrid {
		tableClass += " card-table-grid"
	}
	fmt.Fprintf(sb, `<table class="%s">`, tableClass)

	rows := el.Rows
	if len(el.TableColumns) > 0 {
		hasTitles := false
		for _, col := range el.TableColumns {
			if col.Title != "" {
				hasTitles = true
				break
			}
		}
		if hasTitles {
			sb.WriteString(`<thead><tr>`)
			for _, col := range el.TableColumns {
				fmt.Fprintf(sb, `<th style="text-align:%s">%s</th>`,
					textAlign(col.HorizontalAlignment), escapeHTML(col.Title))
			}
			sb.WriteString(`</tr></thead>`)
		}
	} else if firstRowHeaders && len(rows) > 0 {
		sb.WriteString(`<thead><tr>`)
		for ci := range rows[0].Cells {
			cell := &rows[0].Cells[ci]
			fmt.Fprintf(sb, `<th style="text-align:%s">`, textAlign(cell.HorizontalAlignment))
			for ii := range cell.Items {
				sb.WriteString(RenderElement(&cell.Items[ii]))
			}
			sb.WriteString(`</th>`)
		}
		sb.WriteString(`</tr></thead>`)
		rows = rows[1:]
	}

	sb.WriteString(`<tbody>`)
	for ri := range rows {
		rowClass := "card-table-row-even"
		if ri%2 == 1 {
			rowClass = "card-table-row-odd"
		}
		fmt.Fprintf(sb, `<tr class="%s">`, rowClass)
		for ci := range rows[ri].Cells {
			cell := &rows[ri].Cells[ci]
			colH, colV := "", ""
			if ci < len(el.TableColumns) {
				colH = el.TableColumns[ci].HorizontalAlignment
				colV = el.TableColumns[ci].VerticalAlignment
			}
			fmt.Fprintf(sb, `<td style="text-align:%s;vertical-align:%s">`,
				cellAlign(cell.HorizontalAlignment, colH),
				cellVAlign(cell.VerticalAlignment, colV))
			for ii := range cell.Items {
				sb.WriteString(RenderElement(&cell.Items[ii]))
			}
			sb.WriteString(`</td>`)
		}
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table>`)
}

func renderFactSet(sb *strings.Builder, el *Element) {
	sb.WriteString(`<dl class="card-factset">`)
	for _, fact := range el.Facts {
		fmt.Fprintf(sb, `<dt>%s</dt><dd>%s</dd>`,
			escapeHTML(fact.Title), escapeHTML(fact.Value))
	}
	sb.WriteString(`</dl>`)
}

func renderColumnSet(sb *strings.Builder, el *Element) {
	sb.WriteString(`<div class="card-columnset" style="display:flex;gap:8px">`)
	for i := range el.Columns {
		col := &el.Columns[i]
		flex := "1"
		switch strings.ToLower(col.Width) {
		case "", "stretch":
			flex = "1"
		case "auto":
			flex = "0 0 auto"
		default:
			flex = escapeHTML(col.Width)
		}
		fmt.Fprintf(sb, `<div class="card-column" style="flex:%s">`, flex)
		for j := range col.Items {
			sb.WriteString(RenderElement(&col.Items[j]))
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</div>`)
}

func renderContainer(sb *strings.Builder, el *Element) {
	class := "card-container"
	if el.Style != "" {
		class += " card-container-" + strings.ToLower(el.Style)
	}
	fmt.Fprintf(sb, `<div class="%s" style="margin-top:%s">`, escapeHTML(class), spacingMargin(el.Spacing))
	for i := range el.Items {
		sb.WriteString(RenderElement(&el.Items[i]))
	}
	sb.WriteString(`</div>`)
}

func renderInputText(sb *strings.Builder, el *Element, inputType string) {
	sb.WriteString(`<label class="card-input">`)
	if el.Label != "" {
		fmt.Fprintf(sb, `<span class="card-input-label">%s</span>`, escapeHTML(el.Label))
	}
	fmt.Fprintf(sb, `<input type="%s" placeholder="%s" value="%s" disabled/>`,
		inputType, escapeHTML(el.Placeholder), escapeHTML(el.Value))
	sb.WriteString(`</label>`)
}

func renderInputToggle(sb *strings.Builder, el *Element) {
	checked := ""
	if strings.EqualFold(el.Value, "true") {
		checked = " checked"
	}
	fmt.Fprintf(sb, `<label class="card-input card-input-toggle"><input type="checkbox"%s disabled/>%s</label>`,
		checked, escapeHTML(el.Title))
}

func renderInputChoiceSet(sb *strings.Builder, el *Element) {
	multiple := ""
	if el.IsMultiSelect {
		multiple = " multiple"
	}
	sb.WriteString(`<label class="card-input">`)
	if el.Label != "" {
		fmt.Fprintf(sb, `<span class="card-input-label">%s</span>`, escapeHTML(el.Label))
	}
	fmt.Fprintf(sb, `<select%s disabled>`, multiple)
	for _, choice := range el.Choices {
		selected := ""
		if choice.Value != "" && choice.Value == el.Value {
			selected = ` selected`
		}
		fmt.Fprintf(sb, `<option value="%s"%s>%s</option>`,
			escapeHTML(choice.Value), selected, escapeHTML(choice.Title))
	}
	sb.WriteString(`</select></label>`)
}

// renderProgressBar clamps the value into [min,max] before computing the
// fill percentage; a degenerate range (max <= min) forces 0%.
func renderProgressBar(sb *strings.Builder, el *Element) {
	min, max := 0.0, 100.0
	if el.ProgressMin != nil {
		min = *el.ProgressMin
	}
	if el.ProgressMax != nil {
		max = *el.ProgressMax
	}
	value := min
	if el.ProgressValue != nil {
		value = *el.ProgressValue
	}
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}

	percent := 0.0
	if max > min {
		percent = (value - min) / (max - min) * 100
	}

	sb.WriteString(`<div class="card-progress">`)
	if el.Label != "" {
		fmt.Fprintf(sb, `<span class="card-progress-label">%s</span>`, escapeHTML(el.Label))
	}
	fmt.Fprintf(sb,
		`<div class="card-progress-track"><div class="card-progress-fill" style="width:%.1f%%"></div></div>`,
		percent)
	sb.WriteString(`</div>`)
}

func renderCompoundButton(sb *strings.Builder, el *Element) {
	sb.WriteString(`<button class="card-compound-button" type="button">`)
	if el.Icon != "" {
		fmt.Fprintf(sb, `<span class="card-compound-icon">%s</span>`, escapeHTML(el.Icon))
	}
	fmt.Fprintf(sb, `<span class="card-compound-title">%s</span>`, escapeHTML(el.Title))
	if el.Description != "" {
		fmt.Fprintf(sb, `<span class="card-compound-description">%s</span>`, escapeHTML(el.Description))
	}
	sb.WriteString(`</button>`)
}

// renderUnknown keeps sibling rendering alive: the placeholder carries
// the literal type string so unsupported content is visible, not fatal.
func renderUnknown(sb *strings.Builder, el *Element) {
	label := el.Type
	if label == "" {
		label = "(untyped)"
	}
	fmt.Fprintf(sb, `<div class="card-unsupported">Unsupported element: %s</div>`, escapeHTML(label))
}

// renderActions renders an action strip. OpenUrl becomes a plain link and
// Popover an inline overlay of its nested content; every other action type
// becomes a button whose raw payload is posted back to the host callback.
func renderActions(sb *strings.Builder, actions []Action) {
	sb.WriteString(`<div class="card-actionset">`)
	for i := range actions {
		action := &actions[i]
		switch action.Type {
		case ActionOpenURL:
			fmt.Fprintf(sb, `<a class="card-action card-action-link" href="%s" target="_blank" rel="noopener">%s</a>`,
				escapeHTML(action.URL), escapeHTML(actionTitle(action)))
		case ActionPopover:
			renderPopover(sb, action)
		default:
			payload, err := json.Marshal(action)
			if err != nil {
				payload = []byte("{}")
			}
			fmt.Fprintf(sb, `<button class="card-action" type="button" data-action-type="%s" data-action="%s">%s</button>`,
				escapeHTML(action.Type), escapeHTML(string(payload)), escapeHTML(actionTitle(action)))
		}
	}
	sb.WriteString(`</div>`)
}

// renderPopover 在本地渲染嵌套内容，不会转发给宿主回调。
// 关闭行为（外部点击 / Escape / 显式关闭）由前端的 details 语义承担。
func renderPopover(sb *strings.Builder, action *Action) {
	fmt.Fprintf(sb, `<details class="card-popover"><summary class="card-action">%s</summary><div class="card-popover-content">`,
		escapeHTML(actionTitle(action)))
	if action.Content != nil {
		sb.WriteString(RenderElement(action.Content))
	}
	sb.WriteString(`</div></details>`)
}

func actionTitle(action *Action) string {
	if action.Title != "" {
		return action.Title
	}
	return action.Type
}
