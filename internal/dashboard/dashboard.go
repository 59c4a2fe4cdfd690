// Package dashboard assembles a user's personalized card grid into
// rendered HTML fragments and a printable page.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"cardgrid/internal/carddoc"
	"cardgrid/internal/metrics"
	"cardgrid/internal/personalize"
)

// RenderedSlot 是栅格中一个槽位的渲染结果。空槽位 CardID 为 0。
type RenderedSlot struct {
	Slot   int    `json:"slot"`
	CardID uint   `json:"cardId,omitempty"`
	Title  string `json:"title,omitempty"`
	Kind   string `json:"kind"`
	HTML   string `json:"html"`
}

// Service renders the dashboard for one user at a time. Card HTML is
// looked up in the render cache before falling back to a full render.
type Service struct {
	cards    personalize.CardStore
	settings personalize.SettingsStore
	cache    RenderCache
	capacity int
}

func NewService(cards personalize.CardStore, settings personalize.SettingsStore, cache RenderCache) *Service {
	return &Service{
		cards:    cards,
		settings: settings,
		cache:    cache,
		capacity: personalize.DefaultCapacity,
	}
}

// Render loads the user's selection and renders every occupied slot.
// A card that fails to render yields an error panel in its own slot;
// the rest of the grid is unaffected.
func (s *Service) Render(ctx context.Context, userID uint) ([]RenderedSlot, error) {
	controller := personalize.NewController(s.capacity, s.cards, s.settings)
	if err := controller.Load(ctx, userID); err != nil {
		return nil, fmt.Errorf("load personalization: %w", err)
	}

	slots := controller.Slots()
	rendered := make([]RenderedSlot, 0, len(slots))
	for i, card := range slots {
		out := RenderedSlot{Slot: i + 1}
		if card == nil {
			out.Kind = "vacant"
			out.HTML = `<div class="card-slot-vacant"></div>`
			rendered = append(rendered, out)
			continue
		}

		out.CardID = card.ID
		out.Title = card.Title
		out.HTML, out.Kind = s.renderCard(ctx, card.Document, card.Title)
		rendered = append(rendered, out)
	}
	return rendered, nil
}

// NativeSlot 携带未渲染的原始文档，交由宿主端自行渲染。
type NativeSlot struct {
	Slot     int             `json:"slot"`
	CardID   uint            `json:"cardId,omitempty"`
	Title    string          `json:"title,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
}

// Native returns the occupied grid with verbatim card documents instead
// of rendered fragments.
func (s *Service) Native(ctx context.Context, userID uint) ([]NativeSlot, error) {
	controller := personalize.NewController(s.capacity, s.cards, s.settings)
	if err := controller.Load(ctx, userID); err != nil {
		return nil, fmt.Errorf("load personalization: %w", err)
	}

	slots := controller.Slots()
	out := make([]NativeSlot, 0, len(slots))
	for i, card := range slots {
		slot := NativeSlot{Slot: i + 1}
		if card != nil {
			slot.CardID = card.ID
			slot.Title = card.Title
			if json.Valid([]byte(card.Document)) {
				slot.Document = json.RawMessage(card.Document)
			}
		}
		out = append(out, slot)
	}
	return out, nil
}

func (s *Service) renderCard(ctx context.Context, document, title string) (string, string) {
	key := CacheKey(document, title)
	if s.cache != nil {
		if entry, ok, err := s.cache.Get(ctx, key); err != nil {
			slog.WarnContext(ctx, "render cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return entry.HTML, entry.Kind
		}
	}

	html, kind := carddoc.Render(document, title)
	metrics.ObserveCardRender(string(kind))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, CachedRender{HTML: html, Kind: string(kind)}); err != nil {
			slog.WarnContext(ctx, "render cache write failed", slog.String("error", err.Error()))
		}
	}
	return html, string(kind)
}

// ComposePage 将渲染好的槽位拼成一页完整的 HTML，供浏览器打印导出。
func ComposePage(heading string, slots []RenderedSlot) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(heading))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(pageCSS)
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString("<h1>")
	b.WriteString(html.EscapeString(heading))
	b.WriteString("</h1>\n<div class=\"card-grid\">\n")
	for _, slot := range slots {
		fmt.Fprintf(&b, "<section class=\"card-slot\" data-slot=\"%d\">\n", slot.Slot)
		if slot.Title != "" {
			b.WriteString("<h2>")
			b.WriteString(html.EscapeString(slot.Title))
			b.WriteString("</h2>\n")
		}
		b.WriteString(slot.HTML)
		b.WriteString("\n</section>\n")
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

const pageCSS = `body { font-family: "Segoe UI", sans-serif; margin: 24px; }
.card-grid { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; }
.card-slot { border: 1px solid #e1e1e1; border-radius: 8px; padding: 12px; overflow: hidden; }
.card-slot h2 { font-size: 16px; margin: 0 0 8px 0; }
.card-slot-vacant { min-height: 120px; }
.card-error, .card-empty { color: #69797e; font-size: 13px; }
.card-table { border-collapse: collapse; width: 100%; }
.card-table-grid td, .card-table-grid th { border: 1px solid #e1e1e1; }
.card-table td, .card-table th { padding: 4px 8px; text-align: left; }
.card-table-row-even { background: #fafafa; }
`
