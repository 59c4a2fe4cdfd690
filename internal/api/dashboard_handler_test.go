package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cardgrid/internal/dashboard"
	"cardgrid/internal/store"
)

func newDashboardRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dashboards := dashboard.NewService(store.NewCardStore(db), store.NewSettingsStore(db), nil)
	handler := NewDashboardHandler(db, dashboards, nil, nil, 0, slog.Default())
	router := gin.New()
	router.GET("/v1/dashboard", withUser(1), handler.GetDashboard)
	router.POST("/v1/dashboard/action", withUser(1), handler.DispatchAction)
	return router
}

func TestGetDashboardReturnsFourSlots(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Slots []struct {
			Slot int    `json:"slot"`
			Kind string `json:"kind"`
			HTML string `json:"html"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Kind != "simpleCard" {
		t.Errorf("fixed card slot kind = %q", resp.Slots[0].Kind)
	}
	for _, slot := range resp.Slots {
		if slot.HTML == "" {
			t.Errorf("slot %d has no fragment", slot.Slot)
		}
	}
}

func TestGetDashboardNativeModeReturnsRawDocuments(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard?renderMode=native", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RenderMode string `json:"renderMode"`
		Slots      []struct {
			CardID   uint            `json:"cardId"`
			Document json.RawMessage `json:"document"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RenderMode != "native" {
		t.Fatalf("renderMode = %q", resp.RenderMode)
	}
	if len(resp.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].CardID == 0 || len(resp.Slots[0].Document) == 0 {
		t.Fatalf("first slot missing raw document: %+v", resp.Slots[0])
	}
}

func dispatchAction(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/dashboard/action", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestDispatchActionOpenURL(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := dispatchAction(t, router, `{"action":{"type":"Action.OpenUrl","url":"https://example.com/report"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestDispatchActionRejectsBadScheme(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := dispatchAction(t, router, `{"action":{"type":"Action.OpenUrl","url":"javascript:alert(1)"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDispatchActionRejectsPopover(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := dispatchAction(t, router, `{"action":{"type":"Action.Popover","title":"More"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDispatchActionForwardsSubmit(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newDashboardRouter(t, db)

	w := dispatchAction(t, router, `{"action":{"type":"Action.Submit","title":"Apply","data":{"filter":"today"}}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["dispatched"] != "Action.Submit" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
