package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cardgrid/internal/database"
	"cardgrid/internal/personalize"
	"cardgrid/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	doc := []byte(`{"type":"AdaptiveCard","version":"1.5","body":[{"type":"TextBlock","text":"hi"}]}`)
	cards := []database.Card{
		{Title: "Summary", Fixed: true, DefaultOrder: 1, Document: doc},
		{Title: "Revenue", DefaultOrder: 2, Document: doc},
		{Title: "Traffic", DefaultOrder: 3, Document: doc},
		{Title: "Alerts", DefaultOrder: 4, Document: doc},
		{Title: "Backlog", DefaultOrder: 5, Document: doc},
	}
	if err := db.Create(&cards).Error; err != nil {
		t.Fatalf("seed cards: %v", err)
	}
	user := database.User{Username: "alice", DisplayName: "Alice"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func withUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newSettingsRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewSettingsHandler(db, store.NewCardStore(db), store.NewSettingsStore(db), nil)
	router := gin.New()
	router.GET("/v1/settings", withUser(1), handler.GetSettings)
	router.PUT("/v1/settings", withUser(1), handler.PutSettings)
	return router
}

func TestGetSettingsIncludesFixedSelection(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newSettingsRouter(t, db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/settings", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Capacity      int `json:"capacity"`
		TotalSelected int `json:"totalSelected"`
		Cards         []struct {
			Title    string `json:"title"`
			Fixed    bool   `json:"fixed"`
			Selected bool   `json:"selected"`
		} `json:"cards"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Capacity != personalize.DefaultCapacity {
		t.Errorf("capacity = %d", resp.Capacity)
	}
	if len(resp.Cards) != 5 {
		t.Fatalf("expected 5 catalog cards, got %d", len(resp.Cards))
	}
	for _, card := range resp.Cards {
		if card.Fixed && !card.Selected {
			t.Errorf("fixed card %q not selected", card.Title)
		}
	}
}

func putSelection(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestPutSettingsPersistsSelection(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newSettingsRouter(t, db)

	w := putSelection(t, router, `{"selectedCards":[{"id":3,"order":1},{"id":2,"order":2}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	saved, err := store.NewSettingsStore(db).Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("read back settings: %v", err)
	}
	if saved == nil {
		t.Fatal("settings were not persisted")
	}
	if saved.TotalSelected != 3 {
		t.Fatalf("expected 3 selected (1 fixed + 2 user), got %d", saved.TotalSelected)
	}
	// 请求中 Traffic(order 1) 排在 Revenue(order 2) 之前。
	var trafficOrder, revenueOrder int
	for _, entry := range saved.SelectedCards {
		switch entry.Title {
		case "Traffic":
			trafficOrder = entry.Order
		case "Revenue":
			revenueOrder = entry.Order
		}
	}
	if trafficOrder == 0 || revenueOrder == 0 || trafficOrder >= revenueOrder {
		t.Fatalf("requested ordering lost: traffic=%d revenue=%d", trafficOrder, revenueOrder)
	}
}

func TestPutSettingsRejectsOverCapacity(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newSettingsRouter(t, db)

	// 1 固定 + 4 非固定超出 4 槽容量。
	w := putSelection(t, router, `{"selectedCards":[{"id":2,"order":1},{"id":3,"order":2},{"id":4,"order":3},{"id":5,"order":4}]}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.UserCardSetting{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected selection must not be persisted, found %d records", count)
	}
}

func TestPutSettingsRejectsUnknownCard(t *testing.T) {
	db := newTestDB(t)
	seedCatalog(t, db)
	router := newSettingsRouter(t, db)

	w := putSelection(t, router, `{"selectedCards":[{"id":999,"order":1}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
