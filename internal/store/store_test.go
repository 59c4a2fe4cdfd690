package store

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cardgrid/internal/database"
	"cardgrid/internal/personalize"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func TestCardStoreListOrdersByDefaultOrder(t *testing.T) {
	db := setupTestDB(t)
	cards := []database.Card{
		{Title: "Third", DefaultOrder: 3, Document: []byte(`{}`)},
		{Title: "First", Fixed: true, DefaultOrder: 1, Document: []byte(`{}`)},
		{Title: "Second", DefaultOrder: 2, Document: []byte(`{}`)},
	}
	if err := db.Create(&cards).Error; err != nil {
		t.Fatalf("seed cards: %v", err)
	}

	rows, err := NewCardStore(db).ListCards(context.Background())
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if rows[i].Title != want {
			t.Errorf("row %d: got %q, want %q", i, rows[i].Title, want)
		}
	}
	if !rows[0].Fixed {
		t.Error("fixed flag was not carried through")
	}
}

func TestSettingsStoreGetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	got, err := NewSettingsStore(db).Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil settings for unknown user, got %+v", got)
	}
}

func TestSettingsStorePutThenGet(t *testing.T) {
	db := setupTestDB(t)
	s := NewSettingsStore(db)
	settings := personalize.Settings{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		SelectedCards: []personalize.SelectedCard{
			{ID: 1, Title: "Revenue", Order: 1},
			{ID: 4, Title: "Alerts", Order: 2},
		},
		TotalSelected: 2,
	}
	if err := s.Put(context.Background(), 7, "alice", settings); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected settings, got nil")
	}
	if got.TotalSelected != 2 || len(got.SelectedCards) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.SelectedCards[1].Title != "Alerts" {
		t.Errorf("selection order lost: %+v", got.SelectedCards)
	}
}

func TestSettingsStorePutUpsertsSingleRecord(t *testing.T) {
	db := setupTestDB(t)
	s := NewSettingsStore(db)
	ctx := context.Background()

	first := personalize.Settings{TotalSelected: 1, SelectedCards: []personalize.SelectedCard{{ID: 1, Order: 1}}}
	second := personalize.Settings{TotalSelected: 2, SelectedCards: []personalize.SelectedCard{{ID: 1, Order: 1}, {ID: 2, Order: 2}}}
	if err := s.Put(ctx, 7, "alice", first); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put(ctx, 7, "alice", second); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	var count int64
	if err := db.Model(&database.UserCardSetting{}).Where("user_id = ?", 7).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one record per user, got %d", count)
	}

	got, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalSelected != 2 {
		t.Fatalf("expected latest payload, got %+v", got)
	}
}
