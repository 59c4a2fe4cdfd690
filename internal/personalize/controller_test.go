package personalize

import (
	"context"
	"errors"
	"testing"
)

type fakeCardStore struct {
	rows []CardRow
	err  error
}

func (s *fakeCardStore) ListCards(_ context.Context) ([]CardRow, error) {
	return s.rows, s.err
}

type fakeSettingsStore struct {
	records map[uint]*Settings
	putErr  error
	puts    int
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{records: map[uint]*Settings{}}
}

func (s *fakeSettingsStore) Get(_ context.Context, userID uint) (*Settings, error) {
	return s.records[userID], nil
}

func (s *fakeSettingsStore) Put(_ context.Context, userID uint, _ string, settings Settings) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	copied := settings
	s.records[userID] = &copied
	return nil
}

func catalog() []CardRow {
	return []CardRow{
		{ID: 1, Title: "Announcements", Fixed: true, DefaultOrder: 1},
		{ID: 2, Title: "Revenue", Fixed: true, DefaultOrder: 3},
		{ID: 3, Title: "Weather", DefaultOrder: 4},
		{ID: 4, Title: "Stocks", DefaultOrder: 5},
		{ID: 5, Title: "Tasks", DefaultOrder: 6},
		{ID: 6, Title: "News", DefaultOrder: 7},
	}
}

func loadedController(t *testing.T, settings *Settings) (*Controller, *fakeSettingsStore) {
	t.Helper()
	cardStore := &fakeCardStore{rows: catalog()}
	settingsStore := newFakeSettingsStore()
	if settings != nil {
		settingsStore.records[7] = settings
	}
	c := NewController(DefaultCapacity, cardStore, settingsStore)
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	return c, settingsStore
}

func TestLoadForcesFixedCardsSelected(t *testing.T) {
	c, _ := loadedController(t, nil)
	for _, card := range c.Cards() {
		if card.Fixed && (!card.Selected || !card.Visible || card.Order != card.DefaultOrder) {
			t.Fatalf("fixed card %d not pinned: %+v", card.ID, card)
		}
		if !card.Fixed && card.Selected {
			t.Fatalf("non-fixed card %d selected without settings: %+v", card.ID, card)
		}
	}
}

func TestLoadMergesPersistedSettings(t *testing.T) {
	c, _ := loadedController(t, &Settings{
		SelectedCards: []SelectedCard{
			{ID: 4, Title: "Stocks", Order: 1},
			{ID: 3, Title: "Weather", Order: 2},
		},
		TotalSelected: 2,
	})
	cards := c.Cards()
	byID := map[uint]Card{}
	for _, card := range cards {
		byID[card.ID] = card
	}
	if !byID[4].Selected || byID[4].Order != 1 {
		t.Fatalf("card 4 = %+v, want selected order 1", byID[4])
	}
	if !byID[3].Selected || byID[3].Order != 2 {
		t.Fatalf("card 3 = %+v, want selected order 2", byID[3])
	}
	if byID[5].Selected {
		t.Fatalf("card 5 should remain available: %+v", byID[5])
	}
}

func TestOperationsRejectedBeforeLoad(t *testing.T) {
	c := NewController(4, &fakeCardStore{}, newFakeSettingsStore())
	if err := c.ToggleSelect(1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("ToggleSelect before load: %v", err)
	}
	if err := c.Save(context.Background(), 7, "x"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Save before load: %v", err)
	}
}

func TestToggleSelectCapacity(t *testing.T) {
	// 2 fixed cards leave room for 2 user cards in a 4-slot grid.
	c, _ := loadedController(t, nil)

	if err := c.ToggleSelect(3); err != nil {
		t.Fatalf("select 3: %v", err)
	}
	if err := c.ToggleSelect(4); err != nil {
		t.Fatalf("select 4: %v", err)
	}
	err := c.ToggleSelect(5)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("select beyond capacity: %v", err)
	}
	// State unchanged by the rejected toggle.
	for _, card := range c.Cards() {
		if card.ID == 5 && card.Selected {
			t.Fatal("rejected toggle mutated state")
		}
	}
}

func TestToggleSelectSingleFixedAllowsThreeThenRejectsFourth(t *testing.T) {
	rows := []CardRow{
		{ID: 1, Title: "Pinned", Fixed: true, DefaultOrder: 1},
		{ID: 2, Title: "a", DefaultOrder: 2},
		{ID: 3, Title: "b", DefaultOrder: 3},
		{ID: 4, Title: "c", DefaultOrder: 4},
		{ID: 5, Title: "d", DefaultOrder: 5},
	}
	c := NewController(4, &fakeCardStore{rows: rows}, newFakeSettingsStore())
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, id := range []uint{2, 3, 4} {
		if err := c.ToggleSelect(id); err != nil {
			t.Fatalf("select %d: %v", id, err)
		}
	}
	if err := c.ToggleSelect(5); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("fourth non-fixed selection should be rejected, got %v", err)
	}
}

func TestToggleSelectFixedRejected(t *testing.T) {
	c, _ := loadedController(t, nil)
	if err := c.ToggleSelect(1); !errors.Is(err, ErrFixedCard) {
		t.Fatalf("toggling a fixed card: %v", err)
	}
}

func TestSlotAssignmentTwoPass(t *testing.T) {
	// 2 fixed at defaultOrder 1 and 3; 3 selected user cards ordered 1,2,3.
	// Expected: fixed at slots 0 and 2, user cards at 1 and 3, third dropped.
	c, _ := loadedController(t, &Settings{
		SelectedCards: []SelectedCard{
			{ID: 3, Order: 1},
			{ID: 4, Order: 2},
			{ID: 5, Order: 3},
		},
	})

	slots := c.Slots()
	if len(slots) != 4 {
		t.Fatalf("slot count = %d", len(slots))
	}
	wantIDs := []uint{1, 3, 2, 4}
	for i, want := range wantIDs {
		if slots[i] == nil || slots[i].ID != want {
			t.Fatalf("slot %d = %+v, want card %d", i, slots[i], want)
		}
	}
}

func TestSlotAssignmentSkipsOutOfRangeFixed(t *testing.T) {
	rows := []CardRow{
		{ID: 1, Title: "ok", Fixed: true, DefaultOrder: 2},
		{ID: 2, Title: "beyond", Fixed: true, DefaultOrder: 9},
	}
	c := NewController(4, &fakeCardStore{rows: rows}, newFakeSettingsStore())
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	slots := c.Slots()
	if slots[1] == nil || slots[1].ID != 1 {
		t.Fatalf("slot 1 = %+v", slots[1])
	}
	for i, slot := range slots {
		if i != 1 && slot != nil {
			t.Fatalf("slot %d should be empty, got card %d", i, slot.ID)
		}
	}
}

func TestReorderSpliceSemantics(t *testing.T) {
	c, _ := loadedController(t, &Settings{
		SelectedCards: []SelectedCard{
			{ID: 3, Order: 1},
			{ID: 4, Order: 2},
		},
	})

	if err := c.BeginDrag(4); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if err := c.DropOn(3); err != nil {
		t.Fatalf("drop: %v", err)
	}

	byID := map[uint]Card{}
	for _, card := range c.Cards() {
		byID[card.ID] = card
	}
	if byID[4].Order != 1 || byID[3].Order != 2 {
		t.Fatalf("orders after reorder: card4=%d card3=%d", byID[4].Order, byID[3].Order)
	}

	if _, active := c.Dragging(); active {
		t.Fatal("drag state not reset after drop")
	}
}

func TestDragRejectsFixedAndUnselected(t *testing.T) {
	c, _ := loadedController(t, &Settings{
		SelectedCards: []SelectedCard{{ID: 3, Order: 1}},
	})

	if err := c.BeginDrag(1); !errors.Is(err, ErrFixedCard) {
		t.Fatalf("dragging a fixed card: %v", err)
	}
	if err := c.BeginDrag(5); !errors.Is(err, ErrNotSelected) {
		t.Fatalf("dragging an unselected card: %v", err)
	}

	// A fixed card is not a valid drop target either.
	if err := c.BeginDrag(3); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if err := c.DropOn(1); !errors.Is(err, ErrInvalidDropTarget) {
		t.Fatalf("dropping on a fixed card: %v", err)
	}
	if _, active := c.Dragging(); active {
		t.Fatal("drag state must reset even on a rejected drop")
	}
}

func TestSaveValidatesBeforeWrite(t *testing.T) {
	c, settingsStore := loadedController(t, nil)

	// Force an over-capacity state directly to verify the guard runs
	// before any store write.
	for i := range c.cards {
		c.cards[i].Selected = true
	}
	err := c.Save(context.Background(), 7, "Dana")
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("save over capacity: %v", err)
	}
	if settingsStore.puts != 0 {
		t.Fatal("store written despite constraint violation")
	}
}

func TestSavePersistsOrderedSelection(t *testing.T) {
	c, settingsStore := loadedController(t, nil)
	if err := c.ToggleSelect(4); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := c.Save(context.Background(), 7, "Dana"); err != nil {
		t.Fatalf("save: %v", err)
	}

	record := settingsStore.records[7]
	if record == nil {
		t.Fatal("no settings persisted")
	}
	if record.TotalSelected != 3 {
		t.Fatalf("totalSelected = %d, want 3", record.TotalSelected)
	}
	if record.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	// Visibility recomputed from selection.
	for _, card := range c.Cards() {
		if card.Selected != card.Visible {
			t.Fatalf("card %d visible=%v selected=%v", card.ID, card.Visible, card.Selected)
		}
	}
}

func TestCancelRestoresSnapshot(t *testing.T) {
	c, _ := loadedController(t, nil)
	c.BeginCustomize()

	if err := c.ToggleSelect(3); err != nil {
		t.Fatalf("select: %v", err)
	}
	c.Cancel()

	for _, card := range c.Cards() {
		if card.ID == 3 && card.Selected {
			t.Fatal("cancel did not roll back the selection")
		}
	}
}

func TestLoadReplacesSetWholesale(t *testing.T) {
	cardStore := &fakeCardStore{rows: catalog()}
	settingsStore := newFakeSettingsStore()
	c := NewController(4, cardStore, settingsStore)
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.ToggleSelect(3); err != nil {
		t.Fatalf("select: %v", err)
	}

	cardStore.rows = catalog()[:2]
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(c.Cards()) != 2 {
		t.Fatalf("card set not replaced, len = %d", len(c.Cards()))
	}
}

func TestEmptyCatalogIsNotAFault(t *testing.T) {
	c := NewController(4, &fakeCardStore{}, newFakeSettingsStore())
	if err := c.Load(context.Background(), 7); err != nil {
		t.Fatalf("load with empty catalog: %v", err)
	}
	for _, slot := range c.Slots() {
		if slot != nil {
			t.Fatal("empty catalog should yield empty slots")
		}
	}
}
