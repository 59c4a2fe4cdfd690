// Package personalize owns the slotted-grid personalization state
// machine: which cards a user selected, in what order, and how fixed and
// free-floating cards share the fixed-capacity grid.
package personalize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultCapacity 是仪表盘可见卡片的槽位数。
const DefaultCapacity = 4

var (
	ErrNotLoaded         = errors.New("card set not loaded yet")
	ErrUnknownCard       = errors.New("unknown card id")
	ErrFixedCard         = errors.New("fixed cards cannot be changed")
	ErrNotSelected       = errors.New("card is not selected")
	ErrCapacityExceeded  = errors.New("selection exceeds grid capacity")
	ErrNoDragInProgress  = errors.New("no drag in progress")
	ErrInvalidDropTarget = errors.New("drop target must be a selected, non-fixed card")
)

// Card 是个性化流程中的卡片实体。Fixed 在实体生命周期内不可变；
// Order/Selected/Visible 随用户交互变化，整组数据在每次 Load 时整体替换。
//
// DefaultOrder 与 Order 是两套并存的排序键：固定卡片按 DefaultOrder
// 占槽，自由卡片按 Order 拖拽排序，二者只在两趟占槽算法里汇合。
type Card struct {
	ID           uint
	Title        string
	Tooltip      string
	Fixed        bool
	DefaultOrder int
	Order        int
	Selected     bool
	Visible      bool
	Document     string
}

// Controller exclusively owns the in-memory card set; durable state stays
// in the injected stores. It is not safe for concurrent use: the caller
// serializes interaction the way a UI event loop does.
type Controller struct {
	capacity      int
	cardStore     CardStore
	settingsStore SettingsStore

	cards    []Card
	snapshot []Card
	loaded   bool

	// Ephemeral drag state, scoped to one gesture.
	dragging bool
	dragID   uint
}

// NewController 构造控制器；capacity <= 0 时使用默认的 4 槽。
func NewController(capacity int, cardStore CardStore, settingsStore SettingsStore) *Controller {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Controller{
		capacity:      capacity,
		cardStore:     cardStore,
		settingsStore: settingsStore,
	}
}

// Capacity returns the number of grid slots.
func (c *Controller) Capacity() int { return c.capacity }

// Loaded reports whether the initial load completed; customize operations
// are rejected until it has.
func (c *Controller) Loaded() bool { return c.loaded }

// Load fetches the card list and the user's persisted settings and
// rebuilds the card set wholesale. Fixed cards are forced selected at
// their default order; non-fixed cards take their order from settings
// when referenced there, otherwise they start unselected. An empty card
// list is a legitimate transient state, not a fault.
func (c *Controller) Load(ctx context.Context, userID uint) error {
	rows, err := c.cardStore.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}

	settings, err := c.settingsStore.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	persisted := map[uint]int{}
	if settings != nil {
		for _, sc := range settings.SelectedCards {
			persisted[sc.ID] = sc.Order
		}
	}

	cards := make([]Card, 0, len(rows))
	for _, row := range rows {
		card := Card{
			ID:           row.ID,
			Title:        row.Title,
			Tooltip:      row.Tooltip,
			Fixed:        row.Fixed,
			DefaultOrder: row.DefaultOrder,
			Order:        row.DefaultOrder,
			Document:     row.Document,
		}
		switch {
		case row.Fixed:
			card.Selected = true
			card.Visible = true
			card.Order = row.DefaultOrder
		default:
			if order, ok := persisted[row.ID]; ok {
				card.Selected = true
				card.Visible = true
				card.Order = order
			}
		}
		cards = append(cards, card)
	}

	c.cards = cards
	c.snapshot = nil
	c.loaded = true
	c.resetDrag()
	return nil
}

// Cards returns a copy of the current card set ordered by default order.
func (c *Controller) Cards() []Card {
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DefaultOrder < out[j].DefaultOrder
	})
	return out
}

// FixedCount returns the number of fixed cards in the set.
func (c *Controller) FixedCount() int {
	n := 0
	for i := range c.cards {
		if c.cards[i].Fixed {
			n++
		}
	}
	return n
}

// BeginCustomize captures the state the customize flow can roll back to.
func (c *Controller) BeginCustomize() {
	c.snapshot = make([]Card, len(c.cards))
	copy(c.snapshot, c.cards)
}

// Cancel discards pending mutations and restores the captured snapshot.
func (c *Controller) Cancel() {
	if c.snapshot != nil {
		c.cards = make([]Card, len(c.snapshot))
		copy(c.cards, c.snapshot)
	}
	c.resetDrag()
}

// ToggleSelect flips selection for a non-fixed card. Selecting is a
// no-op error when it would push the non-fixed selected count above
// capacity minus the fixed count.
func (c *Controller) ToggleSelect(id uint) error {
	if !c.loaded {
		return ErrNotLoaded
	}
	card := c.find(id)
	if card == nil {
		return fmt.Errorf("%w: %d", ErrUnknownCard, id)
	}
	if card.Fixed {
		return ErrFixedCard
	}

	if !card.Selected {
		free := c.capacity - c.FixedCount()
		if c.selectedUserCount() >= free {
			return fmt.Errorf("%w: at most %d selectable cards", ErrCapacityExceeded, free)
		}
		card.Selected = true
		card.Order = c.selectedUserCount() // appended at the end, 1-based after renumber
	} else {
		card.Selected = false
	}
	c.renumberUserCards()
	return nil
}

// BeginDrag starts a drag gesture on a selected, non-fixed card.
func (c *Controller) BeginDrag(id uint) error {
	if !c.loaded {
		return ErrNotLoaded
	}
	card := c.find(id)
	if card == nil {
		return fmt.Errorf("%w: %d", ErrUnknownCard, id)
	}
	if card.Fixed {
		return ErrFixedCard
	}
	if !card.Selected {
		return ErrNotSelected
	}
	c.dragging = true
	c.dragID = id
	return nil
}

// DropOn finishes the gesture by splicing the dragged card out of the
// selected-user sequence and reinserting it at the target's position,
// then renumbering 1..N. Drag state resets unconditionally.
func (c *Controller) DropOn(targetID uint) error {
	defer c.resetDrag()

	if !c.dragging {
		return ErrNoDragInProgress
	}
	if targetID == c.dragID {
		return nil
	}

	target := c.find(targetID)
	if target == nil || !target.Selected || target.Fixed {
		return ErrInvalidDropTarget
	}
	dragged := c.find(c.dragID)
	if dragged == nil || !dragged.Selected || dragged.Fixed {
		return ErrInvalidDropTarget
	}

	sequence := c.selectedUserCards()
	fromIdx, toIdx := -1, -1
	for i, card := range sequence {
		if card.ID == dragged.ID {
			fromIdx = i
		}
		if card.ID == target.ID {
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return ErrInvalidDropTarget
	}

	// Array-splice semantics: remove, then reinsert at the target index.
	moved := sequence[fromIdx]
	sequence = append(sequence[:fromIdx], sequence[fromIdx+1:]...)
	sequence = append(sequence[:toIdx], append([]*Card{moved}, sequence[toIdx:]...)...)

	for i, card := range sequence {
		card.Order = i + 1
	}
	return nil
}

// EndDrag cancels the gesture without reordering.
func (c *Controller) EndDrag() { c.resetDrag() }

// Dragging reports the card under an active drag gesture, if any.
func (c *Controller) Dragging() (uint, bool) { return c.dragID, c.dragging }

// Save recomputes visibility from selection, validates the capacity
// invariant before any write, and persists the ordered selected-card
// list keyed by user identity.
func (c *Controller) Save(ctx context.Context, userID uint, displayName string) error {
	if !c.loaded {
		return ErrNotLoaded
	}

	selected := 0
	for i := range c.cards {
		if c.cards[i].Selected {
			selected++
		}
	}
	if selected > c.capacity {
		return fmt.Errorf("%w: %d selected, capacity %d", ErrCapacityExceeded, selected, c.capacity)
	}

	for i := range c.cards {
		c.cards[i].Visible = c.cards[i].Selected
	}

	settings := c.BuildSettings()
	if err := c.settingsStore.Put(ctx, userID, displayName, settings); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	c.snapshot = nil
	return nil
}

// BuildSettings produces the persisted settings blob for the current
// selection, ordered as the grid displays it.
func (c *Controller) BuildSettings() Settings {
	entries := make([]SelectedCard, 0, c.capacity)
	for _, card := range c.Slots() {
		if card == nil {
			continue
		}
		order := card.Order
		if card.Fixed {
			order = card.DefaultOrder
		}
		entries = append(entries, SelectedCard{ID: card.ID, Title: card.Title, Order: order})
	}
	return Settings{
		Timestamp:     time.Now().UTC(),
		SelectedCards: entries,
		TotalSelected: len(entries),
	}
}

// Slots computes the display grid in two passes: fixed cards land on
// slot defaultOrder-1 (out-of-range or colliding placements are
// skipped), then selected user cards fill the remaining empty slots in
// ascending order. Leftover selected cards beyond capacity are dropped;
// empty slots stay nil.
func (c *Controller) Slots() []*Card {
	slots := make([]*Card, c.capacity)

	for i := range c.cards {
		card := &c.cards[i]
		if !card.Fixed || !card.Selected {
			continue
		}
		idx := card.DefaultOrder - 1
		if idx < 0 || idx >= c.capacity || slots[idx] != nil {
			continue
		}
		slots[idx] = card
	}

	users := c.selectedUserCards()
	next := 0
	for _, card := range users {
		for next < c.capacity && slots[next] != nil {
			next++
		}
		if next >= c.capacity {
			break
		}
		slots[next] = card
		next++
	}

	return slots
}

func (c *Controller) find(id uint) *Card {
	for i := range c.cards {
		if c.cards[i].ID == id {
			return &c.cards[i]
		}
	}
	return nil
}

func (c *Controller) selectedUserCount() int {
	n := 0
	for i := range c.cards {
		if c.cards[i].Selected && !c.cards[i].Fixed {
			n++
		}
	}
	return n
}

// selectedUserCards returns pointers to selected non-fixed cards in
// ascending Order, ties broken by DefaultOrder for stability.
func (c *Controller) selectedUserCards() []*Card {
	out := make([]*Card, 0, len(c.cards))
	for i := range c.cards {
		if c.cards[i].Selected && !c.cards[i].Fixed {
			out = append(out, &c.cards[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].DefaultOrder < out[j].DefaultOrder
	})
	return out
}

func (c *Controller) renumberUserCards() {
	for i, card := range c.selectedUserCards() {
		card.Order = i + 1
	}
}

func (c *Controller) resetDrag() {
	c.dragging = false
	c.dragID = 0
}
