package personalize

import (
	"context"
	"time"
)

// CardRow 是列表存储中的一行卡片定义。
type CardRow struct {
	ID           uint
	Title        string
	Tooltip      string
	Fixed        bool
	DefaultOrder int
	Document     string
}

// SelectedCard is one entry of the persisted selection, ordered.
type SelectedCard struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Settings 是按用户持久化的个性化配置 blob。
type Settings struct {
	Timestamp     time.Time      `json:"timestamp"`
	SelectedCards []SelectedCard `json:"selectedCards"`
	TotalSelected int            `json:"totalSelected"`
}

// CardStore reads the card catalog, ordered by default order.
type CardStore interface {
	ListCards(ctx context.Context) ([]CardRow, error)
}

// SettingsStore reads and writes one settings record per user.
// Get returns (nil, nil) when the user has no record yet; Put updates an
// existing record or inserts a new one.
type SettingsStore interface {
	Get(ctx context.Context, userID uint) (*Settings, error)
	Put(ctx context.Context, userID uint, displayName string, settings Settings) error
}
