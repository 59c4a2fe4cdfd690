// Package store provides the GORM-backed implementations of the
// personalize storage interfaces.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cardgrid/internal/database"
	"cardgrid/internal/personalize"
)

// CardStore 从数据库读取卡片目录。
type CardStore struct {
	db *gorm.DB
}

func NewCardStore(db *gorm.DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) ListCards(ctx context.Context) ([]personalize.CardRow, error) {
	var cards []database.Card
	if err := s.db.WithContext(ctx).Order("default_order asc, id asc").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	rows := make([]personalize.CardRow, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, personalize.CardRow{
			ID:           c.ID,
			Title:        c.Title,
			Tooltip:      c.Tooltip,
			Fixed:        c.Fixed,
			DefaultOrder: c.DefaultOrder,
			Document:     string(c.Document),
		})
	}
	return rows, nil
}

// SettingsStore 按用户读写个性化配置，每个用户至多一条记录。
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, userID uint) (*personalize.Settings, error) {
	var record database.UserCardSetting
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var settings personalize.Settings
	if err := json.Unmarshal(record.Payload, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings payload: %w", err)
	}
	return &settings, nil
}

func (s *SettingsStore) Put(ctx context.Context, userID uint, displayName string, settings personalize.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings payload: %w", err)
	}

	record := database.UserCardSetting{
		Title:   fmt.Sprintf("%s-%s", displayName, time.Now().Format("20060102")),
		UserID:  userID,
		Payload: datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
