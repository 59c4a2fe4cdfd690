package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	DisplayName  string `gorm:"size:128"`
	PasswordHash string `gorm:"size:255"`
	IsAdmin      bool   `gorm:"default:false"`
}

// Card 是卡片目录（列表存储）中的一行。Document 为卡片内容的 JSON
// 文档；Fixed 卡片的槽位由 DefaultOrder 决定，用户不可调整。
type Card struct {
	gorm.Model
	Title        string         `gorm:"size:255"`
	Tooltip      string         `gorm:"size:512"`
	Fixed        bool           `gorm:"default:false"`
	DefaultOrder int            `gorm:"index"`
	Document     datatypes.JSON `gorm:"type:jsonb"`
}

// UserCardSetting 是按用户持久化的个性化记录，每个用户至多一条。
// Payload 存储 {timestamp, selectedCards, totalSelected}。
type UserCardSetting struct {
	gorm.Model
	Title   string         `gorm:"size:255"`
	UserID  uint           `gorm:"uniqueIndex"`
	User    User           `gorm:"constraint:OnDelete:CASCADE"`
	Payload datatypes.JSON `gorm:"type:jsonb"`
}

// DashboardExport 记录一次仪表盘 PDF 导出的产物位置与状态。
type DashboardExport struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	ObjectKey string `gorm:"size:512"`
	Status    string `gorm:"size:32"`
}
