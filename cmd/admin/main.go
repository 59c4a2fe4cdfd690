package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cardgrid/internal/auth"
	"cardgrid/internal/config"
	"cardgrid/internal/database"
)

func main() {
	var (
		username  = flag.String("username", "", "初始管理员用户名（创建账号时必填）")
		seedCards = flag.Bool("seed-cards", false, "目录为空时写入演示卡片")
	)
	flag.Parse()

	u := strings.TrimSpace(*username)
	if u == "" && !*seedCards {
		log.Fatal("nothing to do: pass --username and/or --seed-cards")
	}

	cfg := config.MustLoad()
	db, err := database.InitDatabase(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if u != "" {
		if err := createAdmin(db, u); err != nil {
			log.Fatalf("create admin: %v", err)
		}
	}
	if *seedCards {
		if err := seedDemoCards(db); err != nil {
			log.Fatalf("seed cards: %v", err)
		}
	}
}

func createAdmin(db *gorm.DB, username string) error {
	var existing database.User
	switch err := db.Where("username = ?", username).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("user %q already exists", username)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := database.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hashed,
		IsAdmin:      true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("已创建初始管理员账号：\n")
	fmt.Printf("用户名: %s\n", username)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请妥善保存。\n")
	return nil
}

// seedDemoCards 在空目录中写入一套演示卡片：固定概览卡、图表卡、
// 表格卡与进度卡，覆盖常见的渲染路径。
func seedDemoCards(db *gorm.DB) error {
	var count int64
	if err := db.Model(&database.Card{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count cards: %w", err)
	}
	if count > 0 {
		fmt.Printf("目录已有 %d 张卡片，跳过演示数据。\n", count)
		return nil
	}

	cards := []database.Card{
		{
			Title:        "Overview",
			Tooltip:      "Key numbers at a glance",
			Fixed:        true,
			DefaultOrder: 1,
			Document: datatypes.JSON(`{
  "type": "AdaptiveCard",
  "version": "1.5",
  "body": [
    {"type": "TextBlock", "text": "Weekly overview", "size": "Large", "weight": "Bolder"},
    {"type": "FactSet", "facts": [
      {"title": "Active users", "value": "1,248"},
      {"title": "New signups", "value": "86"}
    ]}
  ]
}`),
		},
		{
			Title:        "Traffic share",
			Tooltip:      "Visits by channel",
			DefaultOrder: 2,
			Document: datatypes.JSON(`{
  "type": "Chart.Donut",
  "title": "Visits by channel",
  "data": [
    {"legend": "Organic", "value": 52},
    {"legend": "Referral", "value": 31},
    {"legend": "Direct", "value": 17}
  ]
}`),
		},
		{
			Title:        "Revenue trend",
			Tooltip:      "Monthly revenue",
			DefaultOrder: 3,
			Document: datatypes.JSON(`{
  "type": "Chart.Line",
  "title": "Revenue",
  "xAxisTitle": "Month",
  "yAxisTitle": "kUSD",
  "data": [
    {"x": "Jan", "y": 120}, {"x": "Feb", "y": 135},
    {"x": "Mar", "y": 128}, {"x": "Apr", "y": 151}
  ]
}`),
		},
		{
			Title:        "Open incidents",
			Tooltip:      "Current incident queue",
			DefaultOrder: 4,
			Document: datatypes.JSON(`{
  "type": "AdaptiveCard",
  "version": "1.5",
  "body": [
    {"type": "Table", "firstRowAsHeaders": true, "rows": [
      {"type": "TableRow", "cells": [
        {"type": "TableCell", "items": [{"type": "TextBlock", "text": "Severity"}]},
        {"type": "TableCell", "items": [{"type": "TextBlock", "text": "Count"}]}
      ]},
      {"type": "TableRow", "cells": [
        {"type": "TableCell", "items": [{"type": "TextBlock", "text": "High"}]},
        {"type": "TableCell", "items": [{"type": "TextBlock", "text": "2"}]}
      ]}
    ]},
    {"type": "ProgressBar", "value": 65, "max": 100}
  ]
}`),
		},
		{
			Title:        "Backlog health",
			Tooltip:      "Sprint backlog burndown",
			DefaultOrder: 5,
			Document: datatypes.JSON(`{
  "type": "Chart.VerticalBar",
  "title": "Remaining points",
  "data": [
    {"x": "W1", "y": 34}, {"x": "W2", "y": 22}, {"x": "W3", "y": 9}
  ]
}`),
		},
	}

	if err := db.Create(&cards).Error; err != nil {
		return fmt.Errorf("insert demo cards: %w", err)
	}
	fmt.Printf("已写入 %d 张演示卡片。\n", len(cards))
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
