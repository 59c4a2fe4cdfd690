package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cardgrid/internal/api/middleware"
	"cardgrid/internal/database"
	"cardgrid/internal/personalize"
)

// SettingsHandler 读取与保存用户的卡片个性化配置。
type SettingsHandler struct {
	db       *gorm.DB
	cards    personalize.CardStore
	settings personalize.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(db *gorm.DB, cards personalize.CardStore, settings personalize.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		db:       db,
		cards:    cards,
		settings: settings,
		logger:   logger,
	}
}

type settingsCard struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Tooltip      string `json:"tooltip,omitempty"`
	Fixed        bool   `json:"fixed"`
	DefaultOrder int    `json:"defaultOrder"`
	Order        int    `json:"order"`
	Selected     bool   `json:"selected"`
}

// GetSettings 返回目录中每张卡片的当前选择状态。
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	controller := personalize.NewController(personalize.DefaultCapacity, h.cards, h.settings)
	if err := controller.Load(c.Request.Context(), userID); err != nil {
		middleware.LoggerFromContext(c).Error("load settings failed", slog.Any("error", err))
		Internal(c, "failed to load settings")
		return
	}

	cards := controller.Cards()
	out := make([]settingsCard, 0, len(cards))
	selectedCount := 0
	for _, card := range cards {
		if card.Selected {
			selectedCount++
		}
		out = append(out, settingsCard{
			ID:           card.ID,
			Title:        card.Title,
			Tooltip:      card.Tooltip,
			Fixed:        card.Fixed,
			DefaultOrder: card.DefaultOrder,
			Order:        card.Order,
			Selected:     card.Selected,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"capacity":      controller.Capacity(),
		"totalSelected": selectedCount,
		"cards":         out,
	})
}

type putSettingsRequest struct {
	SelectedCards []struct {
		ID    uint `json:"id" binding:"required"`
		Order int  `json:"order"`
	} `json:"selectedCards" binding:"required"`
}

// PutSettings 以完整的目标选择覆盖当前配置。
// 固定卡片无需出现在请求里；容量校验失败时不落库。
func (h *SettingsHandler) PutSettings(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	controller := personalize.NewController(personalize.DefaultCapacity, h.cards, h.settings)
	if err := controller.Load(ctx, userID); err != nil {
		logger.Error("load settings failed", slog.Any("error", err))
		Internal(c, "failed to load settings")
		return
	}
	controller.BeginCustomize()

	// 先清空现有的非固定选择，再按请求顺序重建。
	for _, card := range controller.Cards() {
		if !card.Fixed && card.Selected {
			if err := controller.ToggleSelect(card.ID); err != nil {
				logger.Error("reset selection failed", slog.Any("error", err))
				Internal(c, "failed to apply settings")
				return
			}
		}
	}

	requested := req.SelectedCards
	sort.SliceStable(requested, func(i, j int) bool { return requested[i].Order < requested[j].Order })
	for _, entry := range requested {
		err := controller.ToggleSelect(entry.ID)
		switch {
		case err == nil:
		case errors.Is(err, personalize.ErrFixedCard):
			// 固定卡片始终在选择中，忽略重复提交。
		case errors.Is(err, personalize.ErrUnknownCard):
			controller.Cancel()
			BadRequest(c, "unknown card id")
			return
		case errors.Is(err, personalize.ErrCapacityExceeded):
			controller.Cancel()
			Conflict(c, "selection exceeds dashboard capacity")
			return
		default:
			controller.Cancel()
			logger.Error("apply selection failed", slog.Any("error", err))
			Internal(c, "failed to apply settings")
			return
		}
	}

	displayName := ""
	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err == nil {
		displayName = user.DisplayName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("look up user for settings title failed", slog.Any("error", err))
	}

	if err := controller.Save(ctx, userID, displayName); err != nil {
		if errors.Is(err, personalize.ErrCapacityExceeded) {
			controller.Cancel()
			Conflict(c, "selection exceeds dashboard capacity")
			return
		}
		logger.Error("save settings failed", slog.Any("error", err))
		Internal(c, "failed to save settings")
		return
	}

	settings := controller.BuildSettings()
	c.JSON(http.StatusOK, gin.H{
		"timestamp":     settings.Timestamp,
		"selectedCards": settings.SelectedCards,
		"totalSelected": settings.TotalSelected,
	})
}
