package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cardgrid/internal/api/middleware"
	"cardgrid/internal/carddoc"
	"cardgrid/internal/database"
)

const maxCardDocumentBytes = 1 << 20
const importRateLimitPerHour = 30

// CardsHandler 提供卡片目录读取与目录导入。
type CardsHandler struct {
	db        *gorm.DB
	redis     redis.UniversalClient
	logger    *slog.Logger
	clamdAddr string
}

func NewCardsHandler(db *gorm.DB, redisClient redis.UniversalClient, logger *slog.Logger, clamdAddr string) *CardsHandler {
	return &CardsHandler{
		db:        db,
		redis:     redisClient,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

type cardSummary struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Tooltip      string `json:"tooltip,omitempty"`
	Fixed        bool   `json:"fixed"`
	DefaultOrder int    `json:"defaultOrder"`
	Kind         string `json:"kind"`
}

// ListCards 返回目录中的全部卡片摘要，供自定义面板使用。
// 目录读取失败时返回空列表并标记 loadError，页面仍可继续。
func (h *CardsHandler) ListCards(c *gin.Context) {
	var cards []database.Card
	if err := h.db.WithContext(c.Request.Context()).Order("default_order asc, id asc").Find(&cards).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list cards failed", slog.Any("error", err))
		c.JSON(http.StatusOK, gin.H{"cards": []cardSummary{}, "loadError": true})
		return
	}

	summaries := make([]cardSummary, 0, len(cards))
	for _, card := range cards {
		classification := carddoc.Classify(string(card.Document), card.Title)
		summaries = append(summaries, cardSummary{
			ID:           card.ID,
			Title:        card.Title,
			Tooltip:      card.Tooltip,
			Fixed:        card.Fixed,
			DefaultOrder: card.DefaultOrder,
			Kind:         string(classification.Kind),
		})
	}

	c.JSON(http.StatusOK, gin.H{"cards": summaries, "loadError": false})
}

// ImportCard 接收一个卡片 JSON 文件并写入目录。
// 流程：病毒扫描 → 解析分类（Error 拒绝）→ 插入。
func (h *CardsHandler) ImportCard(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	// 导入接口走内部密钥，仍按来源 IP 限速。
	rateKey := "rate:card_import:" + c.ClientIP() + ":" + time.Now().UTC().Format("2006010215")
	if count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour); err == nil && count > importRateLimitPerHour {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		BadRequest(c, "title is required")
		return
	}
	tooltip := c.PostForm("tooltip")
	fixed := c.PostForm("fixed") == "true"

	defaultOrder := 0
	if raw := c.PostForm("default_order"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			BadRequest(c, "default_order must be a positive integer")
			return
		}
		defaultOrder = parsed
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxCardDocumentBytes {
		BadRequest(c, "card document too large")
		return
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	document, err := io.ReadAll(io.LimitReader(fileReader, maxCardDocumentBytes+1))
	fileReader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if len(document) > maxCardDocumentBytes {
		BadRequest(c, "card document too large")
		return
	}

	if h.clamdAddr != "" {
		clamdClient := clamd.NewClamd(h.clamdAddr)
		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(bytes.NewReader(document), abortChan)
		if err != nil {
			logger.Error("scan card document failed", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		defer close(abortChan)

		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				logger.Warn("malicious card document rejected",
					slog.String("status", result.Status),
					slog.String("description", result.Description),
				)
				BadRequest(c, "malicious file detected")
				return
			}
		}
	}

	classification := carddoc.Classify(string(document), title)
	if classification.Kind == carddoc.KindError {
		BadRequest(c, "card document is not valid")
		return
	}

	card := database.Card{
		Title:        title,
		Tooltip:      tooltip,
		Fixed:        fixed,
		DefaultOrder: defaultOrder,
		Document:     datatypes.JSON(document),
	}
	if err := h.db.WithContext(ctx).Create(&card).Error; err != nil {
		logger.Error("insert card failed", slog.Any("error", err))
		Internal(c, "failed to import card")
		return
	}

	logger.Info("card imported",
		slog.Uint64("card_id", uint64(card.ID)),
		slog.String("kind", string(classification.Kind)),
	)
	c.JSON(http.StatusCreated, gin.H{"id": card.ID, "kind": classification.Kind})
}
