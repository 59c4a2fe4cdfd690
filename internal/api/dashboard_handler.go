package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"cardgrid/internal/api/middleware"
	"cardgrid/internal/carddoc"
	"cardgrid/internal/dashboard"
	"cardgrid/internal/database"
	"cardgrid/internal/storage"
	"cardgrid/internal/tasks"
)

// DashboardHandler 提供渲染后的卡片栅格、动作分发与 PDF 导出入口。
type DashboardHandler struct {
	db         *gorm.DB
	dashboards *dashboard.Service
	dispatcher *carddoc.Dispatcher
	asynq      *asynq.Client
	storage    *storage.Client
	linkExpiry time.Duration
	logger     *slog.Logger
}

func NewDashboardHandler(
	db *gorm.DB,
	dashboards *dashboard.Service,
	asynqClient *asynq.Client,
	storageClient *storage.Client,
	linkExpiry time.Duration,
	logger *slog.Logger,
) *DashboardHandler {
	h := &DashboardHandler{
		db:         db,
		dashboards: dashboards,
		asynq:      asynqClient,
		storage:    storageClient,
		linkExpiry: linkExpiry,
		logger:     logger,
	}
	h.dispatcher = carddoc.NewDispatcher(urlValidator{}, h.recordAction)
	return h
}

// GetDashboard 返回当前用户的渲染结果，每个槽位一个 HTML 片段。
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if c.Query("renderMode") == "native" {
		slots, err := h.dashboards.Native(c.Request.Context(), userID)
		if err != nil {
			middleware.LoggerFromContext(c).Error("load dashboard failed", slog.Any("error", err))
			Internal(c, "failed to load dashboard")
			return
		}
		c.JSON(http.StatusOK, gin.H{"renderMode": "native", "slots": slots})
		return
	}

	slots, err := h.dashboards.Render(c.Request.Context(), userID)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render dashboard failed", slog.Any("error", err))
		Internal(c, "failed to render dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type actionRequest struct {
	Action carddoc.Action `json:"action" binding:"required"`
}

// DispatchAction 将卡片上的交互动作路由回宿主。
func (h *DashboardHandler) DispatchAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Action.Type == "" {
		BadRequest(c, "action type is required")
		return
	}

	err := h.dispatcher.Dispatch(c.Request.Context(), req.Action)
	if errors.Is(err, carddoc.ErrPopoverNotDispatchable) {
		BadRequest(c, "popover actions are rendered inline and cannot be dispatched")
		return
	}
	if err != nil {
		middleware.LoggerFromContext(c).Warn("dispatch action failed",
			slog.String("action_type", req.Action.Type),
			slog.Any("error", err),
		)
		BadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"dispatched": req.Action.Type})
}

// urlValidator 只校验链接合法性；真正的跳转发生在客户端。
type urlValidator struct{}

func (urlValidator) Navigate(_ context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("only http(s) urls can be opened")
	}
	return nil
}

// recordAction 是宿主回调：记录动作内容，原样返回给调用方确认。
func (h *DashboardHandler) recordAction(ctx context.Context, action carddoc.Action) error {
	h.logger.InfoContext(ctx, "card action dispatched",
		slog.String("action_type", action.Type),
		slog.String("title", action.Title),
	)
	return nil
}

// RequestExport 创建导出记录并入队后台任务。
func (h *DashboardHandler) RequestExport(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	export := database.DashboardExport{
		UserID: userID,
		Status: "pending",
	}
	if err := h.db.WithContext(ctx).Create(&export).Error; err != nil {
		logger.Error("create export record failed", slog.Any("error", err))
		Internal(c, "failed to request export")
		return
	}

	task, err := tasks.NewDashboardExportTask(export.ID, userID, middleware.GetCorrelationID(c))
	if err != nil {
		logger.Error("build export task failed", slog.Any("error", err))
		Internal(c, "failed to request export")
		return
	}
	if _, err := h.asynq.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		logger.Error("enqueue export task failed", slog.Any("error", err))
		Internal(c, "failed to request export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"export_id": export.ID, "status": export.Status})
}

// GetExportLink 返回最近一次成功导出的限时下载链接。
func (h *DashboardHandler) GetExportLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var export database.DashboardExport
	err := h.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, "completed").
		Order("id desc").
		First(&export).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "no completed export found")
		return
	}
	if err != nil {
		logger.Error("query export record failed", slog.Any("error", err))
		Internal(c, "failed to look up export")
		return
	}

	link, err := h.storage.GeneratePresignedURL(ctx, export.ObjectKey, h.linkExpiry)
	if err != nil {
		logger.Error("generate export link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"export_id":  export.ID,
		"url":        link,
		"expires_in": int(h.linkExpiry.Seconds()),
	})
}
