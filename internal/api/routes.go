package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cardgrid/internal/api/middleware"
	"cardgrid/internal/auth"
	"cardgrid/internal/dashboard"
	"cardgrid/internal/storage"
	"cardgrid/internal/store"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	clamdAddr string,
	internalSecret string,
	exportLinkExpiry time.Duration,
) {
	cardStore := store.NewCardStore(db)
	settingsStore := store.NewSettingsStore(db)
	renderCache := dashboard.NewRedisRenderCache(redisClient, 10*time.Minute)
	dashboards := dashboard.NewService(cardStore, settingsStore, renderCache)

	authHandler := NewAuthHandler(db, authService, redisClient, logger)
	dashboardHandler := NewDashboardHandler(db, dashboards, asynqClient, storageClient, exportLinkExpiry, logger)
	cardsHandler := NewCardsHandler(db, redisClient, logger, clamdAddr)
	settingsHandler := NewSettingsHandler(db, cardStore, settingsStore, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, nil)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		dashboardGroup := v1.Group("/dashboard")
		dashboardGroup.Use(authMiddleware)
		{
			dashboardGroup.GET("", dashboardHandler.GetDashboard)
			dashboardGroup.POST("/action", dashboardHandler.DispatchAction)
			dashboardGroup.GET("/export", dashboardHandler.RequestExport)
			dashboardGroup.GET("/export-link", dashboardHandler.GetExportLink)
		}

		cardsGroup := v1.Group("/cards")
		{
			cardsGroup.GET("", authMiddleware, cardsHandler.ListCards)
			cardsGroup.POST("/import", middleware.InternalSecretMiddleware(internalSecret), cardsHandler.ImportCard)
		}

		settingsGroup := v1.Group("/settings")
		settingsGroup.Use(authMiddleware)
		{
			settingsGroup.GET("", settingsHandler.GetSettings)
			settingsGroup.PUT("", settingsHandler.PutSettings)
		}
	}
}
