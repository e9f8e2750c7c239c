package router

import (
	"net/http"
	"time"

	"stockwatch/config"
	"stockwatch/internal/handler"
	"stockwatch/internal/inventory"
	"stockwatch/internal/middleware"
	"stockwatch/internal/monitor"
	"stockwatch/internal/repository"
	"stockwatch/internal/service"
	"stockwatch/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries the constructed collaborators the routes need.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Inventory *inventory.Client
	FCM       *service.FCMService
	Monitor   *monitor.Monitor
	Hub       *ws.Hub
	Logger    *zap.Logger
}

// Setup wires repositories, handlers and middleware into a gin engine.
func Setup(d Deps) *gin.Engine {
	if d.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(300, time.Minute)))

	productRepo := repository.NewProductRepository(d.DB)
	historyRepo := repository.NewNotificationHistoryRepository(d.DB)

	productHandler := handler.NewProductHandler(productRepo, d.Inventory, d.FCM, d.Logger)
	messagingHandler := handler.NewMessagingHandler(d.FCM, d.Logger)
	monitorHandler := handler.NewMonitorHandler(d.Monitor, productRepo, historyRepo, d.FCM, d.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Config.Auth.Enabled {
		authHandler := handler.NewAuthHandler(&d.Config.Auth, d.Logger)
		r.POST("/auth/login", authHandler.Login)
	}

	api := r.Group("/")
	if d.Config.Auth.Enabled {
		api.Use(middleware.AuthRequired(&d.Config.Auth))
	}

	// The live-stock views hit the inventory API once per product, so they
	// get a much tighter limit than the local reads.
	lookupLimit := middleware.RateLimit(middleware.NewRateLimiter(30, time.Minute))

	product := api.Group("/product")
	{
		product.GET("", productHandler.List)
		product.GET("/barcode", productHandler.GetByBarcode)
		product.GET("/id", productHandler.GetByID)
		product.GET("/with-stock", lookupLimit, productHandler.WithStock)
		product.GET("/statistics", lookupLimit, productHandler.Statistics)
		product.GET("/variants", lookupLimit, productHandler.Variants)
		product.POST("", productHandler.Upsert)
		product.POST("/sync", productHandler.Sync)
		product.PUT("/:code/min", productHandler.UpdateMinStock)
		product.PUT("/:code/notifications", productHandler.ToggleNotifications)
		product.PATCH("/:code/notifications", productHandler.ToggleNotifications)
		product.DELETE("/:code", productHandler.Delete)
	}

	sm := api.Group("/stock-monitor")
	{
		sm.POST("/check", monitorHandler.Check)
		sm.POST("/test", monitorHandler.TestNotification)
		sm.GET("/history", monitorHandler.History)
	}

	messaging := api.Group("/messaging")
	{
		messaging.POST("/subscribe", messagingHandler.Subscribe)
		messaging.POST("/test", messagingHandler.TestTopic)
		messaging.POST("/test-token", messagingHandler.TestToken)
	}

	r.GET("/ws/alerts", ws.UpgradeAlertsWS(d.Hub))

	return r
}
