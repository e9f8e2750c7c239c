package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"stockwatch/internal/monitor"
	"stockwatch/internal/repository"
	"stockwatch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MonitorHandler triggers on-demand passes and reads the notification ledger.
type MonitorHandler struct {
	monitor  *monitor.Monitor
	products *repository.ProductRepository
	history  *repository.NotificationHistoryRepository
	fcm      *service.FCMService
	logger   *zap.Logger
}

func NewMonitorHandler(m *monitor.Monitor, products *repository.ProductRepository, history *repository.NotificationHistoryRepository, fcm *service.FCMService, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor:  m,
		products: products,
		history:  history,
		fcm:      fcm,
		logger:   logger.Named("monitor_api"),
	}
}

// Check runs one pass synchronously and returns its summary. An overlapping
// trigger gets 409 rather than queueing behind the in-flight pass.
func (h *MonitorHandler) Check(c *gin.Context) {
	scheduled := c.Query("scheduled") == "true"
	summary, err := h.monitor.RunCheck(c.Request.Context(), scheduled)
	if errors.Is(err, monitor.ErrCheckInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "a check is already in progress"})
		return
	}
	if errors.Is(err, monitor.ErrNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "inventory API not configured"})
		return
	}
	if errors.Is(err, monitor.ErrPushNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push messaging not configured"})
		return
	}
	if err != nil {
		h.logger.Error("on-demand check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type testNotificationRequest struct {
	ProductID uint `json:"productId"`
}

// TestNotification sends an ad-hoc message to a product's topic without
// touching the ledger, so it never affects eligibility.
func (h *MonitorHandler) TestNotification(c *gin.Context) {
	var req testNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	if h.fcm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push messaging not configured"})
		return
	}

	p, err := h.products.GetByID(req.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	title := "Test notification"
	body := fmt.Sprintf("%s (min: %d)", p.DisplayName(), p.MinStock)
	if err := h.fcm.SendToTopic(c.Request.Context(), title, body, p.Topic(), map[string]string{
		"product_id": fmt.Sprint(p.ID),
		"test":       "true",
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true, "topic": p.Topic()})
}

// History lists ledger rows, newest first, optionally for one product.
func (h *MonitorHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if idStr := c.Query("product_id"); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id must be a positive integer"})
			return
		}
		entries, err := h.history.ListForProduct(uint(id), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
		return
	}

	entries, err := h.history.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
