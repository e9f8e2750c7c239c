package handler

import (
	"net/http"

	"stockwatch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessagingHandler exposes device subscription and ad-hoc test sends.
type MessagingHandler struct {
	fcm    *service.FCMService
	logger *zap.Logger
}

func NewMessagingHandler(fcm *service.FCMService, logger *zap.Logger) *MessagingHandler {
	return &MessagingHandler{fcm: fcm, logger: logger.Named("messaging")}
}

func (h *MessagingHandler) available(c *gin.Context) bool {
	if h.fcm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push messaging not configured"})
		return false
	}
	return true
}

type subscribeRequest struct {
	FCMToken string   `json:"fcmToken"`
	Topics   []string `json:"topics"`
}

func (h *MessagingHandler) Subscribe(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FCMToken == "" || len(req.Topics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fcmToken and topics are required"})
		return
	}
	if err := h.fcm.SubscribeToTopics(c.Request.Context(), req.FCMToken, req.Topics); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscription failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscribed": req.Topics})
}

type testTopicRequest struct {
	Topic string `json:"topic"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *MessagingHandler) TestTopic(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req testTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	if req.Title == "" {
		req.Title = "Test notification"
	}
	if req.Body == "" {
		req.Body = "Hello from stockwatch"
	}
	if err := h.fcm.SendToTopic(c.Request.Context(), req.Title, req.Body, req.Topic, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true, "topic": req.Topic})
}

type testTokenRequest struct {
	FCMToken string `json:"fcmToken"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

func (h *MessagingHandler) TestToken(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req testTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FCMToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fcmToken is required"})
		return
	}
	if req.Title == "" {
		req.Title = "Test notification"
	}
	if req.Body == "" {
		req.Body = "Hello from stockwatch"
	}
	if err := h.fcm.SendToToken(c.Request.Context(), req.Title, req.Body, req.FCMToken, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}
