package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"stockwatch/internal/inventory"
	"stockwatch/internal/models"
	"stockwatch/internal/monitor"
	"stockwatch/internal/repository"
	"stockwatch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductHandler serves the product CRUD surface plus the live-stock views
// that join local products with the inventory source.
type ProductHandler struct {
	repo      *repository.ProductRepository
	inventory *inventory.Client
	fcm       *service.FCMService
	logger    *zap.Logger
}

func NewProductHandler(repo *repository.ProductRepository, inv *inventory.Client, fcm *service.FCMService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		repo:      repo,
		inventory: inv,
		fcm:       fcm,
		logger:    logger.Named("product"),
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.repo.GetAll()
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	barcode := c.Query("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}
	var (
		p   *models.Product
		err error
	)
	if variantID := c.Query("variantId"); variantID != "" {
		p, err = h.repo.GetByBarcodeAndVariant(barcode, variantID)
	} else {
		p, err = h.repo.GetByBarcode(barcode)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	p, err := h.repo.GetByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

type upsertRequest struct {
	Barcode string  `json:"barcode"`
	Min     *int    `json:"min"`
	ClickID *string `json:"clickId"`
	Name    *string `json:"name"`
}

// Upsert creates or updates a product keyed by (barcode, clickId). clickId is
// the external variant id the inventory source uses.
func (h *ProductHandler) Upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
		return
	}
	if req.Min == nil || *req.Min < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min must be a non-negative integer"})
		return
	}

	action, p, err := h.repo.Upsert(req.Barcode, *req.Min, req.ClickID, req.Name)
	if err != nil {
		h.logger.Error("upsert failed", zap.String("barcode", req.Barcode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save product"})
		return
	}
	status := http.StatusOK
	if action == repository.UpsertCreated {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"action": action, "product": p})
}

type minRequest struct {
	Min *int `json:"min"`
}

func (h *ProductHandler) UpdateMinStock(c *gin.Context) {
	barcode := c.Param("code")
	var req minRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Min == nil || *req.Min < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min must be a non-negative integer"})
		return
	}
	err := h.repo.UpdateMinStock(barcode, *req.Min)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update threshold"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"barcode": barcode, "min": *req.Min})
}

type toggleRequest struct {
	Enabled  *bool  `json:"enabled"`
	FCMToken string `json:"fcmToken"`
}

// ToggleNotifications flips the enabled flag. When a device token is supplied
// the device is subscribed to the product's topic on enable and unsubscribed
// on disable, so the toggle and the topic membership stay in step.
func (h *ProductHandler) ToggleNotifications(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("code"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	p, err := h.repo.GetByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load product"})
		return
	}

	if err := h.repo.ToggleNotifications(p.ID, *req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update product"})
		return
	}

	if req.FCMToken != "" {
		topic := p.Topic()
		if *req.Enabled {
			err = h.fcm.SubscribeToTopics(c.Request.Context(), req.FCMToken, []string{topic})
		} else {
			err = h.fcm.UnsubscribeFromTopic(c.Request.Context(), req.FCMToken, topic)
		}
		if err != nil {
			h.logger.Warn("topic membership update failed",
				zap.Uint("product_id", p.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": p.ID, "enabled": *req.Enabled})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	barcode := c.Param("code")
	var variantID *string
	if v := c.Query("variantId"); v != "" {
		variantID = &v
	}
	err := h.repo.Delete(barcode, variantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"barcode": barcode, "deleted": true})
}

type syncRequest struct {
	Products []repository.SyncItem `json:"products"`
}

func (h *ProductHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "products is required"})
		return
	}
	for _, it := range req.Products {
		if it.Barcode == "" || it.MinStock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "each product needs a barcode and a non-negative min"})
			return
		}
	}
	if err := h.repo.Sync(req.Products); err != nil {
		h.logger.Error("sync failed", zap.Int("count", len(req.Products)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": len(req.Products)})
}

type productWithStock struct {
	models.Product
	CurrentStock int    `json:"currentStock"`
	Level        string `json:"level"`
	StockKnown   bool   `json:"stockKnown"`
}

// enrichConcurrency bounds parallel inventory lookups in the read views.
const enrichConcurrency = 5

// WithStock returns a page of products enriched with live stock. A failed
// lookup degrades that row to currentStock 0 rather than failing the page.
func (h *ProductHandler) WithStock(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	products, err := h.repo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}

	total := len(products)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	pageItems := products[start:end]

	rows := make([]productWithStock, len(pageItems))
	sem := make(chan struct{}, enrichConcurrency)
	var wg sync.WaitGroup
	for i := range pageItems {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			p := pageItems[i]
			row := productWithStock{Product: p}
			info, err := h.inventory.Lookup(c.Request.Context(), p.Barcode, p.VariantID)
			if err == nil {
				row.CurrentStock = info.Stock
				row.StockKnown = true
				row.Level = string(monitor.Classify(info.Stock, p.MinStock))
			}
			rows[i] = row
		}(i)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{
		"products": rows,
		"page":     page,
		"limit":    limit,
		"total":    total,
	})
}

// Statistics counts products by live severity. Rows whose lookup fails are
// counted in total but in neither severity bucket.
func (h *ProductHandler) Statistics(c *gin.Context) {
	products, err := h.repo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load products"})
		return
	}

	var (
		mu            sync.Mutex
		low, critical int
		wg            sync.WaitGroup
	)
	sem := make(chan struct{}, enrichConcurrency)
	for i := range products {
		wg.Add(1)
		sem <- struct{}{}
		go func(p models.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			info, err := h.inventory.Lookup(c.Request.Context(), p.Barcode, p.VariantID)
			if err != nil {
				return
			}
			switch monitor.Classify(info.Stock, p.MinStock) {
			case monitor.LevelLow:
				mu.Lock()
				low++
				mu.Unlock()
			case monitor.LevelCritical:
				mu.Lock()
				critical++
				mu.Unlock()
			}
		}(products[i])
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{
		"total":         len(products),
		"lowStock":      low,
		"criticalStock": critical,
	})
}

type variantView struct {
	inventory.Variant
	Monitored            bool `json:"monitored"`
	MinStock             int  `json:"minStock"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

// Variants searches the inventory source by code and annotates each record
// with the local monitoring state for that (barcode, variant) pair.
func (h *ProductHandler) Variants(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	variants, err := h.inventory.Search(c.Request.Context(), code)
	if errors.Is(err, inventory.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"variants": []variantView{}})
		return
	}
	if err != nil {
		h.logger.Error("variant search failed", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "inventory source unavailable"})
		return
	}

	views := make([]variantView, 0, len(variants))
	for _, v := range variants {
		view := variantView{Variant: v}
		p, err := h.repo.GetByBarcodeAndVariant(code, v.ID)
		if err == nil {
			view.Monitored = true
			view.MinStock = p.MinStock
			view.NotificationsEnabled = p.NotificationsEnabled
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"variants": views})
}
