package repository

import (
	"errors"
	"time"

	"stockwatch/internal/models"

	"gorm.io/gorm"
)

type NotificationHistoryRepository struct {
	db *gorm.DB
}

func NewNotificationHistoryRepository(db *gorm.DB) *NotificationHistoryRepository {
	return &NotificationHistoryRepository{db: db}
}

func (r *NotificationHistoryRepository) Create(entry *models.NotificationHistory) error {
	return r.db.Create(entry).Error
}

// CountForProductSince counts ledger rows for a product sent at or after the
// given instant. The daily cap uses it with the start of the calendar day.
func (r *NotificationHistoryRepository) CountForProductSince(productID uint, since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.NotificationHistory{}).
		Where("product_id = ? AND sent_at >= ?", productID, since).
		Count(&n).Error
	return n, err
}

// LastForProduct returns the most recent ledger row, or nil when the product
// has never been notified.
func (r *NotificationHistoryRepository) LastForProduct(productID uint) (*models.NotificationHistory, error) {
	var entry models.NotificationHistory
	err := r.db.Where("product_id = ?", productID).
		Order("sent_at DESC, id DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *NotificationHistoryRepository) ListForProduct(productID uint, limit int) ([]models.NotificationHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.NotificationHistory
	err := r.db.Where("product_id = ?", productID).
		Order("sent_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *NotificationHistoryRepository) ListRecent(limit int) ([]models.NotificationHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.NotificationHistory
	err := r.db.Order("sent_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}
