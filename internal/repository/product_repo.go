package repository

import (
	"errors"
	"time"

	"stockwatch/internal/models"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetAll() ([]models.Product, error) {
	var list []models.Product
	err := r.db.Order("id").Find(&list).Error
	return list, err
}

func (r *ProductRepository) GetByID(id uint) (*models.Product, error) {
	var p models.Product
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByBarcode returns the first product for a barcode. With multiple variants
// the caller should prefer GetByBarcodeAndVariant.
func (r *ProductRepository) GetByBarcode(barcode string) (*models.Product, error) {
	var p models.Product
	err := r.db.Where("barcode = ?", barcode).Order("id").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) GetByBarcodeAndVariant(barcode, variantID string) (*models.Product, error) {
	var p models.Product
	err := r.db.Where("barcode = ? AND variant_id = ?", barcode, variantID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const (
	UpsertCreated = "created"
	UpsertUpdated = "updated"
)

// Upsert creates or updates a product keyed by (barcode, variant_id).
// When variantID is nil the first product with the barcode is updated.
func (r *ProductRepository) Upsert(barcode string, minStock int, variantID, name *string) (string, *models.Product, error) {
	var existing *models.Product
	var err error
	if variantID != nil {
		existing, err = r.GetByBarcodeAndVariant(barcode, *variantID)
	} else {
		existing, err = r.GetByBarcode(barcode)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	if existing == nil {
		p := models.Product{
			Barcode:   barcode,
			VariantID: variantID,
			Name:      name,
			MinStock:  minStock,
		}
		if err := r.db.Create(&p).Error; err != nil {
			return "", nil, err
		}
		return UpsertCreated, &p, nil
	}

	existing.MinStock = minStock
	if variantID != nil {
		existing.VariantID = variantID
	}
	if name != nil {
		existing.Name = name
	}
	if err := r.db.Save(existing).Error; err != nil {
		return "", nil, err
	}
	return UpsertUpdated, existing, nil
}

func (r *ProductRepository) UpdateMinStock(barcode string, minStock int) error {
	res := r.db.Model(&models.Product{}).Where("barcode = ?", barcode).Update("min_stock", minStock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a product by barcode (and variant when given). History rows
// go with it via the cascade constraint.
func (r *ProductRepository) Delete(barcode string, variantID *string) error {
	q := r.db.Where("barcode = ?", barcode)
	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	}
	res := q.Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProductRepository) ToggleNotifications(id uint, enabled bool) error {
	return r.db.Model(&models.Product{}).Where("id = ?", id).
		Update("notifications_enabled", enabled).Error
}

func (r *ProductRepository) ListNotificationEnabled() ([]models.Product, error) {
	var list []models.Product
	err := r.db.Where("notifications_enabled = ?", true).Order("id").Find(&list).Error
	return list, err
}

func (r *ProductRepository) UpdateLastNotified(id uint, t time.Time) error {
	return r.db.Model(&models.Product{}).Where("id = ?", id).
		Update("last_notified_at", t).Error
}

// SyncItem is one row of a bulk sync from the inventory management frontend.
type SyncItem struct {
	Barcode   string  `json:"barcode"`
	MinStock  int     `json:"min"`
	VariantID *string `json:"variantId"`
	Name      *string `json:"name"`
}

// Sync upserts a batch of products. Each item is independent; the first
// failure aborts since bulk sync is an all-or-nothing admin action.
func (r *ProductRepository) Sync(items []SyncItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		repo := &ProductRepository{db: tx}
		for _, it := range items {
			if _, _, err := repo.Upsert(it.Barcode, it.MinStock, it.VariantID, it.Name); err != nil {
				return err
			}
		}
		return nil
	})
}
