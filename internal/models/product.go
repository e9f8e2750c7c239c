package models

import (
	"fmt"
	"time"
)

// ProductTopic names the FCM topic for one product's alerts.
func ProductTopic(id uint) string {
	return fmt.Sprintf("product_%d", id)
}

// Product is a monitored SKU. The same barcode may exist multiple times with
// different external variant ids, so uniqueness is on (barcode, variant_id).
type Product struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Barcode              string     `gorm:"size:64;not null;index;uniqueIndex:idx_products_barcode_variant" json:"barcode"`
	VariantID            *string    `gorm:"size:64;uniqueIndex:idx_products_barcode_variant" json:"variant_id"`
	Name                 *string    `gorm:"size:255" json:"name"`
	MinStock             int        `gorm:"not null;default:0" json:"min_stock"`
	NotificationsEnabled bool       `gorm:"not null;default:false;index" json:"notifications_enabled"`
	LastNotifiedAt       *time.Time `json:"last_notified_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	History []NotificationHistory `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// Topic is the FCM topic devices subscribe to for this product's alerts.
func (p *Product) Topic() string {
	return ProductTopic(p.ID)
}

// DisplayName prefers the locally stored name and falls back to the barcode.
func (p *Product) DisplayName() string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return "Product " + p.Barcode
}
