package models

import "time"

// Severity levels recorded with each alert.
const (
	LevelNormal   = "NORMAL"
	LevelLow      = "LOW"
	LevelCritical = "CRITICAL"
)

// NotificationHistory is the append-only ledger of sent alerts. Eligibility
// decisions (daily cap, change dedup) read it; nothing ever mutates a row.
type NotificationHistory struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	ProductID           uint      `gorm:"not null;index" json:"product_id"`
	Level               string    `gorm:"size:16;not null" json:"level"`
	StockAtNotification int       `gorm:"not null" json:"stock_at_notification"`
	MinStock            int       `gorm:"not null" json:"min_stock"`
	SentAt              time.Time `gorm:"autoCreateTime;index" json:"sent_at"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (NotificationHistory) TableName() string {
	return "notification_history"
}
