package monitor

import (
	"fmt"
	"time"

	"stockwatch/internal/models"
)

// HistoryStore is the slice of the notification ledger the monitor and its
// policies need. *repository.NotificationHistoryRepository satisfies it.
type HistoryStore interface {
	Create(entry *models.NotificationHistory) error
	CountForProductSince(productID uint, since time.Time) (int64, error)
	LastForProduct(productID uint) (*models.NotificationHistory, error)
}

// Policy decides whether a product may be alerted right now. AllowProduct
// runs before the inventory lookup (volume gates: daily cap or cooldown);
// AllowAlert runs after severity classification (change dedup). Scheduled
// runs bypass the dedup so a fixed-clock pass always notifies while stock is
// still below threshold.
type Policy interface {
	AllowProduct(p *models.Product, now time.Time) (allow bool, reason string, err error)
	AllowAlert(p *models.Product, currentStock int, scheduled bool, now time.Time) (allow bool, reason string, err error)
}

// DailyCapPolicy is the default strategy: at most maxPerDay alerts per
// product per calendar day, plus stock-change dedup against the last ledger
// entry. A second alert the same day still goes out when the stock figure
// moved since the previous one.
type DailyCapPolicy struct {
	history   HistoryStore
	maxPerDay int
}

func NewDailyCapPolicy(history HistoryStore, maxPerDay int) *DailyCapPolicy {
	if maxPerDay <= 0 {
		maxPerDay = 2
	}
	return &DailyCapPolicy{history: history, maxPerDay: maxPerDay}
}

func (p *DailyCapPolicy) AllowProduct(prod *models.Product, now time.Time) (bool, string, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := p.history.CountForProductSince(prod.ID, startOfDay)
	if err != nil {
		return false, "", err
	}
	if n >= int64(p.maxPerDay) {
		return false, fmt.Sprintf("already notified %d times today", n), nil
	}
	return true, "", nil
}

func (p *DailyCapPolicy) AllowAlert(prod *models.Product, currentStock int, scheduled bool, now time.Time) (bool, string, error) {
	if scheduled {
		return true, "", nil
	}
	last, err := p.history.LastForProduct(prod.ID)
	if err != nil {
		return false, "", err
	}
	if last != nil && last.StockAtNotification == currentStock {
		return false, "stock unchanged since last alert", nil
	}
	return true, "", nil
}

// CooldownPolicy is the alternative strategy: a fixed quiet period after each
// alert instead of a per-day count. Selected via MONITOR_POLICY=cooldown and
// never combined with the daily cap.
type CooldownPolicy struct {
	history  HistoryStore
	cooldown time.Duration
}

func NewCooldownPolicy(history HistoryStore, hours int) *CooldownPolicy {
	if hours <= 0 {
		hours = 24
	}
	return &CooldownPolicy{history: history, cooldown: time.Duration(hours) * time.Hour}
}

func (p *CooldownPolicy) AllowProduct(prod *models.Product, now time.Time) (bool, string, error) {
	if prod.LastNotifiedAt == nil {
		return true, "", nil
	}
	if elapsed := now.Sub(*prod.LastNotifiedAt); elapsed < p.cooldown {
		return false, fmt.Sprintf("in cooldown for another %s", (p.cooldown - elapsed).Round(time.Minute)), nil
	}
	return true, "", nil
}

func (p *CooldownPolicy) AllowAlert(prod *models.Product, currentStock int, scheduled bool, now time.Time) (bool, string, error) {
	if scheduled {
		return true, "", nil
	}
	last, err := p.history.LastForProduct(prod.ID)
	if err != nil {
		return false, "", err
	}
	if last != nil && last.StockAtNotification == currentStock {
		return false, "stock unchanged since last alert", nil
	}
	return true, "", nil
}
