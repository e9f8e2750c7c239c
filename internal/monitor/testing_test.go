package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockwatch/internal/inventory"
	"stockwatch/internal/models"
)

// Shared fakes for the monitor and policy tests.

type fakeHistory struct {
	mu         sync.Mutex
	entries    []models.NotificationHistory
	failCreate bool
}

func (f *fakeHistory) Create(entry *models.NotificationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("ledger unavailable")
	}
	entry.ID = uint(len(f.entries) + 1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) CountForProductSince(productID uint, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.ProductID == productID && !e.SentAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeHistory) LastForProduct(productID uint) (*models.NotificationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].ProductID == productID {
			e := f.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

type fakeProducts struct {
	mu       sync.Mutex
	products []models.Product
	notified map[uint]time.Time
}

func (f *fakeProducts) ListNotificationEnabled() ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.NotificationsEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) UpdateLastNotified(id uint, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = make(map[uint]time.Time)
	}
	f.notified[id] = t
	return nil
}

type fakeLookup struct {
	mu         sync.Mutex
	stock      map[string]int // by barcode
	notFound   map[string]bool
	failing    map[string]bool
	configured bool
	calls      int
}

func (f *fakeLookup) Lookup(ctx context.Context, barcode string, variantID *string) (*inventory.StockInfo, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.notFound[barcode] {
		return nil, inventory.ErrNotFound
	}
	if f.failing[barcode] {
		return nil, errors.New("inventory timeout")
	}
	return &inventory.StockInfo{Name: "Item " + barcode, Stock: f.stock[barcode]}, nil
}

func (f *fakeLookup) Configured() bool { return f.configured }

type sentMessage struct {
	Title, Body, Topic string
	Data               map[string]string
}

type fakeNotifier struct {
	mu           sync.Mutex
	sent         []sentMessage
	fail         bool
	unconfigured bool
}

func (f *fakeNotifier) Configured() bool { return !f.unconfigured }

func (f *fakeNotifier) SendToTopic(ctx context.Context, title, body, topic string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, sentMessage{Title: title, Body: body, Topic: topic, Data: data})
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// businessDay is a Wednesday at 10:00 UTC, inside the default window.
var businessDay = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

func enabledProduct(id uint, barcode string, min int) models.Product {
	return models.Product{
		ID:                   id,
		Barcode:              barcode,
		MinStock:             min,
		NotificationsEnabled: true,
	}
}
