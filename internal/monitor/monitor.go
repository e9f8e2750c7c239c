// Package monitor holds the stock-monitoring decision engine: severity
// classification, notification eligibility, the pass orchestrator and its
// time-based triggers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockwatch/internal/inventory"
	"stockwatch/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured means the inventory API credentials are missing. The
	// pass fails up front; retrying per product would be pointless.
	ErrNotConfigured = errors.New("monitor: inventory API not configured")

	// ErrCheckInProgress means another pass holds the run guard. Triggers
	// that lose are dropped, never queued.
	ErrCheckInProgress = errors.New("monitor: check already in progress")

	// ErrPushNotConfigured means the push transport has no credentials. The
	// pass fails up front; running it would record ledger rows and consume
	// the daily cap for alerts that never left.
	ErrPushNotConfigured = errors.New("monitor: push transport not configured")
)

// ProductStore is the product access the monitor needs.
// *repository.ProductRepository satisfies it.
type ProductStore interface {
	ListNotificationEnabled() ([]models.Product, error)
	UpdateLastNotified(id uint, t time.Time) error
}

// StockLookup resolves live stock for a product.
// *inventory.Client satisfies it.
type StockLookup interface {
	Lookup(ctx context.Context, barcode string, variantID *string) (*inventory.StockInfo, error)
	Configured() bool
}

// Notifier is the push transport. *service.FCMService satisfies it.
type Notifier interface {
	SendToTopic(ctx context.Context, title, body, topic string, data map[string]string) error
	Configured() bool
}

// Broadcaster receives live events for connected dashboard clients. May be nil.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// BusinessHours restricts passes to weekdays within an hour range.
type BusinessHours struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Open reports whether a pass may run at the given instant.
func (b BusinessHours) Open(now time.Time) bool {
	loc := b.Location
	if loc == nil {
		loc = time.Local
	}
	t := now.In(loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := t.Hour()
	return h >= b.StartHour && h < b.EndHour
}

// Summary aggregates one monitoring pass.
type Summary struct {
	Checked              int    `json:"checked"`
	Sent                 int    `json:"sent"`
	Skipped              int    `json:"skipped"`
	Errors               int    `json:"errors"`
	BusinessHoursSkipped bool   `json:"business_hours_skipped"`
	Reason               string `json:"reason,omitempty"`
}

// Options tunes the monitor beyond its required collaborators.
type Options struct {
	Hours   BusinessHours
	Workers int
	Hub     Broadcaster
	Logger  *zap.Logger
	Now     func() time.Time
}

// Monitor runs monitoring passes over all notification-enabled products.
type Monitor struct {
	products ProductStore
	history  HistoryStore
	lookup   StockLookup
	notifier Notifier
	policy   Policy

	hours   BusinessHours
	workers int
	hub     Broadcaster
	logger  *zap.Logger
	now     func() time.Time

	running sync.Mutex // guards the single in-flight pass
}

func New(products ProductStore, history HistoryStore, lookup StockLookup, notifier Notifier, policy Policy, opts Options) *Monitor {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		products: products,
		history:  history,
		lookup:   lookup,
		notifier: notifier,
		policy:   policy,
		hours:    opts.Hours,
		workers:  opts.Workers,
		hub:      opts.Hub,
		logger:   opts.Logger.Named("monitor"),
		now:      opts.Now,
	}
}

// RunCheck performs one monitoring pass. scheduled marks fixed-clock
// "guaranteed" runs, which bypass the change dedup. At most one pass runs at
// a time; a concurrent call returns ErrCheckInProgress immediately.
// Per-product failures are absorbed into the counters; the only errors that
// escape are pass-level ones.
func (m *Monitor) RunCheck(ctx context.Context, scheduled bool) (Summary, error) {
	if !m.running.TryLock() {
		return Summary{}, ErrCheckInProgress
	}
	defer m.running.Unlock()

	trigger := "continuous"
	if scheduled {
		trigger = "scheduled"
	}
	passesTotal.WithLabelValues(trigger).Inc()

	now := m.now()
	if m.hours.Enabled && !m.hours.Open(now) {
		s := Summary{
			BusinessHoursSkipped: true,
			Reason: fmt.Sprintf("outside business hours (Mon-Fri %02d:00-%02d:00)",
				m.hours.StartHour, m.hours.EndHour),
		}
		m.logger.Info("pass skipped", zap.String("reason", s.Reason))
		return s, nil
	}

	if !m.lookup.Configured() {
		return Summary{}, ErrNotConfigured
	}
	if m.notifier == nil || !m.notifier.Configured() {
		return Summary{}, ErrPushNotConfigured
	}

	products, err := m.products.ListNotificationEnabled()
	if err != nil {
		return Summary{}, fmt.Errorf("load products: %w", err)
	}

	start := now
	m.logger.Info("pass started",
		zap.Bool("scheduled", scheduled),
		zap.Int("products", len(products)))

	var (
		summary Summary
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	workers := m.workers
	if workers > len(products) {
		workers = len(products)
	}

	ch := make(chan models.Product, len(products))
	for _, p := range products {
		ch <- p
	}
	close(ch)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				outcome := m.checkProduct(ctx, &p, scheduled, now)
				mu.Lock()
				summary.Checked += outcome.checked
				summary.Sent += outcome.sent
				summary.Skipped += outcome.skipped
				summary.Errors += outcome.errors
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	passDuration.Observe(time.Since(start).Seconds())
	m.logger.Info("pass complete",
		zap.Int("checked", summary.Checked),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))

	if m.hub != nil {
		m.hub.Broadcast("check_complete", summary)
	}
	return summary, nil
}

type productOutcome struct {
	checked, sent, skipped, errors int
}

func (m *Monitor) checkProduct(ctx context.Context, p *models.Product, scheduled bool, now time.Time) productOutcome {
	log := m.logger.With(zap.Uint("product_id", p.ID), zap.String("barcode", p.Barcode))

	allow, reason, err := m.policy.AllowProduct(p, now)
	if err != nil {
		log.Error("eligibility check failed", zap.Error(err))
		lookupErrors.Inc()
		return productOutcome{errors: 1}
	}
	if !allow {
		log.Debug("product skipped", zap.String("reason", reason))
		productsSkipped.Inc()
		return productOutcome{skipped: 1}
	}

	info, err := m.lookup.Lookup(ctx, p.Barcode, p.VariantID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			log.Warn("product not found in inventory source")
		} else {
			log.Error("stock lookup failed", zap.Error(err))
		}
		lookupErrors.Inc()
		return productOutcome{errors: 1}
	}

	level := Classify(info.Stock, p.MinStock)
	if level == LevelNormal {
		log.Debug("stock ok", zap.Int("stock", info.Stock), zap.Int("min", p.MinStock))
		return productOutcome{}
	}

	outcome := productOutcome{checked: 1}
	productsChecked.Inc()

	allow, reason, err = m.policy.AllowAlert(p, info.Stock, scheduled, now)
	if err != nil {
		log.Error("dedup check failed", zap.Error(err))
		lookupErrors.Inc()
		outcome.errors = 1
		return outcome
	}
	if !allow {
		log.Debug("alert deduplicated", zap.String("reason", reason))
		productsSkipped.Inc()
		outcome.skipped = 1
		return outcome
	}

	title, body := alertMessage(p, info, level)
	topic := p.Topic()
	data := map[string]string{
		"product_id": fmt.Sprint(p.ID),
		"barcode":    p.Barcode,
		"level":      string(level),
		"stock":      fmt.Sprint(info.Stock),
		"min_stock":  fmt.Sprint(p.MinStock),
	}
	if err := m.notifier.SendToTopic(ctx, title, body, topic, data); err != nil {
		log.Error("notification send failed", zap.Error(err))
		lookupErrors.Inc()
		outcome.errors = 1
		return outcome
	}

	entry := &models.NotificationHistory{
		ProductID:           p.ID,
		Level:               string(level),
		StockAtNotification: info.Stock,
		MinStock:            p.MinStock,
		SentAt:              now,
	}
	if err := m.history.Create(entry); err != nil {
		// The push already left; without a ledger row the send cannot be
		// counted or deduplicated, so it goes down as an error.
		log.Error("history write failed after send", zap.Error(err))
		lookupErrors.Inc()
		outcome.errors = 1
		return outcome
	}

	if err := m.products.UpdateLastNotified(p.ID, now); err != nil {
		log.Warn("last_notified_at update failed", zap.Error(err))
	}

	alertsSent.WithLabelValues(string(level)).Inc()
	log.Info("alert sent",
		zap.String("level", string(level)),
		zap.Int("stock", info.Stock),
		zap.Int("min", p.MinStock),
		zap.String("topic", topic))

	if m.hub != nil {
		m.hub.Broadcast("alert_sent", map[string]interface{}{
			"product_id": p.ID,
			"barcode":    p.Barcode,
			"name":       info.Name,
			"level":      level,
			"stock":      info.Stock,
			"min_stock":  p.MinStock,
		})
	}

	outcome.sent = 1
	return outcome
}

func alertMessage(p *models.Product, info *inventory.StockInfo, level Level) (title, body string) {
	emoji := "🟡"
	label := "low"
	if level == LevelCritical {
		emoji = "🔴"
		label = "critical"
	}
	name := info.Name
	if p.Name != nil && *p.Name != "" {
		name = *p.Name
	}
	title = fmt.Sprintf("%s Stock %s", emoji, label)
	body = fmt.Sprintf("%s\nStock: %d units (minimum: %d)", name, info.Stock, p.MinStock)
	return title, body
}
