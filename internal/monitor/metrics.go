package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_monitor_passes_total",
			Help: "Total number of monitoring passes by trigger kind",
		},
		[]string{"trigger"}, // scheduled, continuous
	)

	productsChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_products_checked_total",
			Help: "Products that resolved from the inventory source and classified below NORMAL",
		},
	)

	alertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_alerts_sent_total",
			Help: "Alerts delivered to the push transport",
		},
		[]string{"level"},
	)

	productsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_products_skipped_total",
			Help: "Products gated by the eligibility policy",
		},
	)

	lookupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockwatch_product_errors_total",
			Help: "Per-product failures (lookup, send, ledger write)",
		},
	)

	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_pass_duration_seconds",
			Help:    "Duration of a full monitoring pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)
)
