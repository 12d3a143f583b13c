// Package telemetry registers the Prometheus metrics served at /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds business-level counters and histograms. HTTP-level
// request metrics live in the middleware; these track the billing and
// assistant funnels.
type Metrics struct {
	// Checkout funnel
	CheckoutsStarted   *prometheus.CounterVec
	CheckoutsCompleted prometheus.Counter

	// Subscription lifecycle
	SubscriptionsActivated   *prometheus.CounterVec
	SubscriptionsCanceled    prometheus.Counter
	SubscriptionsReactivated prometheus.Counter
	SubscriptionsDeleted     prometheus.Counter

	// Webhooks
	WebhooksReceived  *prometheus.CounterVec
	WebhooksProcessed *prometheus.CounterVec
	WebhooksFailed    *prometheus.CounterVec
	WebhookDuration   *prometheus.HistogramVec

	// Assistant
	AIQueries       *prometheus.CounterVec
	AIQueryDuration prometheus.Histogram

	// Watchlist
	WatchlistAdds    prometheus.Counter
	WatchlistRemoves prometheus.Counter
}

// NewMetrics creates and registers all business metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tickerdeck"
	}
	subsystem := "business"

	return &Metrics{
		CheckoutsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkouts_started_total",
				Help:      "Checkout sessions created",
			},
			[]string{"plan", "mode"}, // mode: live, mock
		),
		CheckoutsCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkouts_completed_total",
				Help:      "Checkout sessions completed via webhook",
			},
		),
		SubscriptionsActivated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions_activated_total",
				Help:      "Subscription activations, by source",
			},
			[]string{"source"}, // source: checkout_sync, webhook
		),
		SubscriptionsCanceled: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions_canceled_total",
				Help:      "Cancel-at-period-end requests",
			},
		),
		SubscriptionsReactivated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions_reactivated_total",
				Help:      "Cancellations reversed before period end",
			},
		),
		SubscriptionsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions_deleted_total",
				Help:      "Subscriptions fully lapsed",
			},
		),
		WebhooksReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Webhook deliveries received",
			},
			[]string{"source", "event_type"},
		),
		WebhooksProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_processed_total",
				Help:      "Webhook deliveries handled successfully",
			},
			[]string{"source", "event_type"},
		),
		WebhooksFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_failed_total",
				Help:      "Webhook deliveries that errored",
			},
			[]string{"source", "event_type", "reason"},
		),
		WebhookDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook handling latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		AIQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ai_queries_total",
				Help:      "Assistant queries, by outcome",
			},
			[]string{"outcome"}, // outcome: ok, error
		),
		AIQueryDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ai_query_duration_seconds",
				Help:      "Assistant query latency including tool calls",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
		),
		WatchlistAdds: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "watchlist_adds_total",
				Help:      "Symbols added to watchlists",
			},
		),
		WatchlistRemoves: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "watchlist_removes_total",
				Help:      "Symbols removed from watchlists",
			},
		),
	}
}
