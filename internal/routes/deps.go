// Package routes composes the HTTP surface: global middleware, the
// authenticated /api group, the webhook endpoints, and the operational
// endpoints (/health, /metrics).
package routes

import (
	"log/slog"

	"github.com/tickerdeck/tickerdeck/internal/auth"
	"github.com/tickerdeck/tickerdeck/internal/handler/api"
	"github.com/tickerdeck/tickerdeck/internal/handler/webhook"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
)

// Deps contains everything the route tree needs.
type Deps struct {
	Logger *slog.Logger

	// AllowedOrigins are the browser origins permitted by CORS,
	// normally just the dashboard URL.
	AllowedOrigins []string

	// Verifier validates session tokens on the authenticated group.
	Verifier *auth.Verifier

	// HTTPMetrics serves /metrics and records per-request metrics.
	HTTPMetrics *middleware.Metrics

	Subscriptions *api.SubscriptionHandler
	Watchlist     *api.WatchlistHandler
	Market        *api.MarketHandler
	AI            *api.AIHandler

	StripeWebhook   *webhook.StripeHandler
	IdentityWebhook *webhook.IdentityHandler
}
