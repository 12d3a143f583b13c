package routes

import (
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/router"
)

// registerAPIRoutes registers the authenticated dashboard API. Every
// route here requires a valid session token.
func registerAPIRoutes(r *router.Router, deps Deps) {
	authed := r.Group(
		middleware.RequireAuth(deps.Verifier),
		// Re-derive the request logger so it carries the user id.
		middleware.WithRequestLogger(deps.Logger),
	)

	authed.Get("/api/subscriptions", deps.Subscriptions.Get)
	authed.Post("/api/subscriptions/cancel", deps.Subscriptions.Cancel)
	authed.Post("/api/subscriptions/reactivate", deps.Subscriptions.Reactivate)
	authed.Post("/api/subscriptions/activate", deps.Subscriptions.Activate)
	authed.Post("/api/create-checkout-session", deps.Subscriptions.CreateCheckout)

	authed.Get("/api/watchlist", deps.Watchlist.List)
	authed.Post("/api/watchlist", deps.Watchlist.Add)
	authed.Delete("/api/watchlist/{symbol}", deps.Watchlist.Remove)

	authed.Get("/api/market/{dataset}/{symbol}", deps.Market.Dataset)

	// Model calls are expensive; queries get a tighter per-IP budget.
	authed.Post("/api/ai/query", deps.AI.Query,
		middleware.RateLimit(middleware.RateLimiterConfig{
			RequestsPerSecond: 1,
			BurstSize:         10,
			CleanupInterval:   middleware.DefaultRateLimiterConfig().CleanupInterval,
		}))
}
