package routes

import (
	"github.com/tickerdeck/tickerdeck/internal/router"
)

// registerWebhookRoutes registers the inbound webhook endpoints. These
// skip session auth; each handler verifies its own signature.
func registerWebhookRoutes(r *router.Router, deps Deps) {
	r.Post("/api/webhooks/stripe", deps.StripeWebhook.Handle)
	r.Post("/api/webhooks/identity", deps.IdentityWebhook.Handle)
}
