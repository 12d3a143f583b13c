// Package billing abstracts the payment provider. The live implementation
// talks to Stripe; the null implementation backs mock mode, where the
// dashboard's billing surface works without any Stripe configuration.
// The strategy is selected once at startup, not per request.
package billing

import (
	"context"
	"time"
)

// Provider is the payment-provider boundary for subscription billing.
type Provider interface {
	// Enabled reports whether this provider performs real billing calls.
	// False routes cancel/reactivate/activate down their mock branches.
	Enabled() bool

	// CreateCheckoutSession starts a hosted checkout for a recurring price.
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// GetCheckoutSession retrieves a checkout session with its
	// subscription reference resolved.
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)

	// GetSubscription retrieves a subscription.
	GetSubscription(ctx context.Context, id string) (*Subscription, error)

	// SetCancelAtPeriodEnd flags or unflags a subscription to lapse at
	// the end of the current period. The provider is the source of truth
	// for this field; callers mirror it into storage only on success.
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*Subscription, error)

	// VerifyWebhookSignature verifies that a webhook payload is authentic.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// CheckoutSessionParams contains parameters for starting a checkout.
type CheckoutSessionParams struct {
	// PriceID is the provider's recurring price (price_...).
	PriceID string

	// ClientReferenceID is our user id, stashed on the session so the
	// completion webhook can find the row to update.
	ClientReferenceID string

	// CustomerEmail prefills the checkout form.
	CustomerEmail string

	// SuccessURL and CancelURL are the dashboard pages to return to.
	SuccessURL string
	CancelURL  string
}

// CheckoutSession represents a hosted checkout flow instance.
type CheckoutSession struct {
	ID                string
	URL               string
	ClientReferenceID string
	CustomerID        string

	// SubscriptionID is set once the session completed and produced a
	// subscription; empty before then.
	SubscriptionID string
}

// Subscription represents a recurring subscription at the provider.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string // "active", "trialing", "past_due", "canceled", ...
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}
