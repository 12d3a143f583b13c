package domain

import (
	"context"
	"time"
)

// CheckoutSession is the handle returned when a checkout is started.
// URL points either at Stripe-hosted checkout or, in mock mode, back at
// the dashboard's success page.
type CheckoutSession struct {
	ID  string
	URL string
}

// ActivateParams is the best-effort sync requested by the dashboard
// right after returning from checkout, before the webhook lands.
type ActivateParams struct {
	SessionID string
	Plan      string
	IsAnnual  bool
}

// CheckoutParams selects what to start a checkout for. PriceID wins when
// set; otherwise Plan + IsAnnual resolve against configured prices.
type CheckoutParams struct {
	PriceID  string
	Plan     string
	IsAnnual bool
}

// CheckoutCompleted carries the fields of a checkout.session.completed
// event that this system acts on.
type CheckoutCompleted struct {
	SessionID         string
	ClientReferenceID string
	SubscriptionID    string
	CustomerID        string
}

// SubscriptionUpdate carries the fields of a customer.subscription.updated
// event that this system acts on.
type SubscriptionUpdate struct {
	SubscriptionID    string
	Status            string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// SubscriptionService owns the subscription-state reconciliation between
// Stripe, the users table, and the dashboard.
type SubscriptionService interface {
	// Get ensures the user row exists and returns it.
	Get(ctx context.Context, ident *Identity) (*User, error)

	// Cancel sets cancel-at-period-end. Returns ErrNoActiveSubscription
	// when the user has no active subscription.
	Cancel(ctx context.Context, userID string) (*User, error)

	// Reactivate clears cancel-at-period-end. Returns
	// ErrSubscriptionNotCancelling when the flag is not set.
	Reactivate(ctx context.Context, userID string) (*User, error)

	// Activate performs the post-checkout best-effort sync. Redundant
	// with the webhook by design; both write the same fields.
	Activate(ctx context.Context, ident *Identity, params ActivateParams) (*User, error)

	// CreateCheckout starts a Stripe Checkout session (or synthesizes a
	// mock one) and marks the row pending.
	CreateCheckout(ctx context.Context, ident *Identity, params CheckoutParams) (*CheckoutSession, error)

	// Webhook-driven syncs. Errors bubble to a 500 so Stripe redelivers.
	SyncCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) error
	SyncSubscriptionUpdated(ctx context.Context, ev SubscriptionUpdate) error
	SyncSubscriptionDeleted(ctx context.Context, subscriptionID string) error
}

// WatchlistEntry is a tracked symbol with its current quote attached.
type WatchlistEntry struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
	Volume int64   `json:"volume"`
}

// WatchlistService manages per-user ticker lists.
type WatchlistService interface {
	List(ctx context.Context, userID string) ([]WatchlistEntry, error)
	Add(ctx context.Context, userID, symbol string) ([]WatchlistEntry, error)
	Remove(ctx context.Context, userID, symbol string) ([]WatchlistEntry, error)
}

// QueryTurn is one prior exchange in an AI conversation.
type QueryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is a natural-language question about tracked market data.
type QueryRequest struct {
	Query            string
	WatchlistSymbols []string
	History          []QueryTurn
}

// QueryResult is the model's answer plus the datasets it consulted.
type QueryResult struct {
	Answer  string
	Sources []string
}

// QueryService answers natural-language questions against market data.
type QueryService interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
}

// UserProvisioner creates user rows from identity-provider webhooks.
type UserProvisioner interface {
	Provision(ctx context.Context, id, email, firstName, lastName string) (*User, error)
}
