package domain

import (
	"context"
	"time"
)

// UserStore is the persistence boundary for user/subscription rows.
// Implemented by internal/postgres; hand-written fakes cover it in tests.
type UserStore interface {
	// Get returns the user row, or ErrUserNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// GetBySubscriptionID looks a user up by stored Stripe subscription id.
	// Used by webhook handlers, which only know the subscription.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*User, error)

	// Ensure creates the row if it does not exist and returns it.
	// Safe to call concurrently; the insert is a no-op on conflict.
	Ensure(ctx context.Context, id, email, firstName, lastName string) (*User, error)

	// SetCancelAtPeriodEnd flips the cancel flag and returns the updated row.
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*User, error)

	// SetPendingPlan marks the plan a checkout was started for.
	SetPendingPlan(ctx context.Context, id, plan string, isAnnual bool) error

	// ActivateSubscription writes the full activation field set. The
	// implementation tries the activate_subscription SQL function first
	// and falls back to a direct row update if the call fails.
	ActivateSubscription(ctx context.Context, id string, sub Subscription) (*User, error)

	// UpdateSubscriptionState overwrites status, period end, and cancel
	// flag. Used by webhook-driven syncs.
	UpdateSubscriptionState(ctx context.Context, id, status string, periodEnd *time.Time, cancelAtPeriodEnd bool) (*User, error)
}

// WatchlistStore is the persistence boundary for per-user ticker lists.
type WatchlistStore interface {
	List(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, symbol string) error
	Remove(ctx context.Context, userID, symbol string) error
}
