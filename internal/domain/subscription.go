// Package domain provides core business types shared by the API layer,
// services, and storage. The subscription helpers here are the single
// source of truth for status derivation and period-end sanitization;
// every caller goes through them rather than re-deriving locally.
package domain

import (
	"strings"
	"time"
)

// Persisted subscription statuses. Stored as free-form text, not a
// database enum; unknown values pass through DeriveStatus unchanged.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusTrialing = "trialing"
	StatusCanceled = "canceled"
	StatusPending  = "pending"
)

// StatusCancelling is derived-only: an active subscription that will
// lapse at the end of the current period. Never written to storage.
const StatusCancelling = "cancelling"

// Plan types.
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanAdvanced = "advanced"
)

// ManualActivationID is the sentinel subscription id written by
// activation paths that never completed a real Stripe round-trip.
const ManualActivationID = "manual_activation"

// minPeriodEnd is the cutoff below which a stored period end is treated
// as garbage (epoch-zero writes from earlier bugs) rather than a date.
var minPeriodEnd = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Subscription holds the billing fields of a user row.
type Subscription struct {
	Status            string
	SubscriptionID    string // Stripe id, ManualActivationID, or empty
	StripeCustomerID  string
	Plan              string
	IsAnnual          bool
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// User is one row of the users table, keyed by the external identity id.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Subscription Subscription
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeriveStatus computes the UI-facing status label. It returns
// StatusCancelling exactly when the subscription is active and flagged to
// cancel at period end; otherwise it returns the stored status unchanged.
func DeriveStatus(status string, cancelAtPeriodEnd bool) string {
	if status == StatusActive && cancelAtPeriodEnd {
		return StatusCancelling
	}
	return status
}

// DerivedStatus is DeriveStatus applied to the subscription's own fields.
func (s Subscription) DerivedStatus() string {
	return DeriveStatus(s.Status, s.CancelAtPeriodEnd)
}

// IsActive reports whether the stored status is active, regardless of the
// cancel flag. A cancelling subscription is still active until it lapses.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// NormalizePeriodEnd maps invalid period-end timestamps to nil. Zero
// values, epoch-zero writes, and anything before 2000 count as unknown;
// readers must never surface them as literal 1970 dates.
func NormalizePeriodEnd(t *time.Time) *time.Time {
	if t == nil || t.IsZero() || t.Before(minPeriodEnd) {
		return nil
	}
	return t
}

// HasLiveSubscriptionID reports whether id references a real Stripe
// subscription, as opposed to the manual-activation sentinel or nothing.
// This is the branch condition between the live and mock billing paths.
func HasLiveSubscriptionID(id string) bool {
	return strings.HasPrefix(id, "sub_")
}

// IsMockCheckoutSession reports whether a checkout session id was
// synthesized locally rather than issued by Stripe.
func IsMockCheckoutSession(id string) bool {
	return id == "" || strings.HasPrefix(id, "cs_mock") || strings.HasPrefix(id, "mock_")
}

// DaysRemaining returns whole days until the period end at the given
// time, rounding up. Zero when the period end is unknown or past.
func (s Subscription) DaysRemaining(now time.Time) int {
	end := NormalizePeriodEnd(s.CurrentPeriodEnd)
	if end == nil {
		return 0
	}
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours()/24 + 0.5)
}

// DefaultSubscription is the safe fallback returned by read paths when
// storage is unavailable or the row does not exist yet. The billing UI
// must always have something to render.
func DefaultSubscription() Subscription {
	return Subscription{
		Status: StatusInactive,
		Plan:   PlanFree,
	}
}
