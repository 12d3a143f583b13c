// Package service implements the domain service interfaces. The
// subscription service owns reconciliation between the billing provider,
// the users table, and the dashboard: the provider is the source of
// truth for live subscriptions and the table is a cache of it.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// CheckoutURLs are the dashboard pages a checkout returns to.
type CheckoutURLs struct {
	Success string
	Cancel  string
}

// PriceResolver maps a plan/interval selection to a provider price id.
// Returns "" when no price is configured for the combination.
type PriceResolver func(plan string, isAnnual bool) string

// SubscriptionService implements domain.SubscriptionService.
type SubscriptionService struct {
	store    domain.UserStore
	provider billing.Provider
	prices   PriceResolver
	urls     CheckoutURLs
	logger   *slog.Logger
	now      func() time.Time
}

var _ domain.SubscriptionService = (*SubscriptionService)(nil)

func NewSubscriptionService(store domain.UserStore, provider billing.Provider, prices PriceResolver, urls CheckoutURLs, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:    store,
		provider: provider,
		prices:   prices,
		urls:     urls,
		logger:   logger,
		now:      time.Now,
	}
}

// live reports whether the stored subscription id should be reconciled
// against the provider. Rows carrying mock or sentinel ids stay on the
// mock branch even when the provider is configured.
func (s *SubscriptionService) live(sub domain.Subscription) bool {
	return domain.HasLiveSubscriptionID(sub.SubscriptionID) && s.provider.Enabled()
}

// Get ensures the user row exists and returns it.
func (s *SubscriptionService) Get(ctx context.Context, ident *domain.Identity) (*domain.User, error) {
	user, err := s.store.Ensure(ctx, ident.UserID, ident.Email, ident.FirstName, ident.LastName)
	if err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.Get")
	}
	return user, nil
}

// Cancel flags the subscription to lapse at period end. On the live
// branch the provider is updated first and the table only mirrors a
// successful provider write, so a provider failure never leaves the
// cache claiming a cancellation the provider does not know about.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.Cancel")
	}

	sub := user.Subscription
	if !sub.IsActive() {
		return nil, domain.ErrNoActiveSubscription
	}
	if sub.CancelAtPeriodEnd {
		return user, nil
	}

	if s.live(sub) {
		if _, err := s.provider.SetCancelAtPeriodEnd(ctx, sub.SubscriptionID, true); err != nil {
			s.logger.Error("provider cancel failed",
				"user_id", userID,
				"subscription_id", sub.SubscriptionID,
				"error", err)
			return nil, domain.Internal(err, "SubscriptionService.Cancel", "provider cancel failed")
		}
	}

	updated, err := s.store.SetCancelAtPeriodEnd(ctx, userID, true)
	if err != nil {
		// The authoritative write already happened (or was not needed);
		// report success with the flag applied rather than failing the
		// request over a cache write.
		s.logger.Warn("cancel flag write failed, returning synthesized state",
			"user_id", userID, "error", err)
		user.Subscription.CancelAtPeriodEnd = true
		return user, nil
	}
	return updated, nil
}

// Reactivate clears the cancel-at-period-end flag.
func (s *SubscriptionService) Reactivate(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.Reactivate")
	}

	sub := user.Subscription
	if !sub.IsActive() {
		return nil, domain.ErrNoActiveSubscription
	}
	if !sub.CancelAtPeriodEnd {
		return nil, domain.ErrSubscriptionNotCancelling
	}

	if s.live(sub) {
		if _, err := s.provider.SetCancelAtPeriodEnd(ctx, sub.SubscriptionID, false); err != nil {
			s.logger.Error("provider reactivate failed",
				"user_id", userID,
				"subscription_id", sub.SubscriptionID,
				"error", err)
			return nil, domain.Internal(err, "SubscriptionService.Reactivate", "provider reactivate failed")
		}
	}

	updated, err := s.store.SetCancelAtPeriodEnd(ctx, userID, false)
	if err != nil {
		s.logger.Warn("reactivate flag write failed, returning synthesized state",
			"user_id", userID, "error", err)
		user.Subscription.CancelAtPeriodEnd = false
		return user, nil
	}
	return updated, nil
}

// Activate is the post-checkout sync the dashboard requests as soon as
// the user returns from checkout, before the webhook lands. It is
// deliberately redundant with SyncCheckoutCompleted: both write the same
// field set, so whichever lands first wins and the other converges.
func (s *SubscriptionService) Activate(ctx context.Context, ident *domain.Identity, params domain.ActivateParams) (*domain.User, error) {
	if _, err := s.store.Ensure(ctx, ident.UserID, ident.Email, ident.FirstName, ident.LastName); err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.Activate")
	}

	plan := normalizePlan(params.Plan)
	sub := domain.Subscription{
		Status:         domain.StatusActive,
		SubscriptionID: domain.ManualActivationID,
		Plan:           plan,
		IsAnnual:       params.IsAnnual,
	}

	if !domain.IsMockCheckoutSession(params.SessionID) && s.provider.Enabled() {
		// Best effort: resolve the real subscription behind the session.
		// Any provider failure falls back to the optimistic write above;
		// the webhook will correct the row with authoritative values.
		sess, err := s.provider.GetCheckoutSession(ctx, params.SessionID)
		if err != nil {
			s.logger.Warn("activate: checkout session lookup failed",
				"user_id", ident.UserID, "session_id", params.SessionID, "error", err)
		} else {
			if sess.SubscriptionID != "" {
				sub.SubscriptionID = sess.SubscriptionID
			}
			sub.StripeCustomerID = sess.CustomerID

			if sess.SubscriptionID != "" {
				if ps, err := s.provider.GetSubscription(ctx, sess.SubscriptionID); err != nil {
					s.logger.Warn("activate: subscription lookup failed",
						"user_id", ident.UserID, "subscription_id", sess.SubscriptionID, "error", err)
				} else {
					sub.Status = mapProviderStatus(ps.Status)
					sub.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
					if !ps.CurrentPeriodEnd.IsZero() {
						end := ps.CurrentPeriodEnd
						sub.CurrentPeriodEnd = domain.NormalizePeriodEnd(&end)
					}
				}
			}
		}
	}

	if sub.CurrentPeriodEnd == nil {
		end := s.estimatePeriodEnd(params.IsAnnual)
		sub.CurrentPeriodEnd = &end
	}

	user, err := s.store.ActivateSubscription(ctx, ident.UserID, sub)
	if err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.Activate")
	}
	return user, nil
}

// CreateCheckout starts a checkout for a plan and marks the row pending.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, ident *domain.Identity, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	if _, err := s.store.Ensure(ctx, ident.UserID, ident.Email, ident.FirstName, ident.LastName); err != nil {
		return nil, domain.WrapOp(err, "SubscriptionService.CreateCheckout")
	}

	plan := normalizePlan(params.Plan)
	priceID := params.PriceID
	if priceID == "" {
		priceID = s.prices(plan, params.IsAnnual)
	}
	if priceID == "" && s.provider.Enabled() {
		return nil, domain.Errorf(domain.EINVALID, "", "No price configured for the selected plan.")
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutSessionParams{
		PriceID:           priceID,
		ClientReferenceID: ident.UserID,
		CustomerEmail:     ident.Email,
		SuccessURL:        s.urls.Success,
		CancelURL:         s.urls.Cancel,
	})
	if err != nil {
		s.logger.Error("checkout session creation failed",
			"user_id", ident.UserID, "plan", plan, "error", err)
		return nil, domain.Errorf(domain.EPAYMENT, "", "Unable to start checkout. Please try again.")
	}

	if err := s.store.SetPendingPlan(ctx, ident.UserID, plan, params.IsAnnual); err != nil {
		// The session already exists; losing the pending marker only
		// costs a cosmetic "pending" badge until the webhook lands.
		s.logger.Warn("pending plan write failed",
			"user_id", ident.UserID, "plan", plan, "error", err)
	}

	return &domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// SyncCheckoutCompleted applies a checkout.session.completed event.
func (s *SubscriptionService) SyncCheckoutCompleted(ctx context.Context, ev domain.CheckoutCompleted) error {
	if ev.ClientReferenceID == "" {
		return domain.Errorf(domain.EINVALID, "", "checkout session has no client reference id")
	}

	user, err := s.store.Get(ctx, ev.ClientReferenceID)
	if err != nil {
		return domain.WrapOp(err, "SubscriptionService.SyncCheckoutCompleted")
	}

	sub := domain.Subscription{
		Status:           domain.StatusActive,
		SubscriptionID:   ev.SubscriptionID,
		StripeCustomerID: ev.CustomerID,
		// The plan was recorded when the checkout started; the event does
		// not carry it.
		Plan:     user.Subscription.Plan,
		IsAnnual: user.Subscription.IsAnnual,
	}
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = domain.ManualActivationID
	}
	if sub.Plan == "" || sub.Plan == domain.PlanFree {
		sub.Plan = domain.PlanPro
	}

	if domain.HasLiveSubscriptionID(ev.SubscriptionID) && s.provider.Enabled() {
		if ps, err := s.provider.GetSubscription(ctx, ev.SubscriptionID); err != nil {
			s.logger.Warn("checkout completed: subscription lookup failed",
				"subscription_id", ev.SubscriptionID, "error", err)
		} else {
			sub.Status = mapProviderStatus(ps.Status)
			sub.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
			if !ps.CurrentPeriodEnd.IsZero() {
				end := ps.CurrentPeriodEnd
				sub.CurrentPeriodEnd = domain.NormalizePeriodEnd(&end)
			}
		}
	}
	if sub.CurrentPeriodEnd == nil {
		end := s.estimatePeriodEnd(sub.IsAnnual)
		sub.CurrentPeriodEnd = &end
	}

	if _, err := s.store.ActivateSubscription(ctx, ev.ClientReferenceID, sub); err != nil {
		return domain.WrapOp(err, "SubscriptionService.SyncCheckoutCompleted")
	}

	s.logger.Info("subscription activated from checkout",
		"user_id", ev.ClientReferenceID,
		"subscription_id", sub.SubscriptionID,
		"plan", sub.Plan)
	return nil
}

// SyncSubscriptionUpdated applies a customer.subscription.updated event.
// Events for subscriptions no row references are dropped: redelivering
// them cannot ever succeed.
func (s *SubscriptionService) SyncSubscriptionUpdated(ctx context.Context, ev domain.SubscriptionUpdate) error {
	user, err := s.store.GetBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			s.logger.Warn("subscription update for unknown subscription",
				"subscription_id", ev.SubscriptionID)
			return nil
		}
		return domain.WrapOp(err, "SubscriptionService.SyncSubscriptionUpdated")
	}

	status := mapProviderStatus(ev.Status)
	periodEnd := domain.NormalizePeriodEnd(ev.CurrentPeriodEnd)
	if _, err := s.store.UpdateSubscriptionState(ctx, user.ID, status, periodEnd, ev.CancelAtPeriodEnd); err != nil {
		return domain.WrapOp(err, "SubscriptionService.SyncSubscriptionUpdated")
	}

	s.logger.Info("subscription state updated",
		"user_id", user.ID,
		"subscription_id", ev.SubscriptionID,
		"status", status,
		"cancel_at_period_end", ev.CancelAtPeriodEnd)
	return nil
}

// SyncSubscriptionDeleted applies a customer.subscription.deleted event:
// the user drops back to the free plan.
func (s *SubscriptionService) SyncSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	user, err := s.store.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			s.logger.Warn("subscription delete for unknown subscription",
				"subscription_id", subscriptionID)
			return nil
		}
		return domain.WrapOp(err, "SubscriptionService.SyncSubscriptionDeleted")
	}

	sub := domain.Subscription{
		Status:           domain.StatusCanceled,
		SubscriptionID:   subscriptionID,
		StripeCustomerID: user.Subscription.StripeCustomerID,
		Plan:             domain.PlanFree,
	}
	if _, err := s.store.ActivateSubscription(ctx, user.ID, sub); err != nil {
		return domain.WrapOp(err, "SubscriptionService.SyncSubscriptionDeleted")
	}

	s.logger.Info("subscription deleted, user reverted to free plan",
		"user_id", user.ID,
		"subscription_id", subscriptionID)
	return nil
}

func (s *SubscriptionService) estimatePeriodEnd(isAnnual bool) time.Time {
	now := s.now().UTC()
	if isAnnual {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case domain.PlanAdvanced:
		return domain.PlanAdvanced
	case domain.PlanFree:
		return domain.PlanFree
	default:
		return domain.PlanPro
	}
}

// mapProviderStatus folds the provider's status vocabulary into ours.
func mapProviderStatus(status string) string {
	switch status {
	case "active", "past_due":
		return domain.StatusActive
	case "trialing":
		return domain.StatusTrialing
	case "canceled", "unpaid", "incomplete_expired":
		return domain.StatusCanceled
	case "incomplete":
		return domain.StatusPending
	default:
		return domain.StatusInactive
	}
}
