package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using the Stripe API.
type StripeProvider struct {
	config StripeConfig
}

// NewStripeProvider creates a Stripe billing provider and installs the
// API key process-wide (the stripe-go resource packages use it).
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stripe.Key = config.APIKey
	return &StripeProvider{config: config}, nil
}

// Enabled reports that real billing calls are performed.
func (s *StripeProvider) Enabled() bool {
	return true
}

// IsTestMode reports whether the configured key is a test-mode key.
func (s *StripeProvider) IsTestMode() bool {
	return s.config.IsTestMode()
}

// CreateCheckoutSession starts a Stripe-hosted subscription checkout.
func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(params.ClientReferenceID),
		SuccessURL:        stripe.String(params.SuccessURL),
		CancelURL:         stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	sessionParams.Context = ctx

	sess, err := session.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return mapCheckoutSession(sess), nil
}

// GetCheckoutSession retrieves a checkout session with its subscription
// expanded, so callers get the subscription id in one round-trip.
func (s *StripeProvider) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")

	sess, err := session.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", id, err)
	}

	return mapCheckoutSession(sess), nil
}

// GetSubscription retrieves a subscription.
func (s *StripeProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get subscription %s: %w", id, err)
	}

	return mapSubscription(sub), nil
}

// SetCancelAtPeriodEnd updates the cancel flag on a subscription.
func (s *StripeProvider) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx

	sub, err := subscription.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: update subscription %s: %w", id, err)
	}

	return mapSubscription(sub), nil
}

// VerifyWebhookSignature verifies a Stripe webhook signature.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	if secret == "" {
		secret = s.config.WebhookSecret
	}
	return webhook.ValidatePayload(payload, signature, secret)
}

func mapCheckoutSession(sess *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                sess.ID,
		URL:               sess.URL,
		ClientReferenceID: sess.ClientReferenceID,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out
}

func mapSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CurrentPeriodEnd:  subscriptionPeriodEnd(sub),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	return out
}

// subscriptionPeriodEnd extracts the current period end. Since the basil
// API versions the period lives on the subscription items, not the
// subscription itself; all items share the billing period.
func subscriptionPeriodEnd(sub *stripe.Subscription) time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return time.Time{}
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end == 0 {
		return time.Time{}
	}
	return time.Unix(end, 0).UTC()
}
