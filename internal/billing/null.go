package billing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NullProvider is the no-op billing backend used when Stripe is not
// configured. Checkout sessions are fabricated in memory and the
// subscription operations never leave the process, so the rest of the
// application exercises its mock branches against a provider that
// behaves consistently.
type NullProvider struct {
	mu sync.Mutex

	sessions      map[string]*CheckoutSession
	subscriptions map[string]*Subscription
	nextSession   int

	// CallLog records provider method invocations for test assertions.
	CallLog []string

	// CreateCheckoutSessionFunc overrides CreateCheckoutSession when set.
	CreateCheckoutSessionFunc func(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)

	// GetSubscriptionFunc overrides GetSubscription when set.
	GetSubscriptionFunc func(ctx context.Context, id string) (*Subscription, error)
}

// NewNullProvider creates an in-memory billing provider.
func NewNullProvider() *NullProvider {
	return &NullProvider{
		sessions:      make(map[string]*CheckoutSession),
		subscriptions: make(map[string]*Subscription),
	}
}

// Enabled reports false: no real billing backend is attached.
func (p *NullProvider) Enabled() bool {
	return false
}

func (p *NullProvider) record(call string) {
	p.CallLog = append(p.CallLog, call)
}

// CreateCheckoutSession fabricates a checkout session that redirects
// straight to the success URL, skipping any payment form.
func (p *NullProvider) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CreateCheckoutSession")

	if p.CreateCheckoutSessionFunc != nil {
		return p.CreateCheckoutSessionFunc(ctx, params)
	}

	p.nextSession++
	sess := &CheckoutSession{
		ID:                fmt.Sprintf("cs_mock_%d", p.nextSession),
		URL:               params.SuccessURL,
		ClientReferenceID: params.ClientReferenceID,
	}
	p.sessions[sess.ID] = sess
	return sess, nil
}

// GetCheckoutSession returns a previously fabricated session.
func (p *NullProvider) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GetCheckoutSession")

	sess, ok := p.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *sess
	return &out, nil
}

// GetSubscription returns a seeded subscription, if any.
func (p *NullProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GetSubscription")

	if p.GetSubscriptionFunc != nil {
		return p.GetSubscriptionFunc(ctx, id)
	}

	sub, ok := p.subscriptions[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	out := *sub
	return &out, nil
}

// SetCancelAtPeriodEnd updates a seeded subscription in memory.
func (p *NullProvider) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("SetCancelAtPeriodEnd")

	sub, ok := p.subscriptions[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	sub.CancelAtPeriodEnd = cancel
	out := *sub
	return &out, nil
}

// VerifyWebhookSignature always fails: without a configured provider
// there is no shared secret, so no inbound webhook can be authentic.
func (p *NullProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	return ErrDisabled
}

// SeedSubscription installs a subscription for tests.
func (p *NullProvider) SeedSubscription(sub *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *sub
	if cp.CurrentPeriodEnd.IsZero() {
		cp.CurrentPeriodEnd = time.Now().Add(30 * 24 * time.Hour).UTC()
	}
	p.subscriptions[cp.ID] = &cp
}
