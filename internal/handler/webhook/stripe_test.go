package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

const testSignature = "t=1,v1=valid"

var (
	metricsOnce sync.Once
	metrics     *telemetry.Metrics
)

func testMetrics() *telemetry.Metrics {
	metricsOnce.Do(func() {
		metrics = telemetry.NewMetrics("tickerdeck_webhook_test")
	})
	return metrics
}

// signingProvider accepts exactly one known signature.
type signingProvider struct {
	*billing.NullProvider
}

func (p *signingProvider) VerifyWebhookSignature(payload []byte, signature, secret string) error {
	if signature != testSignature {
		return errors.New("signature mismatch")
	}
	return nil
}

// recordingService captures sync calls.
type recordingService struct {
	err error

	completed *domain.CheckoutCompleted
	updated   *domain.SubscriptionUpdate
	deletedID string
}

func (s *recordingService) Get(ctx context.Context, ident *domain.Identity) (*domain.User, error) {
	return nil, s.err
}

func (s *recordingService) Cancel(ctx context.Context, userID string) (*domain.User, error) {
	return nil, s.err
}

func (s *recordingService) Reactivate(ctx context.Context, userID string) (*domain.User, error) {
	return nil, s.err
}

func (s *recordingService) Activate(ctx context.Context, ident *domain.Identity, params domain.ActivateParams) (*domain.User, error) {
	return nil, s.err
}

func (s *recordingService) CreateCheckout(ctx context.Context, ident *domain.Identity, params domain.CheckoutParams) (*domain.CheckoutSession, error) {
	return nil, s.err
}

func (s *recordingService) SyncCheckoutCompleted(ctx context.Context, ev domain.CheckoutCompleted) error {
	s.completed = &ev
	return s.err
}

func (s *recordingService) SyncSubscriptionUpdated(ctx context.Context, ev domain.SubscriptionUpdate) error {
	s.updated = &ev
	return s.err
}

func (s *recordingService) SyncSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	s.deletedID = subscriptionID
	return s.err
}

func newStripeTest(svc *recordingService) *StripeHandler {
	provider := &signingProvider{NullProvider: billing.NewNullProvider()}
	return NewStripeHandler(svc, provider, "whsec_test", testMetrics())
}

func deliver(t *testing.T, h *StripeHandler, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestStripeRejectsBadSignature(t *testing.T) {
	svc := &recordingService{}
	h := newStripeTest(svc)

	payload := `{"type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`
	rec := deliver(t, h, payload, "t=1,v1=forged")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.completed, "no mutation on signature failure")
}

func TestStripeCheckoutCompleted(t *testing.T) {
	svc := &recordingService{}
	h := newStripeTest(svc)

	payload := `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"client_reference_id": "user_1",
			"subscription": {"id": "sub_1"},
			"customer": {"id": "cus_1"}
		}}
	}`
	rec := deliver(t, h, payload, testSignature)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body["received"])

	require.NotNil(t, svc.completed)
	assert.Equal(t, "cs_1", svc.completed.SessionID)
	assert.Equal(t, "user_1", svc.completed.ClientReferenceID)
	assert.Equal(t, "sub_1", svc.completed.SubscriptionID)
	assert.Equal(t, "cus_1", svc.completed.CustomerID)
}

func TestStripeSubscriptionUpdated(t *testing.T) {
	svc := &recordingService{}
	h := newStripeTest(svc)

	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	payload := `{
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"status": "past_due",
			"cancel_at_period_end": true,
			"items": {"data": [{"current_period_end": ` + jsonInt(end.Unix()) + `}]}
		}}
	}`
	rec := deliver(t, h, payload, testSignature)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	assert.Equal(t, "sub_1", svc.updated.SubscriptionID)
	assert.Equal(t, "past_due", svc.updated.Status)
	assert.True(t, svc.updated.CancelAtPeriodEnd)
	require.NotNil(t, svc.updated.CurrentPeriodEnd)
	assert.True(t, svc.updated.CurrentPeriodEnd.Equal(end))
}

func TestStripeSubscriptionDeleted(t *testing.T) {
	svc := &recordingService{}
	h := newStripeTest(svc)

	payload := `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`
	rec := deliver(t, h, payload, testSignature)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub_1", svc.deletedID)
}

func TestStripeInvalidEventReturns400(t *testing.T) {
	svc := &recordingService{err: domain.Invalid("webhook.stripe", "Checkout session has no client reference")}
	h := newStripeTest(svc)

	payload := `{"type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`
	rec := deliver(t, h, payload, testSignature)

	// Bad payloads get a 400 so Stripe does not retry them forever.
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeInternalErrorReturns500(t *testing.T) {
	svc := &recordingService{err: domain.Internal(errors.New("pgx: connection refused"), "webhook.stripe", "store write failed")}
	h := newStripeTest(svc)

	payload := `{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`
	rec := deliver(t, h, payload, testSignature)

	// Our own failures get a 500 so Stripe redelivers.
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStripeIgnoresUnhandledEvents(t *testing.T) {
	svc := &recordingService{}
	h := newStripeTest(svc)

	payload := `{"type":"invoice.paid","data":{"object":{"id":"in_1"}}}`
	rec := deliver(t, h, payload, testSignature)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.completed)
	assert.Nil(t, svc.updated)
	assert.Empty(t, svc.deletedID)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
