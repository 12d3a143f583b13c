// Package webhook contains the inbound webhook handlers. Both endpoints
// verify signatures before touching anything, and both distinguish bad
// payloads (400, sender should not retry) from our own failures (500,
// sender redelivers).
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/tickerdeck/tickerdeck/internal/billing"
	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

const maxWebhookBody = 1 << 16 // 64KB, Stripe events are small

// StripeHandler processes Stripe billing events. Events for
// subscriptions we have no row for are acked and dropped; returning an
// error would make Stripe redeliver an event we can never handle.
type StripeHandler struct {
	svc      domain.SubscriptionService
	provider billing.Provider
	secret   string
	metrics  *telemetry.Metrics
}

func NewStripeHandler(svc domain.SubscriptionService, provider billing.Provider, secret string, metrics *telemetry.Metrics) *StripeHandler {
	return &StripeHandler{
		svc:      svc,
		provider: provider,
		secret:   secret,
		metrics:  metrics,
	}
}

func (h *StripeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Unable to read request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.provider.VerifyWebhookSignature(payload, signature, h.secret); err != nil {
		logger.Warn("stripe webhook signature rejected", "error", err.Error())
		h.metrics.WebhooksFailed.WithLabelValues("stripe", "unknown", "bad_signature").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Invalid webhook signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		h.metrics.WebhooksFailed.WithLabelValues("stripe", "unknown", "bad_payload").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Invalid event payload"))
		return
	}

	eventType := string(event.Type)
	h.metrics.WebhooksReceived.WithLabelValues("stripe", eventType).Inc()

	if err := h.dispatch(r, event); err != nil {
		h.metrics.WebhooksFailed.WithLabelValues("stripe", eventType, domain.ErrorCode(err)).Inc()
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.WebhooksProcessed.WithLabelValues("stripe", eventType).Inc()
	h.metrics.WebhookDuration.WithLabelValues("stripe").Observe(time.Since(start).Seconds())

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeHandler) dispatch(r *http.Request, event stripe.Event) error {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return domain.Invalid("webhook.stripe", "Malformed checkout session event")
		}

		ev := domain.CheckoutCompleted{
			SessionID:         session.ID,
			ClientReferenceID: session.ClientReferenceID,
		}
		if session.Subscription != nil {
			ev.SubscriptionID = session.Subscription.ID
		}
		if session.Customer != nil {
			ev.CustomerID = session.Customer.ID
		}

		if err := h.svc.SyncCheckoutCompleted(ctx, ev); err != nil {
			return err
		}
		h.metrics.CheckoutsCompleted.Inc()
		h.metrics.SubscriptionsActivated.WithLabelValues("webhook").Inc()
		return nil

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return domain.Invalid("webhook.stripe", "Malformed subscription event")
		}

		return h.svc.SyncSubscriptionUpdated(ctx, domain.SubscriptionUpdate{
			SubscriptionID:    sub.ID,
			Status:            string(sub.Status),
			CurrentPeriodEnd:  subscriptionPeriodEnd(&sub),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		})

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return domain.Invalid("webhook.stripe", "Malformed subscription event")
		}

		if err := h.svc.SyncSubscriptionDeleted(ctx, sub.ID); err != nil {
			return err
		}
		h.metrics.SubscriptionsDeleted.Inc()
		return nil

	default:
		// Ack everything else so Stripe does not redeliver events we
		// deliberately ignore.
		logger.Debug("ignoring stripe event", "type", event.Type)
		return nil
	}
}

// subscriptionPeriodEnd reads the current period end off the first
// subscription item, where the API reports it.
func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	ts := sub.Items.Data[0].CurrentPeriodEnd
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
