// Package api contains the JSON handlers behind the authenticated /api
// routes. Handlers translate HTTP to service calls and back; business
// rules live in the service layer.
package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

// SubscriptionHandler serves the subscription state and lifecycle routes.
type SubscriptionHandler struct {
	svc      domain.SubscriptionService
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

func NewSubscriptionHandler(svc domain.SubscriptionService, metrics *telemetry.Metrics) *SubscriptionHandler {
	return &SubscriptionHandler{
		svc:      svc,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// subscriptionResponse is the billing state the dashboard renders.
type subscriptionResponse struct {
	Status            string     `json:"status"`
	Plan              string     `json:"plan"`
	IsAnnual          bool       `json:"isAnnual"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	DerivedStatus     string     `json:"derivedStatus"`
}

func toSubscriptionResponse(sub domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Status:            sub.Status,
		Plan:              sub.Plan,
		IsAnnual:          sub.IsAnnual,
		CurrentPeriodEnd:  domain.NormalizePeriodEnd(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		DerivedStatus:     sub.DerivedStatus(),
	}
}

// Get returns the caller's subscription state. Any failure degrades to
// the safe default with a 200: the billing page must always render, and
// an outage must never look like a lapsed subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	user, err := h.svc.Get(r.Context(), ident)
	if err != nil {
		middleware.GetLogger(r.Context()).Error("subscription read failed, serving default",
			"error", err.Error())
		handler.JSON(w, http.StatusOK, toSubscriptionResponse(domain.DefaultSubscription()))
		return
	}

	handler.JSON(w, http.StatusOK, toSubscriptionResponse(user.Subscription))
}

// lifecycleResponse wraps the mutation responses: the dashboard checks
// success, toasts message, and re-renders from subscription.
type lifecycleResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message,omitempty"`
	Subscription subscriptionResponse `json:"subscription"`
}

// Cancel flags the subscription to lapse at period end.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	user, err := h.svc.Cancel(r.Context(), ident.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.SubscriptionsCanceled.Inc()
	handler.JSON(w, http.StatusOK, lifecycleResponse{
		Success:      true,
		Message:      "Subscription will be cancelled at the end of the billing period",
		Subscription: toSubscriptionResponse(user.Subscription),
	})
}

// Reactivate reverses a pending cancellation before the period ends.
func (h *SubscriptionHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	user, err := h.svc.Reactivate(r.Context(), ident.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.SubscriptionsReactivated.Inc()
	handler.JSON(w, http.StatusOK, lifecycleResponse{
		Success:      true,
		Message:      "Subscription reactivated",
		Subscription: toSubscriptionResponse(user.Subscription),
	})
}

type activateRequest struct {
	SessionID string `json:"sessionId"`
	Plan      string `json:"plan" validate:"omitempty,oneof=free pro advanced"`
	IsAnnual  bool   `json:"isAnnual"`
}

// Activate is the post-checkout sync the dashboard calls on return from
// Stripe, before the webhook lands. Redundant with the webhook; both
// write the same fields.
func (h *SubscriptionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	var req activateRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("subscription.activate", "Invalid plan"))
		return
	}

	user, err := h.svc.Activate(r.Context(), ident, domain.ActivateParams{
		SessionID: req.SessionID,
		Plan:      req.Plan,
		IsAnnual:  req.IsAnnual,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.SubscriptionsActivated.WithLabelValues("checkout_sync").Inc()
	handler.JSON(w, http.StatusOK, lifecycleResponse{
		Success:      true,
		Subscription: toSubscriptionResponse(user.Subscription),
	})
}
