package api

import (
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
)

type checkoutRequest struct {
	PriceID  string `json:"priceId"`
	Plan     string `json:"plan"`
	IsAnnual bool   `json:"isAnnual"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckout starts a checkout session. With Stripe configured this
// is a real hosted checkout; in mock mode the service synthesizes a
// session pointing back at the app's success page.
func (h *SubscriptionHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	var req checkoutRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	session, err := h.svc.CreateCheckout(r.Context(), ident, domain.CheckoutParams{
		PriceID:  req.PriceID,
		Plan:     req.Plan,
		IsAnnual: req.IsAnnual,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	plan := req.Plan
	if plan == "" {
		plan = "price_id"
	}
	mode := "live"
	if domain.IsMockCheckoutSession(session.ID) {
		mode = "mock"
	}
	h.metrics.CheckoutsStarted.WithLabelValues(plan, mode).Inc()

	handler.JSON(w, http.StatusOK, checkoutResponse{SessionID: session.ID, URL: session.URL})
}
