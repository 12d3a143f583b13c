package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tickerdeck/tickerdeck/internal/auth"
	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

// IdentityHandler provisions user rows from identity-provider events.
// Rows are also lazily created on first API hit, so a missed delivery
// here is self-healing.
type IdentityHandler struct {
	provisioner domain.UserProvisioner
	secret      string
	metrics     *telemetry.Metrics
}

func NewIdentityHandler(provisioner domain.UserProvisioner, secret string, metrics *telemetry.Metrics) *IdentityHandler {
	return &IdentityHandler{
		provisioner: provisioner,
		secret:      secret,
		metrics:     metrics,
	}
}

// identityEvent is the provider's event envelope.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"data"`
}

func (h *IdentityHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.identity", "Unable to read request body"))
		return
	}

	headers := auth.WebhookHeaders{
		ID:        r.Header.Get("webhook-id"),
		Timestamp: r.Header.Get("webhook-timestamp"),
		Signature: r.Header.Get("webhook-signature"),
	}
	if err := auth.VerifyWebhook(h.secret, payload, headers); err != nil {
		logger.Warn("identity webhook signature rejected", "error", err.Error())
		h.metrics.WebhooksFailed.WithLabelValues("identity", "unknown", "bad_signature").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.identity", "Invalid webhook signature"))
		return
	}

	var event identityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.metrics.WebhooksFailed.WithLabelValues("identity", "unknown", "bad_payload").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.identity", "Invalid event payload"))
		return
	}

	h.metrics.WebhooksReceived.WithLabelValues("identity", event.Type).Inc()

	switch event.Type {
	case "user.created":
		_, err := h.provisioner.Provision(r.Context(),
			event.Data.ID, event.Data.Email, event.Data.FirstName, event.Data.LastName)
		if err != nil {
			h.metrics.WebhooksFailed.WithLabelValues("identity", event.Type, domain.ErrorCode(err)).Inc()
			handler.ErrorResponse(w, r, err)
			return
		}
	default:
		logger.Debug("ignoring identity event", "type", event.Type)
	}

	h.metrics.WebhooksProcessed.WithLabelValues("identity", event.Type).Inc()
	h.metrics.WebhookDuration.WithLabelValues("identity").Observe(time.Since(start).Seconds())

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
