package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

// AIHandler serves the natural-language market assistant route.
type AIHandler struct {
	svc      domain.QueryService
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

func NewAIHandler(svc domain.QueryService, metrics *telemetry.Metrics) *AIHandler {
	return &AIHandler{
		svc:      svc,
		metrics:  metrics,
		validate: validator.New(),
	}
}

type aiQueryRequest struct {
	Query            string             `json:"query" validate:"required,max=2000"`
	WatchlistSymbols []string           `json:"watchlistSymbols" validate:"max=50"`
	History          []domain.QueryTurn `json:"history" validate:"max=20"`
}

type aiQueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Query answers a question about tracked market data.
func (h *AIHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req aiQueryRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("ai.query", "Query is required and must be under 2000 characters"))
		return
	}

	start := time.Now()
	result, err := h.svc.Query(r.Context(), domain.QueryRequest{
		Query:            req.Query,
		WatchlistSymbols: req.WatchlistSymbols,
		History:          req.History,
	})
	h.metrics.AIQueryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.metrics.AIQueries.WithLabelValues("error").Inc()
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.AIQueries.WithLabelValues("ok").Inc()
	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}
	handler.JSON(w, http.StatusOK, aiQueryResponse{Answer: result.Answer, Sources: sources})
}
