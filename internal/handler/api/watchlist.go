package api

import (
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/telemetry"
)

// WatchlistHandler serves the per-user ticker list routes.
type WatchlistHandler struct {
	svc     domain.WatchlistService
	metrics *telemetry.Metrics
}

func NewWatchlistHandler(svc domain.WatchlistService, metrics *telemetry.Metrics) *WatchlistHandler {
	return &WatchlistHandler{svc: svc, metrics: metrics}
}

type watchlistResponse struct {
	Watchlist []domain.WatchlistEntry `json:"watchlist"`
}

// List returns the caller's watchlist with quotes attached. A storage
// failure degrades to an empty list so the dashboard still renders.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	entries, err := h.svc.List(r.Context(), ident.UserID)
	if err != nil {
		middleware.GetLogger(r.Context()).Error("watchlist read failed, serving empty list",
			"error", err.Error())
		entries = nil
	}
	if entries == nil {
		entries = []domain.WatchlistEntry{}
	}

	handler.JSON(w, http.StatusOK, watchlistResponse{Watchlist: entries})
}

// addTickerRequest carries the ticker to track. The field is named
// "ticker" on the wire; responses use "symbol" per entry.
type addTickerRequest struct {
	Ticker string `json:"ticker"`
}

// Add tracks a symbol and returns the updated list.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	var req addTickerRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	entries, err := h.svc.Add(r.Context(), ident.UserID, req.Ticker)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.WatchlistAdds.Inc()
	handler.JSON(w, http.StatusOK, watchlistResponse{Watchlist: entries})
}

// Remove untracks a symbol and returns the updated list. Removing an
// absent symbol is a no-op, not an error.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ident := domain.MustIdentity(r.Context())

	entries, err := h.svc.Remove(r.Context(), ident.UserID, r.PathValue("symbol"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.metrics.WatchlistRemoves.Inc()
	handler.JSON(w, http.StatusOK, watchlistResponse{Watchlist: entries})
}
