package api

import (
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/marketdata"
	"github.com/tickerdeck/tickerdeck/internal/service"
)

// MarketHandler serves the per-symbol market dataset routes.
type MarketHandler struct {
	data *marketdata.Service
}

func NewMarketHandler(data *marketdata.Service) *MarketHandler {
	return &MarketHandler{data: data}
}

// routeDatasets maps URL path segments to dataset names.
var routeDatasets = map[string]string{
	"quotes":          marketdata.DatasetQuote,
	"insider-trades":  marketdata.DatasetInsiders,
	"analyst-ratings": marketdata.DatasetAnalysts,
	"options-flow":    marketdata.DatasetOptions,
	"hedge-funds":     marketdata.DatasetHedgeFunds,
	"technicals":      marketdata.DatasetTechnicals,
}

// Dataset handles GET /api/market/{dataset}/{symbol}.
func (h *MarketHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := routeDatasets[r.PathValue("dataset")]
	if !ok {
		handler.ErrorResponse(w, r, domain.NotFound("market.dataset", "dataset", r.PathValue("dataset")))
		return
	}

	symbol, err := service.NormalizeSymbol(r.PathValue("symbol"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	data, err := h.data.Fetch(dataset, symbol)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Internal(err, "market.dataset", "dataset fetch failed"))
		return
	}

	handler.JSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"data":   data,
	})
}
