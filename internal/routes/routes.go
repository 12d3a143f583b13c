package routes

import (
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/handler"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
	"github.com/tickerdeck/tickerdeck/internal/router"
)

// New builds the full route tree.
func New(deps Deps) *router.Router {
	r := router.New(
		router.Recovery(deps.Logger),
		middleware.RequestID,
		deps.HTTPMetrics.Middleware,
		middleware.WithRequestLogger(deps.Logger),
		router.Logger(deps.Logger),
		router.CORS(deps.AllowedOrigins),
		middleware.MaxBodySize(middleware.SmallMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
	)

	// Method-qualified patterns never match OPTIONS, so preflights need
	// their own route. The CORS middleware answers before this handler runs.
	r.Handle(http.MethodOptions, "/api/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		handler.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle(http.MethodGet, "/metrics", deps.HTTPMetrics.Handler())

	registerWebhookRoutes(r, deps)
	registerAPIRoutes(r, deps)

	return r
}
