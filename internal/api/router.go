package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"redisclient-go/internal/api/handlers"
	"redisclient-go/internal/api/middleware"
)

// NewRouter creates a new Chi router with all routes and middleware configured
func NewRouter(
	accounts handlers.AccountStore,
	redis handlers.StatusSource,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	accountHandler := handlers.NewAccountHandler(accounts, logger)
	statusHandler := handlers.NewStatusHandler(redis, accounts, logger)
	healthHandler := handlers.NewHealthHandler(redis, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.Create)
			r.Get("/", accountHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", accountHandler.Get)
				r.Patch("/", accountHandler.Update)
				r.Delete("/", accountHandler.Delete)
				r.Post("/promote", accountHandler.Promote)
				r.Get("/events", accountHandler.Events)
				r.Post("/sessions", accountHandler.OpenSession)
			})
		})

		r.Get("/vip", accountHandler.TopVIP)

		r.Route("/sessions/{token}", func(r chi.Router) {
			r.Get("/", accountHandler.GetSession)
			r.Put("/", accountHandler.RefreshSession)
			r.Delete("/", accountHandler.CloseSession)
		})

		r.Get("/status", statusHandler.Handle)

		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/ready", healthHandler.HandleReady)

		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	})

	return r
}
