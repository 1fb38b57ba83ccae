package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mstgnz/cardsave/handler"
	"github.com/mstgnz/cardsave/infra/middle"

	// Import for side-effect registration
	_ "github.com/mstgnz/cardsave/provider/cardsave"
)

// Handlers groups the HTTP handlers wired into the route tree
type Handlers struct {
	Payment *handler.PaymentHandler
	Config  *handler.ConfigHandler
	Health  *handler.HealthHandler
}

// New builds the service router with the standard middleware chain
func New(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middleware.Timeout(6 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health.Health)
	r.Get("/health/live", h.Health.Liveness)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/checkout", h.Payment.ProcessPayment)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.Config.GetConfig)
			r.Post("/", h.Config.SetConfig)
			r.Delete("/", h.Config.DeleteConfig)
			r.Get("/required", h.Config.RequiredConfig)
		})
	})

	return r
}
