package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/mstgnz/unipay/handler"
	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/middle"
	"github.com/mstgnz/unipay/infra/response"
	"github.com/mstgnz/unipay/provider"
	v1 "github.com/mstgnz/unipay/router/v1"
)

// Dependencies are the services the admin API is built on. Profiles,
// Events and RateLimiter are optional.
type Dependencies struct {
	Container   *provider.Container
	Service     *provider.TransactionService
	Profiles    *config.ProfileStorage
	Events      handler.ConfigureEventReader
	RateLimiter *middle.RateLimiter
	APIKey      string
}

// New builds the admin API router
func New(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())
	if deps.RateLimiter != nil {
		r.Use(middle.RateLimitMiddleware(deps.RateLimiter))
	}
	r.Use(middle.RequestValidationMiddleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With", middle.RequestIDHeader},
		ExposedHeaders: []string{"Content-Length", middle.RequestIDHeader},
		MaxAge:         300, // Preflight cache time (second)
	}))

	// store and pinger stay untyped nil when storage is disabled
	var (
		store  handler.ProfileStore
		pinger handler.Pinger
	)
	handlers := v1.Handlers{
		Gateway:     handler.NewGatewayHandler(deps.Container, nil),
		Transaction: handler.NewTransactionHandler(deps.Service),
	}
	if deps.Profiles != nil {
		store, pinger = deps.Profiles, deps.Profiles
		handlers.Gateway = handler.NewGatewayHandler(deps.Container, store)
		handlers.Profiles = handler.NewProfileHandler(deps.Container, store)
	}
	if deps.Events != nil {
		handlers.Logs = handler.NewLogsHandler(deps.Events)
	}

	// Health check endpoint (no auth required)
	r.Get("/health", handler.NewHealthHandler(deps.Container, pinger, deps.Events != nil).CheckHealth)

	// API routes with authentication
	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.AuthMiddleware(deps.APIKey))
		v1.Routes(r, handlers)
	})

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	return r
}
