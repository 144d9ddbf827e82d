package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/mstgnz/unipay/handler"
)

// Handlers are the handlers mounted under /v1. Profiles and Logs may be nil
// when profile storage or audit logging is disabled.
type Handlers struct {
	Gateway     *handler.GatewayHandler
	Transaction *handler.TransactionHandler
	Profiles    *handler.ProfileHandler
	Logs        *handler.LogsHandler
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	// Services configuration and resolution
	r.Post("/configure", h.Gateway.Configure)
	r.Get("/gateway", h.Gateway.Describe)
	r.Get("/providers", h.Gateway.Providers)
	r.Get("/secure3d/{version}", h.Gateway.Secure3D)

	// Requests against the active tuple
	r.Post("/transactions", h.Transaction.ProcessTransaction)
	r.Post("/recurring", h.Transaction.ProcessRecurring)
	r.Post("/secure3d/{version}", h.Transaction.ProcessSecure3D)

	if h.Profiles != nil {
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.Profiles.ListProfiles)
			r.Get("/{name}", h.Profiles.GetProfile)
			r.Put("/{name}", h.Profiles.SaveProfile)
			r.Post("/{name}/apply", h.Profiles.ApplyProfile)
			r.Delete("/{name}", h.Profiles.DeleteProfile)
		})
	}

	if h.Logs != nil {
		r.Get("/logs/configure", h.Logs.ConfigureEvents)
	}
}
