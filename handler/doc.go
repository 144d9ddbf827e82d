// Package handler provides the HTTP handlers of the unipay admin API.
//
// The handlers sit on top of a provider.Container. They never build
// connectors themselves: configuration goes through Container.Apply and
// transactions through provider.TransactionService, so the HTTP layer sees
// exactly what library callers see.
//
// # Gateway Handler
//
// GatewayHandler installs and describes the active services tuple:
//
//	gatewayHandler := handler.NewGatewayHandler(container, profileStorage)
//
//	r.Post("/v1/configure", gatewayHandler.Configure)      // ?profile=name stores it too
//	r.Get("/v1/gateway", gatewayHandler.Describe)
//	r.Get("/v1/secure3d/{version}", gatewayHandler.Secure3D)
//	r.Get("/v1/providers", gatewayHandler.Providers)
//
// A rejected configuration returns 400 with the hints attached to the
// configuration error, e.g.
//
//	{"code":400,"success":false,"message":"Configuration rejected",
//	 "error":"configuration_error: required field 'sharedSecret' is missing",
//	 "hints":["set sharedSecret for the ecom-gateway gateway"]}
//
// The previously active tuple stays in place.
//
// # Transaction Handler
//
// TransactionHandler runs requests through the active tuple:
//
//	r.Post("/v1/transactions", transactionHandler.ProcessTransaction)
//	r.Post("/v1/recurring", transactionHandler.ProcessRecurring)
//	r.Post("/v1/secure3d/{version}", transactionHandler.ProcessSecure3D)
//
// # Error Mapping
//
//   - services not configured: 409
//   - invalid request or configuration: 400
//   - unsupported capability: 422
//   - backend gateway failure: 502
//   - unknown profile: 404
//
// # Profiles
//
// ProfileHandler stores named configurations in SQLite. Credentials are
// masked in every response.
package handler
