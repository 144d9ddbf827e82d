// Package provider binds one validated services configuration to a set of
// live gateway connectors and hands them out to callers.
//
// # Core Concepts
//
//   - Container: holds the currently installed Services tuple and swaps it
//     atomically on every successful Configure or Apply
//   - Factory: maps a GatewayProvider identity to the Builder that creates
//     its connectors, falling back to portico for unknown identities
//   - Services: the immutable tuple of PaymentGateway, RecurringService and
//     Secure3DRegistry built from one configuration
//   - TransactionService: validates requests and routes them through the
//     installed connectors
//
// # Basic Usage
//
//	container := provider.NewContainer(gateways.NewFactory())
//
//	cfg := &config.ServicesConfig{
//	    GatewayProvider: config.ProviderEcom,
//	    MerchantID:      "heartlandgpsandbox",
//	    AccountID:       "api",
//	    SharedSecret:    "secret",
//	    Secure3dVersion: config.Secure3dAny,
//	}
//	if err := container.Configure(cfg); err != nil {
//	    // the previous tuple, if any, is still installed
//	    log.Fatal(err)
//	}
//
//	gateway, err := container.GetPaymentGateway()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(gateway.ServiceURL())
//
// Transactions go through TransactionService so every request is validated
// and logged the same way:
//
//	service := provider.NewTransactionService(container)
//	result, err := service.Execute(ctx, &provider.TransactionRequest{
//	    Type:     provider.TransactionSale,
//	    Amount:   decimal.RequireFromString("10.00"),
//	    Currency: "USD",
//	    Card:     &provider.Card{Number: "4263970000005262", ExpMonth: 12, ExpYear: 2030, CVN: "123"},
//	})
//
// A declined transaction is not an error. Check result.Approved().
//
// # Errors
//
// Every accessor returns an error matching errs.ErrNotConfigured until the
// first successful Configure. Capabilities the bound backend lacks return an
// errs.UnsupportedCapabilityError, and a 3-D Secure version that was not
// registered returns a ConfigurationError. Use the errs.Is* helpers to
// branch on them.
//
// # Adding a Backend
//
// Implement any of PaymentGateway, RecurringService or Secure3DProvider and
// register a Builder for the new identity:
//
//	factory := gateways.NewFactory()
//	factory.Register("my-gateway", func(v *config.Validated) (*provider.Services, error) {
//	    return &provider.Services{Gateway: mygateway.New(v.Config())}, nil
//	})
//
// Builders receive a *config.Validated, so they never see a configuration
// that failed validation.
package provider
