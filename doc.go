// Package unipay configures payment gateway connectors from a single services
// configuration and serves them behind one small admin API.
//
// # Overview
//
// A caller describes which backend to use, in which environment, with which
// credentials. unipay validates that description, builds the matching
// transaction, recurring billing and 3-D Secure connectors, and installs them
// as one tuple. Later calls resolve the installed connectors by capability
// without knowing which backend is behind them.
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │  ecom gateway   │
//	│   Your Apps     │◄──►│     unipay      │◄──►│  merchantware   │
//	│                 │    │   (Container)   │    │  transit        │
//	│                 │    │                 │    │  portico        │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Providers
//
//   - ecom-gateway: XML API with hosted payment page, recurring billing and
//     3-D Secure v1/v2
//   - legacy-merchantware: SOAP credit service, transactions only
//   - transit-gateway: JSON transaction API with transaction key auth
//   - portico-default: SOAP POS gateway plus PayPlan recurring billing when a
//     secret API key is configured. Unknown providers fall back to portico.
//
// # Quick Start
//
//	container := provider.NewContainer(gateways.NewFactory())
//	err := container.Configure(&config.ServicesConfig{
//	    GatewayProvider: config.ProviderPortico,
//	    SecretAPIKey:    "skapi_cert_...",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gateway, _ := container.GetPaymentGateway()
//	fmt.Println(gateway.ServiceURL())
//
// # HTTP API
//
// cmd/ serves the container over HTTP. Every /v1 route needs
// "Authorization: Bearer $API_KEY".
//
//	POST   /v1/configure                 install a services configuration
//	GET    /v1/gateway                   describe the installed tuple
//	GET    /v1/providers                 list providers and required fields
//	GET    /v1/secure3d/{version}        resolve a 3-D Secure provider
//	POST   /v1/secure3d/{version}        run a 3-D Secure step
//	POST   /v1/transactions              run a payment transaction
//	POST   /v1/recurring                 manage recurring billing records
//	GET    /v1/profiles                  list saved profiles
//	PUT    /v1/profiles/{name}           save a profile
//	POST   /v1/profiles/{name}/apply     install a saved profile
//	GET    /v1/logs/configure            recent configure events
//	GET    /health                       health check, no auth
//
// # Configuration
//
// The server reads its own settings from the environment (APP_PORT, API_KEY,
// PROFILE_DB_PATH, ENABLE_OPENSEARCH_LOGGING, OPENSEARCH_URL). A startup
// services configuration is taken from, in order:
//
//  1. the last applied profile in the profile store
//  2. the file named by UNIPAY_CONFIG_FILE (YAML, JSON or TOML)
//  3. UNIPAY_* variables, e.g. UNIPAY_GATEWAYPROVIDER=transit-gateway
//
// Credential values of the form gcpsm://projects/p/secrets/s are fetched
// from GCP Secret Manager when GCP_SECRET_MANAGER_ENABLED is true.
//
// # Examples
//
//   - examples/configure: configure a container and resolve its connectors
//   - examples/logger: structured logging with services context
package unipay
