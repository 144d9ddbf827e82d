package config

import "github.com/samber/lo"

// Fixed service endpoints per backend and environment.
const (
	GlobalEcomTest       = "https://api.sandbox.realexpayments.com/epage-remote.cgi"
	GlobalEcomProduction = "https://api.realexpayments.com/epage-remote.cgi"

	ThreeDSAuthTest       = "https://api.sandbox.globalpay-ecommerce.com/3ds2/"
	ThreeDSAuthProduction = "https://api.globalpay-ecommerce.com/3ds2/"

	MerchantwareTest       = "https://staging.merchantware.net/Merchantware/ws/RetailTransaction/v45/Credit.asmx"
	MerchantwareProduction = "https://ps1.merchantware.net/Merchantware/ws/RetailTransaction/v45/Credit.asmx"

	TransitTest       = "https://stagegw.transnox.com/servlets/TransNox_API_Server/"
	TransitProduction = "https://gateway.transit-pass.com/servlets/TransNox_API_Server/"

	PorticoTest       = "https://cert.api2.heartlandportico.com"
	PorticoProduction = "https://api2.heartlandportico.com"

	// PorticoGatewayPath is appended to the portico base endpoint for payment processing
	PorticoGatewayPath = "/Hps.Exchange.PosGateway/PosGatewayService.asmx"

	PayPlanCertPath       = "/Portico.PayPlan.v2/"
	PayPlanProductionPath = "/PayPlan.v2/"
)

// ResolveEndpoint returns explicit verbatim when set, otherwise the fixed
// endpoint for env.
func ResolveEndpoint(explicit string, env Environment, test, production string) string {
	if explicit != "" {
		return explicit
	}
	return lo.Ternary(env == EnvironmentProduction, production, test)
}
