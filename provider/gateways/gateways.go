// Package gateways wires every connector builder into a provider.Factory.
// Each builder resolves its endpoints and copies configuration fields onto
// the connector by name.
package gateways

import (
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/provider"
	"github.com/mstgnz/unipay/provider/gp3ds"
	"github.com/mstgnz/unipay/provider/merchantware"
	"github.com/mstgnz/unipay/provider/portico"
	"github.com/mstgnz/unipay/provider/realex"
	"github.com/mstgnz/unipay/provider/transit"
)

// NewFactory returns a factory with every supported backend registered.
// Unknown identities fall back to portico-default.
func NewFactory() *provider.Factory {
	f := provider.NewFactory()
	f.Register(config.ProviderEcom, BuildEcom)
	f.Register(config.ProviderMerchantware, BuildMerchantware)
	f.Register(config.ProviderTransit, BuildTransit)
	f.Register(config.ProviderPortico, BuildPortico)
	return f
}

// BuildEcom binds the ecom connector as payment gateway, recurring service
// and 3-D Secure version one provider, plus the version two provider when
// the 3-D Secure policy asks for it.
func BuildEcom(v *config.Validated) (*provider.Services, error) {
	cfg := v.Config()

	conn, err := realex.New(realex.Config{
		MerchantID:          cfg.MerchantID,
		AccountID:           cfg.AccountID,
		Channel:             cfg.Channel,
		SharedSecret:        cfg.SharedSecret,
		RebatePassword:      cfg.RebatePassword,
		RefundPassword:      cfg.RefundPassword,
		HostedPaymentConfig: cfg.HostedPaymentConfig,
		ServiceURL:          config.ResolveEndpoint(cfg.ServiceURL, v.Environment(), config.GlobalEcomTest, config.GlobalEcomProduction),
		Timeout:             cfg.Timeout.Duration(),
		Transport:           cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	registry := provider.NewSecure3DRegistry()

	// an unset policy counts as version one
	if cfg.Secure3dVersion.Includes(config.Secure3dOne) {
		if err := registry.Register(conn); err != nil {
			return nil, err
		}
	}

	if cfg.Secure3dVersion.Includes(config.Secure3dTwo) {
		threeDS, err := gp3ds.New(
			config.ResolveEndpoint("", v.Environment(), config.ThreeDSAuthTest, config.ThreeDSAuthProduction),
			cfg.Timeout.Duration(),
			cfg.Transport,
		)
		if err != nil {
			return nil, err
		}
		threeDS.SetMerchantID(cfg.MerchantID)
		threeDS.SetAccountID(cfg.AccountID)
		threeDS.SetSharedSecret(cfg.SharedSecret)
		threeDS.SetMethodNotificationURL(cfg.MethodNotificationURL)
		threeDS.SetChallengeNotificationURL(cfg.ChallengeNotificationURL)
		threeDS.SetMerchantContactURL(cfg.MerchantContactURL)

		if err := registry.Register(threeDS); err != nil {
			return nil, err
		}
	}

	return &provider.Services{
		Gateway:   conn,
		Recurring: conn,
		Secure3D:  registry,
	}, nil
}

// BuildMerchantware binds the merchantware connector. It has no recurring
// service.
func BuildMerchantware(v *config.Validated) (*provider.Services, error) {
	cfg := v.Config()

	conn, err := merchantware.New(merchantware.Config{
		MerchantName:   cfg.MerchantName,
		MerchantSiteID: cfg.MerchantSiteID,
		MerchantKey:    cfg.MerchantKey,
		RegisterNumber: cfg.RegisterNumber,
		TerminalID:     cfg.TerminalID,
		ServiceURL:     config.ResolveEndpoint(cfg.ServiceURL, v.Environment(), config.MerchantwareTest, config.MerchantwareProduction),
		Timeout:        cfg.Timeout.Duration(),
		Transport:      cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	return &provider.Services{Gateway: conn}, nil
}

// BuildTransit binds the transit connector. It has no recurring service.
func BuildTransit(v *config.Validated) (*provider.Services, error) {
	cfg := v.Config()

	conn, err := transit.New(transit.Config{
		DeviceID:       cfg.DeviceID,
		MerchantID:     cfg.MerchantID,
		TransactionKey: cfg.TransactionKey,
		Manifest:       cfg.Manifest,
		Username:       cfg.Username,
		Password:       cfg.Password,
		DeveloperID:    cfg.DeveloperID,
		AcceptorConfig: cfg.AcceptorConfig,
		ServiceURL:     config.ResolveEndpoint(cfg.ServiceURL, v.Environment(), config.TransitTest, config.TransitProduction),
		Timeout:        cfg.Timeout.Duration(),
		Transport:      cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	return &provider.Services{Gateway: conn}, nil
}

// BuildPortico binds the portico gateway and, when a secret API key is
// configured, the PayPlan recurring service.
func BuildPortico(v *config.Validated) (*provider.Services, error) {
	cfg := v.Config()
	base := PorticoBaseURL(v)

	conn, err := portico.New(portico.Config{
		SiteID:        cfg.SiteID,
		LicenseID:     cfg.LicenseID,
		DeviceID:      cfg.DeviceID,
		Username:      cfg.Username,
		Password:      cfg.Password,
		SecretAPIKey:  cfg.SecretAPIKey,
		DeveloperID:   cfg.DeveloperID,
		VersionNumber: cfg.VersionNumber,
		ServiceURL:    base + config.PorticoGatewayPath,
		Timeout:       cfg.Timeout.Duration(),
		Transport:     cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	services := &provider.Services{Gateway: conn}

	if cfg.SecretAPIKey != "" {
		payPlan, err := portico.NewPayPlan(portico.PayPlanConfig{
			SecretAPIKey: cfg.SecretAPIKey,
			ServiceURL:   base + v.PayPlanEndpoint(),
			Timeout:      cfg.Timeout.Duration(),
			Transport:    cfg.Transport,
		})
		if err != nil {
			return nil, err
		}
		services.Recurring = payPlan
	}

	return services, nil
}

// PorticoBaseURL picks the portico base endpoint: the explicit service URL,
// else the environment named by the secret API key, else the configured
// environment.
func PorticoBaseURL(v *config.Validated) string {
	cfg := v.Config()
	if cfg.ServiceURL != "" {
		return cfg.ServiceURL
	}
	if keyEnv := v.APIKeyEnvironment(); keyEnv != "" {
		return lo.Ternary(keyEnv == "prod", config.PorticoProduction, config.PorticoTest)
	}
	return config.ResolveEndpoint("", v.Environment(), config.PorticoTest, config.PorticoProduction)
}
