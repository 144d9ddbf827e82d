package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/errs"
)

// ConfigField represents a configuration field a provider needs
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`

	value func(*ServicesConfig) string
}

var (
	ecomFields = []ConfigField{
		{Key: "merchantId", Required: true, Description: "Merchant ID issued by the ecom gateway", Example: "heartlandgpsandbox", value: func(c *ServicesConfig) string { return c.MerchantID }},
		{Key: "sharedSecret", Required: true, Description: "Shared secret used to sign requests", Example: "secret", value: func(c *ServicesConfig) string { return c.SharedSecret }},
		{Key: "accountId", Description: "Sub-account used for processing", Example: "api", value: func(c *ServicesConfig) string { return c.AccountID }},
		{Key: "rebatePassword", Description: "Password for rebate requests", value: func(c *ServicesConfig) string { return c.RebatePassword }},
		{Key: "refundPassword", Description: "Password for credit requests", value: func(c *ServicesConfig) string { return c.RefundPassword }},
	}

	ecomSecure3dV2Fields = []ConfigField{
		{Key: "methodNotificationUrl", Required: true, Description: "Callback for the 3DS method step", Example: "https://example.com/3ds2/method", value: func(c *ServicesConfig) string { return c.MethodNotificationURL }},
		{Key: "challengeNotificationUrl", Required: true, Description: "Callback for the 3DS challenge step", Example: "https://example.com/3ds2/challenge", value: func(c *ServicesConfig) string { return c.ChallengeNotificationURL }},
		{Key: "merchantContactUrl", Description: "Merchant contact page shown by issuers", value: func(c *ServicesConfig) string { return c.MerchantContactURL }},
	}

	merchantwareFields = []ConfigField{
		{Key: "merchantName", Required: true, Description: "Merchant name", value: func(c *ServicesConfig) string { return c.MerchantName }},
		{Key: "merchantSiteId", Required: true, Description: "Merchant site ID", value: func(c *ServicesConfig) string { return c.MerchantSiteID }},
		{Key: "merchantKey", Required: true, Description: "Merchant key", value: func(c *ServicesConfig) string { return c.MerchantKey }},
		{Key: "registerNumber", Description: "Register number", value: func(c *ServicesConfig) string { return c.RegisterNumber }},
		{Key: "terminalId", Description: "Terminal ID", value: func(c *ServicesConfig) string { return c.TerminalID }},
	}

	transitFields = []ConfigField{
		{Key: "merchantId", Required: true, Description: "Transit merchant ID", value: func(c *ServicesConfig) string { return c.MerchantID }},
		{Key: "deviceId", Required: true, Description: "Transit device ID", value: func(c *ServicesConfig) string { return c.DeviceID }},
		{Key: "developerId", Description: "Developer ID", value: func(c *ServicesConfig) string { return c.DeveloperID }},
	}

	transitKeyFields = []ConfigField{
		{Key: "transactionKey", Required: true, Description: "Transaction key, or username and password to generate one", value: func(c *ServicesConfig) string { return c.TransactionKey }},
	}

	transitLoginFields = []ConfigField{
		{Key: "username", Required: true, Description: "Username used to generate a transaction key", value: func(c *ServicesConfig) string { return c.Username }},
		{Key: "password", Required: true, Description: "Password used to generate a transaction key", value: func(c *ServicesConfig) string { return c.Password }},
	}

	porticoKeyFields = []ConfigField{
		{Key: "secretApiKey", Required: true, Description: "Secret API key, e.g. skapi_cert_...", Example: "skapi_cert_MTyMAQBiHVEA", value: func(c *ServicesConfig) string { return c.SecretAPIKey }},
	}

	porticoLegacyFields = []ConfigField{
		{Key: "siteId", Required: true, Description: "Site ID", value: func(c *ServicesConfig) string { return c.SiteID }},
		{Key: "licenseId", Required: true, Description: "License ID", value: func(c *ServicesConfig) string { return c.LicenseID }},
		{Key: "deviceId", Required: true, Description: "Device ID", value: func(c *ServicesConfig) string { return c.DeviceID }},
		{Key: "username", Required: true, Description: "Username", value: func(c *ServicesConfig) string { return c.Username }},
		{Key: "password", Required: true, Description: "Password", value: func(c *ServicesConfig) string { return c.Password }},
	}
)

// RequiredConfig returns the configuration fields a provider understands.
// Unknown providers get the portico field set.
func RequiredConfig(provider GatewayProvider) []ConfigField {
	switch provider {
	case ProviderEcom:
		return append(append([]ConfigField{}, ecomFields...), ecomSecure3dV2Fields...)
	case ProviderMerchantware:
		return append([]ConfigField{}, merchantwareFields...)
	case ProviderTransit:
		return lo.Flatten([][]ConfigField{transitFields, transitKeyFields, transitLoginFields})
	default:
		return append(append([]ConfigField{}, porticoKeyFields...), porticoLegacyFields...)
	}
}

// ValidateConfigFields checks that every required field in fields is present
// and returns the first one that is not.
func ValidateConfigFields(provider GatewayProvider, config *ServicesConfig, fields []ConfigField) error {
	for _, field := range fields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(field.value(config)) == "" {
			return errs.MissingField(string(provider), field.Key)
		}
	}
	return nil
}

// anySet reports whether any of fields carries a value
func anySet(config *ServicesConfig, fields []ConfigField) bool {
	return lo.SomeBy(fields, func(f ConfigField) bool {
		return strings.TrimSpace(f.value(config)) != ""
	})
}

// Validate checks the configuration for the chosen provider and returns an
// immutable snapshot the gateway factory can consume.
func (c *ServicesConfig) Validate() (*Validated, error) {
	if c == nil {
		return nil, &errs.ConfigurationError{Message: "configuration is nil"}
	}

	if err := App().Validator.Struct(c); err != nil {
		return nil, shapeError(err)
	}

	switch c.GatewayProvider {
	case ProviderEcom:
		if err := c.validateEcom(); err != nil {
			return nil, err
		}
	case ProviderMerchantware:
		if err := ValidateConfigFields(ProviderMerchantware, c, merchantwareFields); err != nil {
			return nil, err
		}
	case ProviderTransit:
		if err := c.validateTransit(); err != nil {
			return nil, err
		}
	default:
		if err := c.validatePortico(); err != nil {
			return nil, err
		}
	}

	return newValidated(c), nil
}

func (c *ServicesConfig) validateEcom() error {
	if err := ValidateConfigFields(ProviderEcom, c, ecomFields); err != nil {
		return err
	}
	if c.Secure3dVersion.Includes(Secure3dTwo) {
		return ValidateConfigFields(ProviderEcom, c, ecomSecure3dV2Fields)
	}
	return nil
}

func (c *ServicesConfig) validateTransit() error {
	if err := ValidateConfigFields(ProviderTransit, c, transitFields); err != nil {
		return err
	}
	if c.TransactionKey != "" {
		return nil
	}
	if !anySet(c, transitLoginFields) {
		return ValidateConfigFields(ProviderTransit, c, transitKeyFields)
	}
	return ValidateConfigFields(ProviderTransit, c, transitLoginFields)
}

func (c *ServicesConfig) validatePortico() error {
	hasLegacy := anySet(c, porticoLegacyFields)

	if c.SecretAPIKey != "" {
		if hasLegacy {
			return errs.InvalidField("secretApiKey", "cannot be combined with site, license, device, username and password credentials")
		}
		if _, ok := apiKeyEnvironment(c.SecretAPIKey); !ok {
			return errs.InvalidField("secretApiKey", "must have the form <prefix>_<env>_<key>")
		}
		return nil
	}

	if !hasLegacy {
		return ValidateConfigFields(ProviderPortico, c, porticoKeyFields)
	}
	return ValidateConfigFields(ProviderPortico, c, porticoLegacyFields)
}

// shapeError converts the first validator failure into a ConfigurationError
func shapeError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		reason := "failed the '" + fe.Tag() + "' rule"
		if fe.Param() != "" {
			reason += " (" + fe.Param() + ")"
		}
		return errs.InvalidField(fe.Field(), reason)
	}
	return errors.Wrap(err, "validate services config")
}

// Validated is an immutable, validated configuration snapshot. It can only be
// obtained from ServicesConfig.Validate.
type Validated struct {
	cfg             ServicesConfig
	apiKeyEnv       string
	payPlanEndpoint string
}

func newValidated(c *ServicesConfig) *Validated {
	v := &Validated{cfg: c.Clone()}
	v.apiKeyEnv, _ = apiKeyEnvironment(c.SecretAPIKey)
	v.payPlanEndpoint = derivePayPlanEndpoint(v.cfg, v.apiKeyEnv)
	return v
}

// Config returns a copy of the validated configuration
func (v *Validated) Config() ServicesConfig {
	return v.cfg.Clone()
}

// GatewayProvider returns the provider identity exactly as configured
func (v *Validated) GatewayProvider() GatewayProvider {
	return v.cfg.GatewayProvider
}

// Environment returns the configured environment, test when unset
func (v *Validated) Environment() Environment {
	return v.cfg.EnvironmentOrDefault()
}

// APIKeyEnvironment returns the environment marker embedded in the secret
// API key, or "" when no key is configured.
func (v *Validated) APIKeyEnvironment() string {
	return v.apiKeyEnv
}

// PayPlanEndpoint returns the recurring-billing path suffix for portico
func (v *Validated) PayPlanEndpoint() string {
	return v.payPlanEndpoint
}

func derivePayPlanEndpoint(c ServicesConfig, apiKeyEnv string) string {
	var cert bool
	switch {
	case apiKeyEnv != "":
		cert = apiKeyEnv != "prod"
	case c.ServiceURL != "":
		cert = strings.Contains(c.ServiceURL, "test") || strings.Contains(c.ServiceURL, "cert")
	default:
		cert = c.EnvironmentOrDefault() != EnvironmentProduction
	}
	return lo.Ternary(cert, PayPlanCertPath, PayPlanProductionPath)
}
