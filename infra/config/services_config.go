package config

import (
	"maps"
	"strings"
)

// GatewayProvider identifies the backend a configuration targets
type GatewayProvider string

const (
	ProviderEcom         GatewayProvider = "ecom-gateway"
	ProviderMerchantware GatewayProvider = "legacy-merchantware"
	ProviderTransit      GatewayProvider = "transit-gateway"
	ProviderPortico      GatewayProvider = "portico-default"
)

// KnownProviders lists every provider identity in declaration order
var KnownProviders = []GatewayProvider{ProviderEcom, ProviderMerchantware, ProviderTransit, ProviderPortico}

// IsKnown reports whether p names one of the supported backends. Unknown
// identities, including the empty one, are routed to ProviderPortico.
func (p GatewayProvider) IsKnown() bool {
	switch p {
	case ProviderEcom, ProviderMerchantware, ProviderTransit, ProviderPortico:
		return true
	}
	return false
}

// Environment selects between the fixed test and production endpoints
type Environment string

const (
	EnvironmentTest       Environment = "test"
	EnvironmentProduction Environment = "production"
)

// Secure3dVersion is both the 3-D Secure policy on a configuration and the
// key used to resolve a provider.
type Secure3dVersion string

const (
	Secure3dUnset Secure3dVersion = ""
	Secure3dOne   Secure3dVersion = "one"
	Secure3dTwo   Secure3dVersion = "two"
	Secure3dAny   Secure3dVersion = "any"
	Secure3dNone  Secure3dVersion = "none"
)

// Includes reports whether the policy asks for the concrete version v.
func (p Secure3dVersion) Includes(v Secure3dVersion) bool {
	if p == Secure3dUnset {
		p = Secure3dOne
	}
	return p == v || (p == Secure3dAny && (v == Secure3dOne || v == Secure3dTwo))
}

// HostedPaymentConfig carries hosted payment page options for the ecom gateway
type HostedPaymentConfig struct {
	Version                          string `json:"version,omitempty" mapstructure:"version"`
	Language                         string `json:"language,omitempty" mapstructure:"language"`
	ResponseValue                    string `json:"responseValue,omitempty" mapstructure:"responseValue"`
	PaymentButtonText                string `json:"paymentButtonText,omitempty" mapstructure:"paymentButtonText"`
	CardStorageEnabled               bool   `json:"cardStorageEnabled,omitempty" mapstructure:"cardStorageEnabled"`
	DynamicCurrencyConversionEnabled bool   `json:"dynamicCurrencyConversionEnabled,omitempty" mapstructure:"dynamicCurrencyConversionEnabled"`
	DisplaySavedCards                bool   `json:"displaySavedCards,omitempty" mapstructure:"displaySavedCards"`
	FraudFilterMode                  string `json:"fraudFilterMode,omitempty" mapstructure:"fraudFilterMode" validate:"omitempty,oneof=NONE ACTIVE PASSIVE OFF"`
}

// AcceptorConfig describes terminal capabilities reported to the transit gateway
type AcceptorConfig struct {
	CardDataInputCapability            string `json:"cardDataInputCapability,omitempty" mapstructure:"cardDataInputCapability"`
	OperatingEnvironment               string `json:"operatingEnvironment,omitempty" mapstructure:"operatingEnvironment"`
	CardHolderAuthenticationCapability string `json:"cardHolderAuthenticationCapability,omitempty" mapstructure:"cardHolderAuthenticationCapability"`
	TerminalOutputCapability           string `json:"terminalOutputCapability,omitempty" mapstructure:"terminalOutputCapability"`
}

// TransportOptions is passed through to the connector HTTP transport
type TransportOptions struct {
	InsecureSkipVerify bool              `json:"insecureSkipVerify,omitempty" mapstructure:"insecureSkipVerify"`
	ProxyURL           string            `json:"proxyUrl,omitempty" mapstructure:"proxyUrl" validate:"omitempty,url"`
	Headers            map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	RetryMax           int               `json:"retryMax,omitempty" mapstructure:"retryMax" validate:"gte=0"`
}

// ServicesConfig describes which provider to use, in which environment, with
// which credentials. It must pass Validate before it can build gateways.
type ServicesConfig struct {
	GatewayProvider GatewayProvider `json:"gatewayProvider,omitempty" mapstructure:"gatewayProvider"`
	Environment     Environment     `json:"environment,omitempty" mapstructure:"environment" validate:"omitempty,oneof=test production"`

	// ecom gateway
	MerchantID          string              `json:"merchantId,omitempty" mapstructure:"merchantId"`
	AccountID           string              `json:"accountId,omitempty" mapstructure:"accountId"`
	SharedSecret        string              `json:"sharedSecret,omitempty" mapstructure:"sharedSecret"`
	Channel             string              `json:"channel,omitempty" mapstructure:"channel"`
	RebatePassword      string              `json:"rebatePassword,omitempty" mapstructure:"rebatePassword"`
	RefundPassword      string              `json:"refundPassword,omitempty" mapstructure:"refundPassword"`
	HostedPaymentConfig HostedPaymentConfig `json:"hostedPaymentConfig,omitempty" mapstructure:"hostedPaymentConfig"`

	// legacy merchantware
	MerchantName   string `json:"merchantName,omitempty" mapstructure:"merchantName"`
	MerchantSiteID string `json:"merchantSiteId,omitempty" mapstructure:"merchantSiteId"`
	MerchantKey    string `json:"merchantKey,omitempty" mapstructure:"merchantKey"`
	RegisterNumber string `json:"registerNumber,omitempty" mapstructure:"registerNumber"`
	TerminalID     string `json:"terminalId,omitempty" mapstructure:"terminalId"`

	// transit gateway (MerchantID and DeviceID are shared with other providers)
	TransactionKey string         `json:"transactionKey,omitempty" mapstructure:"transactionKey"`
	Manifest       string         `json:"manifest,omitempty" mapstructure:"manifest"`
	AcceptorConfig AcceptorConfig `json:"acceptorConfig,omitempty" mapstructure:"acceptorConfig"`

	// portico
	SiteID        string `json:"siteId,omitempty" mapstructure:"siteId"`
	LicenseID     string `json:"licenseId,omitempty" mapstructure:"licenseId"`
	DeviceID      string `json:"deviceId,omitempty" mapstructure:"deviceId"`
	Username      string `json:"username,omitempty" mapstructure:"username"`
	Password      string `json:"password,omitempty" mapstructure:"password"`
	SecretAPIKey  string `json:"secretApiKey,omitempty" mapstructure:"secretApiKey"`
	DeveloperID   string `json:"developerId,omitempty" mapstructure:"developerId"`
	VersionNumber string `json:"versionNumber,omitempty" mapstructure:"versionNumber"`

	ServiceURL string `json:"serviceUrl,omitempty" mapstructure:"serviceUrl" validate:"omitempty,url"`

	// 3-D Secure
	Secure3dVersion          Secure3dVersion `json:"secure3dVersion,omitempty" mapstructure:"secure3dVersion" validate:"omitempty,oneof=one two any none"`
	MethodNotificationURL    string          `json:"methodNotificationUrl,omitempty" mapstructure:"methodNotificationUrl" validate:"omitempty,url"`
	ChallengeNotificationURL string          `json:"challengeNotificationUrl,omitempty" mapstructure:"challengeNotificationUrl" validate:"omitempty,url"`
	MerchantContactURL       string          `json:"merchantContactUrl,omitempty" mapstructure:"merchantContactUrl" validate:"omitempty,url"`

	Timeout   Duration         `json:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	Transport TransportOptions `json:"transport,omitempty" mapstructure:"transport"`
}

// Clone returns a copy that shares no mutable state with c
func (c ServicesConfig) Clone() ServicesConfig {
	c.Transport.Headers = maps.Clone(c.Transport.Headers)
	return c
}

// EnvironmentOrDefault returns the configured environment, test when unset
func (c ServicesConfig) EnvironmentOrDefault() Environment {
	if c.Environment == "" {
		return EnvironmentTest
	}
	return c.Environment
}

// apiKeyEnvironment extracts the environment marker from a secret API key of
// the form <prefix>_<env>_<key>, e.g. "cert" from "skapi_cert_abc".
func apiKeyEnvironment(key string) (string, bool) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}
