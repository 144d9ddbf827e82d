package config

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for services config environment variables,
// e.g. UNIPAY_SECRETAPIKEY or UNIPAY_TRANSPORT_RETRYMAX.
const EnvPrefix = "UNIPAY"

// SecretRefPrefix marks a config value that must be fetched from Secret Manager
const SecretRefPrefix = "gcpsm://"

// SecretResolver resolves a secret reference (without the scheme prefix) to
// its value.
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// configKeys lists every services config key viper should bind to the
// environment. Nested keys use dots.
var configKeys = []string{
	"gatewayProvider", "environment",
	"merchantId", "accountId", "sharedSecret", "channel", "rebatePassword", "refundPassword",
	"hostedPaymentConfig.version", "hostedPaymentConfig.language", "hostedPaymentConfig.responseValue",
	"hostedPaymentConfig.paymentButtonText", "hostedPaymentConfig.cardStorageEnabled",
	"hostedPaymentConfig.dynamicCurrencyConversionEnabled", "hostedPaymentConfig.displaySavedCards",
	"hostedPaymentConfig.fraudFilterMode",
	"merchantName", "merchantSiteId", "merchantKey", "registerNumber", "terminalId",
	"transactionKey", "manifest",
	"acceptorConfig.cardDataInputCapability", "acceptorConfig.operatingEnvironment",
	"acceptorConfig.cardHolderAuthenticationCapability", "acceptorConfig.terminalOutputCapability",
	"siteId", "licenseId", "deviceId", "username", "password", "secretApiKey", "developerId", "versionNumber",
	"serviceUrl",
	"secure3dVersion", "methodNotificationUrl", "challengeNotificationUrl", "merchantContactUrl",
	"timeout",
	"transport.insecureSkipVerify", "transport.proxyUrl", "transport.retryMax",
}

// LoadServicesConfig reads a ServicesConfig from path (YAML, JSON or TOML,
// optional) overlaid with UNIPAY_* environment variables. Values starting
// with gcpsm:// are resolved through resolver; a nil resolver leaves them
// untouched.
func LoadServicesConfig(ctx context.Context, path string, resolver SecretResolver) (*ServicesConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read services config %s", path)
		}
	}

	var cfg ServicesConfig
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, errors.Wrap(err, "decode services config")
	}

	if resolver != nil {
		if err := ResolveSecrets(ctx, &cfg, resolver); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// ResolveSecrets replaces every credential value that holds a secret
// reference with the resolved secret.
func ResolveSecrets(ctx context.Context, cfg *ServicesConfig, resolver SecretResolver) error {
	fields := map[string]*string{
		"sharedSecret":   &cfg.SharedSecret,
		"rebatePassword": &cfg.RebatePassword,
		"refundPassword": &cfg.RefundPassword,
		"merchantKey":    &cfg.MerchantKey,
		"transactionKey": &cfg.TransactionKey,
		"password":       &cfg.Password,
		"secretApiKey":   &cfg.SecretAPIKey,
	}

	for key, field := range fields {
		ref, ok := strings.CutPrefix(*field, SecretRefPrefix)
		if !ok {
			continue
		}
		value, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return errors.Wrapf(err, "resolve secret for %s", key)
		}
		*field = value
	}

	return nil
}
