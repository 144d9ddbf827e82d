package provider

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
)

// Services is one configured tuple of capabilities. A Services value is
// built whole and never mutated after it is published.
type Services struct {
	ID           string                 `json:"id"`
	Provider     config.GatewayProvider `json:"provider"`
	Environment  config.Environment     `json:"environment"`
	Gateway      PaymentGateway         `json:"-"`
	Recurring    RecurringService       `json:"-"`
	Secure3D     *Secure3DRegistry      `json:"-"`
	ConfiguredAt time.Time              `json:"configuredAt"`
}

// Configured reports whether the tuple came from a successful configure call
func (s *Services) Configured() bool {
	return s != nil && s.Gateway != nil
}

// GatewayURL returns the payment gateway endpoint, "" when unconfigured
func (s *Services) GatewayURL() string {
	if !s.Configured() {
		return ""
	}
	return s.Gateway.ServiceURL()
}

// RecurringURL returns the recurring service endpoint, "" when absent
func (s *Services) RecurringURL() string {
	if s == nil || s.Recurring == nil {
		return ""
	}
	return s.Recurring.ServiceURL()
}

// Builder turns a validated configuration into capability instances for one
// provider identity.
type Builder func(*config.Validated) (*Services, error)

// Factory maps provider identities to builders. Identities without a
// builder are routed to the fallback identity.
type Factory struct {
	builders map[config.GatewayProvider]Builder
	fallback config.GatewayProvider
	mu       sync.RWMutex
}

// NewFactory creates a factory whose fallback is portico-default
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[config.GatewayProvider]Builder),
		fallback: config.ProviderPortico,
	}
}

// Register adds a builder for a provider identity
func (f *Factory) Register(provider config.GatewayProvider, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[provider] = builder
}

// Providers returns the registered identities in sorted order
func (f *Factory) Providers() []config.GatewayProvider {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := lo.Keys(f.builders)
	slices.Sort(names)
	return names
}

// Resolve returns the identity and builder that handle provider
func (f *Factory) Resolve(provider config.GatewayProvider) (config.GatewayProvider, Builder, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if builder, ok := f.builders[provider]; ok {
		return provider, builder, nil
	}
	if builder, ok := f.builders[f.fallback]; ok {
		return f.fallback, builder, nil
	}
	return "", nil, &errs.ConfigurationError{Message: "no gateway builder registered for '" + string(provider) + "'"}
}

// Build creates the capability tuple for v. It assumes v came from
// ServicesConfig.Validate and does not validate again.
func (f *Factory) Build(v *config.Validated) (*Services, error) {
	if v == nil {
		return nil, &errs.ConfigurationError{Message: "configuration has not been validated"}
	}

	identity, builder, err := f.Resolve(v.GatewayProvider())
	if err != nil {
		return nil, err
	}

	services, err := builder(v)
	if err != nil {
		return nil, err
	}
	if services == nil || services.Gateway == nil {
		return nil, &errs.ConfigurationError{Message: "builder for '" + string(identity) + "' produced no payment gateway"}
	}

	services.ID = uuid.NewString()
	services.Provider = identity
	services.Environment = v.Environment()
	if services.Secure3D == nil {
		services.Secure3D = NewSecure3DRegistry()
	}

	return services, nil
}
