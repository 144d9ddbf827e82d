package provider

import (
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
)

// anyPreference is the order in which "any" resolves to a concrete version
var anyPreference = []config.Secure3dVersion{config.Secure3dTwo, config.Secure3dOne}

// Secure3DRegistry maps concrete 3-D Secure versions to providers. It is
// filled by a builder before the owning Services is published and is
// read-only afterwards.
type Secure3DRegistry struct {
	providers map[config.Secure3dVersion]Secure3DProvider
}

// NewSecure3DRegistry creates an empty registry
func NewSecure3DRegistry() *Secure3DRegistry {
	return &Secure3DRegistry{
		providers: make(map[config.Secure3dVersion]Secure3DProvider),
	}
}

// Register stores p under its own version. Only one and two are valid keys
// and each may be registered once.
func (r *Secure3DRegistry) Register(p Secure3DProvider) error {
	if p == nil {
		return &errs.ConfigurationError{Message: "secure 3d provider is nil"}
	}

	version := p.Version()
	if !lo.Contains(anyPreference, version) {
		return &errs.ConfigurationError{Version: string(version), Message: "cannot register secure 3d provider for version '" + string(version) + "'"}
	}
	if _, exists := r.providers[version]; exists {
		return &errs.ConfigurationError{Version: string(version), Message: "secure 3d provider already registered for version " + string(version)}
	}

	r.providers[version] = p
	return nil
}

// Resolve returns the provider for version. An exact match wins; "any"
// walks the preference list two, one.
func (r *Secure3DRegistry) Resolve(version config.Secure3dVersion) (Secure3DProvider, error) {
	if r != nil {
		if p, ok := r.providers[version]; ok {
			return p, nil
		}
		if version == config.Secure3dAny {
			for _, v := range anyPreference {
				if p, ok := r.providers[v]; ok {
					return p, nil
				}
			}
		}
	}
	return nil, errs.Secure3DNotConfigured(string(version))
}

// Versions lists registered versions in preference order
func (r *Secure3DRegistry) Versions() []config.Secure3dVersion {
	if r == nil {
		return []config.Secure3dVersion{}
	}
	return lo.Filter(anyPreference, func(v config.Secure3dVersion, _ int) bool {
		_, ok := r.providers[v]
		return ok
	})
}

// Len returns the number of registered providers
func (r *Secure3DRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.providers)
}
