package errs

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Typed errors below report true for errors.Is against
// the sentinel of their kind.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrUnsupportedCapability = errors.New("unsupported capability")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrGateway               = errors.New("gateway error")

	// ErrNotConfigured matches the errors returned by capability lookups
	// made before the first successful configure call.
	ErrNotConfigured = errors.New("services have not been configured")
)

const (
	ErrCodeConfiguration         = "configuration_error"
	ErrCodeUnsupportedCapability = "unsupported_capability"
)

// ConfigurationError is raised when a configuration fails validation or when a
// 3-D Secure version cannot be resolved. Field or Version names the culprit.
type ConfigurationError struct {
	Field   string
	Version string
	Message string

	unconfigured bool
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", ErrCodeConfiguration, e.Message)
	case e.Version != "":
		return fmt.Sprintf("%s: secure 3d is not configured for version %s", ErrCodeConfiguration, e.Version)
	case e.Field != "":
		return fmt.Sprintf("%s: required field '%s' is missing", ErrCodeConfiguration, e.Field)
	}
	return ErrCodeConfiguration
}

// Is implements error matching against ErrConfiguration, and against
// ErrNotConfigured for lookups made before the first configure call
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration || (e.unconfigured && target == ErrNotConfigured)
}

// UnsupportedCapabilityError is raised when a capability is requested from a
// provider that does not implement it.
type UnsupportedCapabilityError struct {
	Provider   string
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("%s: %s is not supported by %s", ErrCodeUnsupportedCapability, e.Capability, e.Provider)
}

// Is implements error matching against ErrUnsupportedCapability
func (e *UnsupportedCapabilityError) Is(target error) bool {
	return target == ErrUnsupportedCapability
}

// MissingField builds a ConfigurationError for a required field that is
// absent or empty.
func MissingField(provider, field string) error {
	err := &ConfigurationError{Field: field}
	return errors.WithHintf(err, "set %s for the %s gateway", field, provider)
}

// InvalidField builds a ConfigurationError for a field that is present but
// has the wrong shape.
func InvalidField(field, reason string) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf("field '%s' %s", field, reason)}
}

// Secure3DNotConfigured builds the resolution failure for a 3-D Secure version.
func Secure3DNotConfigured(version string) error {
	return &ConfigurationError{Version: version}
}

// NotConfigured builds the lookup failure returned before the first
// successful configure call.
func NotConfigured() error {
	return &ConfigurationError{Message: ErrNotConfigured.Error(), unconfigured: true}
}

// Secure3DNotConfiguredYet is NotConfigured for a 3-D Secure lookup. It
// names the requested version like every other 3-D Secure resolution
// failure.
func Secure3DNotConfiguredYet(version string) error {
	return &ConfigurationError{
		Version:      version,
		Message:      fmt.Sprintf("secure 3d is not configured for version %s: %s", version, ErrNotConfigured),
		unconfigured: true,
	}
}

// Unsupported builds an UnsupportedCapabilityError.
func Unsupported(provider, capability string) error {
	return &UnsupportedCapabilityError{Provider: provider, Capability: capability}
}

// InvalidRequest marks a caller-supplied request as malformed
func InvalidRequest(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidRequest)
}

// Gateway wraps a transport or backend failure from provider
func Gateway(err error, provider string) error {
	return errors.Mark(errors.Wrapf(err, "%s", provider), ErrGateway)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNotConfigured checks if an error came from a lookup made before the
// first configure call
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// IsUnsupportedCapability checks if an error is an unsupported capability error
func IsUnsupportedCapability(err error) bool {
	return errors.Is(err, ErrUnsupportedCapability)
}

// IsInvalidRequest checks if an error marks a malformed request
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsGateway checks if an error came from a backend gateway call
func IsGateway(err error) bool {
	return errors.Is(err, ErrGateway)
}

// AsConfiguration extracts the ConfigurationError from err's chain.
func AsConfiguration(err error) (*ConfigurationError, bool) {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}

// Hints returns the user-facing hints attached to err.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}
