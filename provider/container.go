package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/opensearch"
)

// Auditor records configure attempts, e.g. the OpenSearch logger
type Auditor interface {
	LogConfigureEvent(ctx context.Context, event opensearch.ConfigureEvent) error
}

// Option customizes a Container
type Option func(*Container)

// WithLogger sets the logger used for configure events
func WithLogger(l *logger.SystemLogger) Option {
	return func(c *Container) {
		c.logger = l
	}
}

// WithAuditor records every configure attempt with a
func WithAuditor(a Auditor) Option {
	return func(c *Container) {
		c.auditor = a
	}
}

// WithClock overrides the time source used for ConfiguredAt
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.now = now
	}
}

// Container holds the single active Services tuple. Readers never block and
// never observe a partially built tuple.
type Container struct {
	factory *Factory
	current atomic.Pointer[Services]
	mu      sync.Mutex

	logger  *logger.SystemLogger
	auditor Auditor
	now     func() time.Time
}

// NewContainer creates an unconfigured container
func NewContainer(factory *Factory, opts ...Option) *Container {
	c := &Container{
		factory: factory,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Container) log() *logger.SystemLogger {
	if c.logger != nil {
		return c.logger
	}
	return logger.GetGlobalLogger()
}

// Configure validates cfg, builds its capabilities and installs them as the
// active tuple. On failure the previous tuple stays active.
func (c *Container) Configure(cfg *config.ServicesConfig) error {
	_, err := c.Apply(cfg, "")
	return err
}

// Apply is Configure for a named profile. It returns the installed tuple.
func (c *Container) Apply(cfg *config.ServicesConfig, profile string) (*Services, error) {
	c.mu.Lock()
	start := c.now()
	services, err := c.build(cfg)
	if err == nil {
		services.ConfiguredAt = start.UTC()
		c.current.Store(services)
	}
	c.mu.Unlock()

	c.record(cfg, profile, services, err, c.now().Sub(start))
	return services, err
}

func (c *Container) build(cfg *config.ServicesConfig) (*Services, error) {
	validated, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	return c.factory.Build(validated)
}

func (c *Container) record(cfg *config.ServicesConfig, profile string, services *Services, err error, took time.Duration) {
	event := opensearch.ConfigureEvent{
		Timestamp:  c.now().UTC(),
		Profile:    profile,
		Success:    err == nil,
		DurationMs: took.Milliseconds(),
	}
	if cfg != nil {
		event.Provider = string(cfg.GatewayProvider)
		event.Environment = string(cfg.EnvironmentOrDefault())
	}

	logCtx := logger.LogContext{
		Provider: event.Provider,
		Fields: map[string]any{
			"environment": event.Environment,
			"profile":     profile,
			"duration_ms": event.DurationMs,
		},
	}

	if err != nil {
		event.Error = err.Error()
		if hints := errs.Hints(err); len(hints) > 0 {
			logCtx.Fields["hints"] = hints
		}
		c.log().Error("Configure failed, keeping previous services", err, logCtx)
	} else {
		event.ServicesID = services.ID
		event.Provider = string(services.Provider)
		event.GatewayURL = services.GatewayURL()
		event.RecurringURL = services.RecurringURL()
		event.Secure3DVersions = lo.Map(services.Secure3D.Versions(), func(v config.Secure3dVersion, _ int) string {
			return string(v)
		})

		logCtx.ServicesID = services.ID
		logCtx.Provider = event.Provider
		logCtx.Fields["gateway_url"] = event.GatewayURL
		logCtx.Fields["secure3d_versions"] = event.Secure3DVersions
		c.log().Info("Services configured", logCtx)
	}

	if c.auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if auditErr := c.auditor.LogConfigureEvent(ctx, event); auditErr != nil {
		c.log().Warn("Failed to record configure event", logger.LogContext{
			Provider: event.Provider,
			Fields:   map[string]any{"error": auditErr.Error()},
		})
	}
}

// Current returns the active tuple, or an unconfigured placeholder before the
// first successful Configure.
func (c *Container) Current() *Services {
	if s := c.current.Load(); s != nil {
		return s
	}
	c.current.CompareAndSwap(nil, &Services{Secure3D: NewSecure3DRegistry()})
	return c.current.Load()
}

// GetPaymentGateway returns the active payment gateway
func (c *Container) GetPaymentGateway() (PaymentGateway, error) {
	s := c.Current()
	if !s.Configured() {
		return nil, errs.NotConfigured()
	}
	return s.Gateway, nil
}

// GetRecurringService returns the active recurring service
func (c *Container) GetRecurringService() (RecurringService, error) {
	s := c.Current()
	if !s.Configured() {
		return nil, errs.NotConfigured()
	}
	if s.Recurring == nil {
		return nil, errs.Unsupported(string(s.Provider), CapabilityRecurring)
	}
	return s.Recurring, nil
}

// GetSecure3DProvider resolves version against the active tuple
func (c *Container) GetSecure3DProvider(version config.Secure3dVersion) (Secure3DProvider, error) {
	s := c.Current()
	if !s.Configured() {
		return nil, errs.Secure3DNotConfiguredYet(string(version))
	}
	return s.Secure3D.Resolve(version)
}
