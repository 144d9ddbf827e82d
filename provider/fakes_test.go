package provider

import (
	"context"
	"sync/atomic"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/opensearch"
)

type fakeGateway struct {
	url       string
	supported map[TransactionType]bool
	result    *TransactionResult
	err       error
	calls     atomic.Int32
}

func (g *fakeGateway) ProcessTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResult, error) {
	g.calls.Add(1)
	return g.result, g.err
}

func (g *fakeGateway) Supports(t TransactionType) bool {
	if g.supported == nil {
		return true
	}
	return g.supported[t]
}

func (g *fakeGateway) ServiceURL() string { return g.url }

type fakeRecurring struct {
	url    string
	result *RecurringResult
	err    error
}

func (r *fakeRecurring) ProcessRecurring(ctx context.Context, req *RecurringRequest) (*RecurringResult, error) {
	return r.result, r.err
}

func (r *fakeRecurring) ServiceURL() string { return r.url }

type fakeSecure3D struct {
	version config.Secure3dVersion
	url     string
	result  *Secure3DResult
}

func (p *fakeSecure3D) ProcessSecure3D(ctx context.Context, req *Secure3DRequest) (*Secure3DResult, error) {
	return p.result, nil
}

func (p *fakeSecure3D) Version() config.Secure3dVersion { return p.version }

func (p *fakeSecure3D) ServiceURL() string { return p.url }

type fakeAuditor struct {
	events []opensearch.ConfigureEvent
}

func (a *fakeAuditor) LogConfigureEvent(ctx context.Context, event opensearch.ConfigureEvent) error {
	a.events = append(a.events, event)
	return nil
}

// urlBuilder returns a builder whose gateway reports the endpoint the
// validated configuration resolves to.
func urlBuilder(test, production string, recurring bool) Builder {
	return func(v *config.Validated) (*Services, error) {
		cfg := v.Config()
		url := config.ResolveEndpoint(cfg.ServiceURL, v.Environment(), test, production)
		s := &Services{Gateway: &fakeGateway{url: url}}
		if recurring {
			s.Recurring = &fakeRecurring{url: url + "/recurring"}
		}
		return s, nil
	}
}

func portico() *config.ServicesConfig {
	return &config.ServicesConfig{SecretAPIKey: "skapi_cert_MTyMAQBiHVEA"}
}

func merchantware() *config.ServicesConfig {
	return &config.ServicesConfig{
		GatewayProvider: config.ProviderMerchantware,
		MerchantName:    "Test Shop",
		MerchantSiteID:  "SITE1",
		MerchantKey:     "KEY1",
	}
}

func testFactory() *Factory {
	f := NewFactory()
	f.Register(config.ProviderPortico, urlBuilder(config.PorticoTest, config.PorticoProduction, true))
	f.Register(config.ProviderMerchantware, urlBuilder(config.MerchantwareTest, config.MerchantwareProduction, false))
	return f
}
