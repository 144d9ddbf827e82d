package provider

import (
	"context"
	"time"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/middle"
)

// TransactionService runs requests against whatever the container has
// configured at call time.
type TransactionService struct {
	container *Container
}

// NewTransactionService creates a new transaction service
func NewTransactionService(container *Container) *TransactionService {
	return &TransactionService{
		container: container,
	}
}

// Execute runs a payment transaction through the active gateway
func (s *TransactionService) Execute(ctx context.Context, req *TransactionRequest) (*TransactionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	services := s.container.Current()
	if !services.Configured() {
		return nil, errs.NotConfigured()
	}
	gateway := services.Gateway
	if !gateway.Supports(req.Type) {
		return nil, errs.Unsupported(string(services.Provider), string(req.Type))
	}

	startTime := time.Now()
	result, err := gateway.ProcessTransaction(ctx, req)
	s.logOutcome(ctx, services, "transaction", string(req.Type), startTime, err)

	return result, err
}

// ExecuteRecurring runs a recurring billing request through the active
// recurring service
func (s *TransactionService) ExecuteRecurring(ctx context.Context, req *RecurringRequest) (*RecurringResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	services := s.container.Current()
	if !services.Configured() {
		return nil, errs.NotConfigured()
	}
	if services.Recurring == nil {
		return nil, errs.Unsupported(string(services.Provider), CapabilityRecurring)
	}

	startTime := time.Now()
	result, err := services.Recurring.ProcessRecurring(ctx, req)
	s.logOutcome(ctx, services, "recurring", string(req.Action)+" "+string(req.Resource), startTime, err)

	return result, err
}

// ExecuteSecure3D runs a 3-D Secure step through the provider resolved for
// version
func (s *TransactionService) ExecuteSecure3D(ctx context.Context, version config.Secure3dVersion, req *Secure3DRequest) (*Secure3DResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	services := s.container.Current()
	if !services.Configured() {
		return nil, errs.Secure3DNotConfiguredYet(string(version))
	}
	p, err := services.Secure3D.Resolve(version)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	result, err := p.ProcessSecure3D(ctx, req)
	s.logOutcome(ctx, services, "secure3d", string(p.Version())+" "+string(req.Step), startTime, err)

	return result, err
}

func (s *TransactionService) logOutcome(ctx context.Context, services *Services, kind, operation string, startTime time.Time, err error) {
	logCtx := logger.LogContext{
		ServicesID: services.ID,
		Provider:   string(services.Provider),
		RequestID:  middle.GetRequestID(ctx),
		Fields: map[string]any{
			"kind":          kind,
			"operation":     operation,
			"processing_ms": time.Since(startTime).Milliseconds(),
		},
	}

	if err != nil {
		logger.Error("Gateway call failed", err, logCtx)
		return
	}
	logger.Info("Gateway call completed", logCtx)
}
