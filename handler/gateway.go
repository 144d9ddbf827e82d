package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/middle"
	"github.com/mstgnz/unipay/infra/response"
	"github.com/mstgnz/unipay/provider"
)

// transactionTypes is the order in which supported types are listed
var transactionTypes = []provider.TransactionType{
	provider.TransactionSale,
	provider.TransactionAuth,
	provider.TransactionCapture,
	provider.TransactionRefund,
	provider.TransactionReverse,
	provider.TransactionVoid,
	provider.TransactionVerify,
	provider.TransactionBalance,
}

// GatewayView describes the active services tuple without credentials
type GatewayView struct {
	ID               string                     `json:"id"`
	Provider         config.GatewayProvider     `json:"provider"`
	Environment      config.Environment         `json:"environment"`
	GatewayURL       string                     `json:"gatewayUrl"`
	RecurringURL     string                     `json:"recurringUrl,omitempty"`
	Secure3DVersions []config.Secure3dVersion   `json:"secure3dVersions"`
	Supports         []provider.TransactionType `json:"supports"`
	ConfiguredAt     time.Time                  `json:"configuredAt"`
}

func newGatewayView(s *provider.Services) *GatewayView {
	return &GatewayView{
		ID:               s.ID,
		Provider:         s.Provider,
		Environment:      s.Environment,
		GatewayURL:       s.GatewayURL(),
		RecurringURL:     s.RecurringURL(),
		Secure3DVersions: s.Secure3D.Versions(),
		Supports:         lo.Filter(transactionTypes, func(t provider.TransactionType, _ int) bool { return s.Gateway.Supports(t) }),
		ConfiguredAt:     s.ConfiguredAt,
	}
}

// ProviderInfo lists the configuration fields one provider understands
type ProviderInfo struct {
	Provider config.GatewayProvider `json:"provider"`
	Fallback bool                   `json:"fallback,omitempty"`
	Fields   []config.ConfigField   `json:"fields"`
}

// GatewayHandler configures the container and describes what it holds
type GatewayHandler struct {
	container *provider.Container
	profiles  ProfileStore
}

// NewGatewayHandler creates a new gateway handler. profiles may be nil, in
// which case ?profile= is rejected.
func NewGatewayHandler(container *provider.Container, profiles ProfileStore) *GatewayHandler {
	return &GatewayHandler{
		container: container,
		profiles:  profiles,
	}
}

// Configure validates the posted configuration and installs it as the active
// services tuple. With ?profile=name the configuration is also stored under
// that name and marked applied.
func (h *GatewayHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var cfg config.ServicesConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	profile := r.URL.Query().Get("profile")
	if profile != "" && h.profiles == nil {
		response.Error(w, http.StatusBadRequest, "Profile storage is not enabled", nil)
		return
	}

	services, err := h.container.Apply(&cfg, profile)
	if err != nil {
		writeError(w, "Configuration rejected", err)
		return
	}

	if profile != "" {
		if err := h.saveApplied(profile, cfg, services.ConfiguredAt); err != nil {
			logger.Error("Failed to save profile", err, logger.LogContext{
				RequestID: middle.GetRequestID(r.Context()),
				Provider:  string(services.Provider),
				Fields:    map[string]any{"profile": profile},
			})
			response.Error(w, http.StatusInternalServerError, "Services configured but the profile could not be saved", err)
			return
		}
	}

	response.Success(w, http.StatusOK, "Services configured", newGatewayView(services))
}

func (h *GatewayHandler) saveApplied(name string, cfg config.ServicesConfig, at time.Time) error {
	if err := h.profiles.SaveProfile(name, cfg); err != nil {
		return err
	}
	return h.profiles.MarkApplied(name, at)
}

// Describe returns the active services tuple
func (h *GatewayHandler) Describe(w http.ResponseWriter, r *http.Request) {
	services := h.container.Current()
	if !services.Configured() {
		writeError(w, "No active configuration", errs.NotConfigured())
		return
	}

	response.Success(w, http.StatusOK, "Active gateway", newGatewayView(services))
}

// Secure3D resolves the 3-D Secure provider for the {version} path parameter
func (h *GatewayHandler) Secure3D(w http.ResponseWriter, r *http.Request) {
	version := config.Secure3dVersion(chi.URLParam(r, "version"))

	p, err := h.container.GetSecure3DProvider(version)
	if err != nil {
		if errs.IsNotConfigured(err) {
			writeError(w, "No active configuration", err)
			return
		}
		response.Error(w, http.StatusNotFound, "Secure 3D provider not found", err, errs.Hints(err)...)
		return
	}

	response.Success(w, http.StatusOK, "Secure 3D provider resolved", map[string]any{
		"requested":  version,
		"version":    p.Version(),
		"serviceUrl": p.ServiceURL(),
	})
}

// Providers lists every provider identity with its configuration fields
func (h *GatewayHandler) Providers(w http.ResponseWriter, r *http.Request) {
	infos := lo.Map(config.KnownProviders, func(p config.GatewayProvider, _ int) ProviderInfo {
		return ProviderInfo{
			Provider: p,
			Fallback: p == config.ProviderPortico,
			Fields:   config.RequiredConfig(p),
		}
	})

	response.Success(w, http.StatusOK, "Supported providers", infos)
}
