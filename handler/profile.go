package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/infra/middle"
	"github.com/mstgnz/unipay/infra/response"
	"github.com/mstgnz/unipay/provider"
)

// ProfileStore persists named services configurations
type ProfileStore interface {
	SaveProfile(name string, cfg config.ServicesConfig) error
	LoadProfile(name string) (*config.Profile, error)
	ListProfiles() ([]config.Profile, error)
	DeleteProfile(name string) error
	MarkApplied(name string, at time.Time) error
}

// ProfileHandler manages stored configuration profiles
type ProfileHandler struct {
	container *provider.Container
	profiles  ProfileStore
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(container *provider.Container, profiles ProfileStore) *ProfileHandler {
	return &ProfileHandler{
		container: container,
		profiles:  profiles,
	}
}

// ListProfiles returns every stored profile with secrets masked
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.ListProfiles()
	if err != nil {
		writeError(w, "Failed to list profiles", err)
		return
	}

	response.Success(w, http.StatusOK, "Profiles retrieved", lo.Map(profiles, func(p config.Profile, _ int) config.Profile {
		return maskProfile(p)
	}))
}

// GetProfile returns one stored profile with secrets masked
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.LoadProfile(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "Failed to load profile", err)
		return
	}

	response.Success(w, http.StatusOK, "Profile retrieved", maskProfile(*profile))
}

// SaveProfile stores a configuration under {name} without applying it. The
// configuration must validate.
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))

	var cfg config.ServicesConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if _, err := cfg.Validate(); err != nil {
		writeError(w, "Configuration rejected", err)
		return
	}

	if err := h.profiles.SaveProfile(name, cfg); err != nil {
		writeError(w, "Failed to save profile", err)
		return
	}

	response.Success(w, http.StatusCreated, "Profile saved", map[string]string{"name": name})
}

// ApplyProfile installs a stored profile as the active services tuple
func (h *ProfileHandler) ApplyProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	profile, err := h.profiles.LoadProfile(name)
	if err != nil {
		writeError(w, "Failed to load profile", err)
		return
	}

	services, err := h.container.Apply(&profile.Config, name)
	if err != nil {
		writeError(w, "Configuration rejected", err)
		return
	}

	if err := h.profiles.MarkApplied(name, services.ConfiguredAt); err != nil {
		logger.Warn("Failed to mark profile applied", logger.LogContext{
			RequestID:  middle.GetRequestID(r.Context()),
			ServicesID: services.ID,
			Fields:     map[string]any{"profile": name, "error": err.Error()},
		})
	}

	response.Success(w, http.StatusOK, "Profile applied", newGatewayView(services))
}

// DeleteProfile removes a stored profile. The active tuple is not affected.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.profiles.DeleteProfile(name); err != nil {
		writeError(w, "Failed to delete profile", err)
		return
	}

	response.Success(w, http.StatusOK, "Profile deleted", nil)
}

func maskProfile(p config.Profile) config.Profile {
	p.Config = maskSecrets(p.Config)
	return p
}

// maskSecrets hides credential values, keeping the last four characters of
// long ones so operators can tell keys apart
func maskSecrets(cfg config.ServicesConfig) config.ServicesConfig {
	cfg = cfg.Clone()
	for _, field := range []*string{
		&cfg.SharedSecret,
		&cfg.RebatePassword,
		&cfg.RefundPassword,
		&cfg.MerchantKey,
		&cfg.TransactionKey,
		&cfg.Password,
		&cfg.SecretAPIKey,
	} {
		*field = mask(*field)
	}
	return cfg
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	}
	return "****" + s[len(s)-4:]
}
