package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/response"
	"github.com/mstgnz/unipay/provider"
)

// Pinger is a dependency whose reachability is part of the health report
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	container *provider.Container
	profiles  Pinger
	audit     bool
	startTime time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Gateway     *GatewayHealth            `json:"gateway"`
	System      *SystemHealth             `json:"system"`
	Services    map[string]*ServiceHealth `json:"services"`
}

// GatewayHealth reports whether a services tuple is active
type GatewayHealth struct {
	Configured   bool                   `json:"configured"`
	Provider     config.GatewayProvider `json:"provider,omitempty"`
	Environment  config.Environment     `json:"environment,omitempty"`
	ConfiguredAt *time.Time             `json:"configured_at,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	GoRoutines int           `json:"goroutines"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc      string `json:"alloc"`
	TotalAlloc string `json:"total_alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status      string `json:"status"`
	Healthy     bool   `json:"healthy"`
	LastCheck   string `json:"last_check"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewHealthHandler creates a new health handler. profiles may be nil when
// profile storage is disabled; audit reports whether OpenSearch auditing is on.
func NewHealthHandler(container *provider.Container, profiles Pinger, audit bool) *HealthHandler {
	return &HealthHandler{
		container: container,
		profiles:  profiles,
		audit:     audit,
		startTime: time.Now(),
	}
}

// CheckHealth reports process health and whether a configuration is active.
// An unconfigured container is healthy; a broken profile store is not.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: config.GetAppConfig().Environment,
		Gateway:     h.checkGateway(),
		System:      checkSystemHealth(),
		Services:    h.checkServicesHealth(ctx),
	}

	health.Status = "healthy"
	for _, service := range health.Services {
		if !service.Healthy && service.Status != "not_configured" {
			health.Status = "unhealthy"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != "unhealthy",
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkGateway() *GatewayHealth {
	if h.container == nil {
		return &GatewayHealth{}
	}
	services := h.container.Current()
	if !services.Configured() {
		return &GatewayHealth{}
	}
	configuredAt := services.ConfiguredAt
	return &GatewayHealth{
		Configured:   true,
		Provider:     services.Provider,
		Environment:  services.Environment,
		ConfiguredAt: &configuredAt,
	}
}

func (h *HealthHandler) checkServicesHealth(ctx context.Context) map[string]*ServiceHealth {
	now := time.Now().UTC().Format(time.RFC3339)
	services := make(map[string]*ServiceHealth)

	profiles := &ServiceHealth{LastCheck: now, Description: "Configuration profile storage"}
	switch {
	case h.profiles == nil:
		profiles.Status = "not_configured"
	case h.profiles.Ping(ctx) != nil:
		profiles.Status = "unhealthy"
		profiles.Error = "profile database is unreachable"
	default:
		profiles.Status = "healthy"
		profiles.Healthy = true
	}
	services["profile_storage"] = profiles

	audit := &ServiceHealth{LastCheck: now, Description: "Configure audit logging to OpenSearch"}
	if h.audit {
		audit.Status = "healthy"
		audit.Healthy = true
	} else {
		audit.Status = "not_configured"
	}
	services["audit_log"] = audit

	return services
}

func checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:      formatBytes(memStats.Alloc),
			TotalAlloc: formatBytes(memStats.TotalAlloc),
			Sys:        formatBytes(memStats.Sys),
			GCRuns:     memStats.NumGC,
		},
		GoRoutines: runtime.NumGoroutine(),
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
