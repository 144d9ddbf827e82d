package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/opensearch"
	"github.com/mstgnz/unipay/infra/response"
)

// ConfigureEventReader reads the configure audit trail
type ConfigureEventReader interface {
	RecentConfigureEvents(ctx context.Context, size int) ([]opensearch.ConfigureEvent, error)
}

// LogsHandler serves the configure audit trail
type LogsHandler struct {
	events ConfigureEventReader
}

// NewLogsHandler creates a new logs handler. events may be nil when audit
// logging is disabled.
func NewLogsHandler(events ConfigureEventReader) *LogsHandler {
	return &LogsHandler{
		events: events,
	}
}

// ConfigureEvents lists recent configure attempts, newest first.
// Query parameters: limit (1..500, default 50), provider, failed=true.
func (h *LogsHandler) ConfigureEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		response.Error(w, http.StatusServiceUnavailable, "Logging service not available", nil)
		return
	}

	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	events, err := h.events.RecentConfigureEvents(ctx, limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve configure events", err)
		return
	}

	providerFilter := r.URL.Query().Get("provider")
	failedOnly := r.URL.Query().Get("failed") == "true"
	events = lo.Filter(events, func(e opensearch.ConfigureEvent, _ int) bool {
		if providerFilter != "" && e.Provider != providerFilter {
			return false
		}
		return !failedOnly || !e.Success
	})

	response.Success(w, http.StatusOK, "Configure events retrieved", map[string]any{
		"count":  len(events),
		"events": events,
	})
}
