package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/response"
	"github.com/mstgnz/unipay/provider"
)

// TransactionExecutor runs requests against the active services tuple
type TransactionExecutor interface {
	Execute(ctx context.Context, req *provider.TransactionRequest) (*provider.TransactionResult, error)
	ExecuteRecurring(ctx context.Context, req *provider.RecurringRequest) (*provider.RecurringResult, error)
	ExecuteSecure3D(ctx context.Context, version config.Secure3dVersion, req *provider.Secure3DRequest) (*provider.Secure3DResult, error)
}

// TransactionHandler handles transaction related HTTP requests
type TransactionHandler struct {
	service TransactionExecutor
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(service TransactionExecutor) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// ProcessTransaction runs a payment transaction through the active gateway.
// Declined transactions are a normal outcome and return 200.
func (h *TransactionHandler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	var req provider.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result, err := h.service.Execute(ctx, &req)
	if err != nil {
		writeError(w, "Transaction failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Transaction processed", result)
}

// ProcessRecurring runs a recurring billing request
func (h *TransactionHandler) ProcessRecurring(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	var req provider.RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result, err := h.service.ExecuteRecurring(ctx, &req)
	if err != nil {
		writeError(w, "Recurring request failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Recurring request processed", result)
}

// ProcessSecure3D runs a 3-D Secure step against the provider resolved for
// the {version} path parameter
func (h *TransactionHandler) ProcessSecure3D(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	var req provider.Secure3DRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	version := config.Secure3dVersion(chi.URLParam(r, "version"))
	result, err := h.service.ExecuteSecure3D(ctx, version, &req)
	if err != nil {
		writeError(w, "Secure 3D request failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Secure 3D step processed", result)
}
