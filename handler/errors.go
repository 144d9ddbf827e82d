package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/response"
)

// statusFor maps an error returned by the container, the transaction
// service or profile storage to an HTTP status code
func statusFor(err error) int {
	switch {
	case errs.IsNotConfigured(err):
		return http.StatusConflict
	case errors.Is(err, config.ErrProfileNotFound):
		return http.StatusNotFound
	case errs.IsInvalidRequest(err), errs.IsConfiguration(err):
		return http.StatusBadRequest
	case errs.IsUnsupportedCapability(err):
		return http.StatusUnprocessableEntity
	case errs.IsGateway(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status statusFor picks and any hints
// attached to it
func writeError(w http.ResponseWriter, message string, err error) {
	response.Error(w, statusFor(err), message, err, errs.Hints(err)...)
}
