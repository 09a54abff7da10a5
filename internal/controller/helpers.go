package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const maxBodySize = 64 << 10

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{domainErrors.ErrEnvironmentViolation, http.StatusForbidden, "not_allowed"},
	{domainErrors.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrPaymentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrProviderNotConfigured, http.StatusServiceUnavailable, "provider_not_configured"},
	{domainErrors.ErrUnknownProvider, http.StatusServiceUnavailable, "unknown_provider"},
	{domainErrors.ErrMethodNotSupported, http.StatusServiceUnavailable, "method_not_supported"},
	{domainErrors.ErrNoWorkingProvider, http.StatusServiceUnavailable, "no_working_provider"},
	{domainErrors.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable"},
	{domainErrors.ErrProviderTimeout, http.StatusGatewayTimeout, "provider_timeout"},
	{domainErrors.ErrUpstream, http.StatusBadGateway, "upstream_error"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: string(domainErrors.Classify(err))}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	// A gateway 404 on a method-hinted lookup is a missing payment, not a gateway failure.
	var upstream *domainErrors.UpstreamError
	if errors.As(err, &upstream) && upstream.NotFound() {
		resp.Code = "not_found"
		resp.Kind = string(domainErrors.KindNotFound)
		writeJSON(w, http.StatusNotFound, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.err == domainErrors.ErrEnvironmentViolation {
				resp.Error = "operation not allowed"
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
