package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/validation"
	"github.com/bcnelson/waf-ipset-manager/internal/waf"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes an error in the StandardErrorResponse shape.
func respondStandardError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleError converts domain and remote errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	var errs validation.ValidationErrors
	var verr *validation.ValidationError
	var rej *waf.RejectionError

	switch {
	case errors.As(err, &errs):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, errs.Error(),
			map[string]any{"errors": []*validation.ValidationError(errs)})
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, &domain.StandardErrorResponse{
			Error: domain.StandardError{
				Code:    domain.ErrCodeValidationError,
				Message: verr.Message,
				Field:   verr.Field,
			},
		})
	case errors.Is(err, domain.ErrConflict):
		details := map[string]any{}
		if errors.As(err, &rej) {
			details["remote_code"] = rej.Code
		}
		respondStandardError(w, http.StatusConflict, domain.ErrCodeConflict, err.Error(), details)
	case errors.Is(err, domain.ErrNotFound):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		respondStandardError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "unauthorized", nil)
	case errors.As(err, &rej):
		respondStandardError(w, http.StatusBadGateway, domain.ErrCodeRemoteRejected, err.Error(),
			map[string]any{"remote_code": rej.Code})
	default:
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInternalError, "internal server error", nil)
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
