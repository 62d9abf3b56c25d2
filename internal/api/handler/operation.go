package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/service"
)

// OperationHandler serves the operation history.
type OperationHandler struct {
	svc *service.UpdateService
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(svc *service.UpdateService) *OperationHandler {
	return &OperationHandler{svc: svc}
}

// List returns recorded operations, newest first. Supports ?ipset=, ?limit=
// and ?offset=.
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.OperationFilter{IPSetName: q.Get("ipset")}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "limit must be a non-negative integer", nil)
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "offset must be a non-negative integer", nil)
			return
		}
	}

	ops, err := h.svc.History(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ops)
}

// Get returns one recorded operation.
func (h *OperationHandler) Get(w http.ResponseWriter, r *http.Request) {
	op, err := h.svc.Operation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, op)
}
