package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/service"
	"github.com/bcnelson/waf-ipset-manager/internal/validation"
)

// IPSetHandler handles IP set endpoints.
type IPSetHandler struct {
	svc *service.UpdateService
}

// NewIPSetHandler creates a new IPSetHandler.
func NewIPSetHandler(svc *service.UpdateService) *IPSetHandler {
	return &IPSetHandler{svc: svc}
}

// Get returns the current state of an IP set.
func (h *IPSetHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.Describe(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// AddAddresses adds the addresses in the request body to an IP set.
func (h *IPSetHandler) AddAddresses(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.svc.AddAddresses)
}

// RemoveAddresses removes the addresses in the request body from an IP set.
func (h *IPSetHandler) RemoveAddresses(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.svc.RemoveAddresses)
}

type applyFunc func(ctx context.Context, name string, raw []string) (*domain.OperationRecord, error)

func (h *IPSetHandler) apply(w http.ResponseWriter, r *http.Request, fn applyFunc) {
	var req domain.AddressesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", nil)
		return
	}

	record, err := fn(r.Context(), chi.URLParam(r, "name"), validation.SplitAddressList(req.Addresses...))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// Contains reports whether an address is registered in an IP set. The
// address may carry a prefix length, so the route uses a wildcard.
func (h *IPSetHandler) Contains(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || raw == "" {
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "address is required", nil)
		return
	}

	ok, err := h.svc.Contains(r.Context(), name, raw)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &domain.ContainsResponse{
		IPSet:    name,
		Address:  raw,
		Contains: ok,
	})
}
