package api

import (
	"encoding/json"
	"net/http"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
)

// AdminHandler serves the owner-only operations. Authorization is decided by
// the registry against the persisted owner, not by the router.
type AdminHandler struct {
	registry *registry.Registry
}

func NewAdminHandler(reg *registry.Registry) *AdminHandler {
	return &AdminHandler{registry: reg}
}

type withdrawRequest struct {
	Amount    uint64           `json:"amount"`
	Recipient domain.Principal `json:"recipient"`
}

func (h *AdminHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := h.registry.WithdrawFees(r.Context(), caller, req.Amount, req.Recipient)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, withdrawRequest{Amount: amount, Recipient: req.Recipient})
}

func (h *AdminHandler) SetDuration(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req struct {
		Duration uint64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.SetDuration(r.Context(), caller, req.Duration); err != nil {
		respondDomainError(w, err)
		return
	}
	h.respondSettings(w, r)
}

func (h *AdminHandler) SetFee(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req struct {
		Fee uint64 `json:"fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.SetFee(r.Context(), caller, req.Fee); err != nil {
		respondDomainError(w, err)
		return
	}
	h.respondSettings(w, r)
}

func (h *AdminHandler) respondSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.registry.Settings(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
