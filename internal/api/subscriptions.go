package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	"github.com/go-chi/chi/v5"
)

type SubscriptionHandler struct {
	registry *registry.Registry
}

func NewSubscriptionHandler(reg *registry.Registry) *SubscriptionHandler {
	return &SubscriptionHandler{registry: reg}
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())

	var req domain.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.registry.Create(r.Context(), caller, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, domain.CreateSubscriptionResponse{
		ID:     sub.ID,
		Expiry: sub.Expiry,
	})
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := subscriptionID(w, r)
	if !ok {
		return
	}

	sub, err := h.registry.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Renew(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	id, ok := subscriptionID(w, r)
	if !ok {
		return
	}

	expiry, err := h.registry.Renew(r.Context(), caller, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, domain.RenewSubscriptionResponse{ID: id, NewExpiry: expiry})
}

func (h *SubscriptionHandler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	id, ok := subscriptionID(w, r)
	if !ok {
		return
	}

	var params domain.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.UpdateParameters(r.Context(), caller, id, params); err != nil {
		respondDomainError(w, err)
		return
	}

	sub, err := h.registry.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFromContext(r.Context())
	id, ok := subscriptionID(w, r)
	if !ok {
		return
	}

	if err := h.registry.Cancel(r.Context(), caller, id); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

type idListResponse struct {
	Principal domain.Principal `json:"principal"`
	IDs       []uint64         `json:"ids"`
}

func (h *SubscriptionHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	user := domain.Principal(chi.URLParam(r, "principal"))

	ids, err := h.registry.UserSubscriptions(r.Context(), user)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, idListResponse{Principal: user, IDs: ids})
}

func (h *SubscriptionHandler) ByAddress(w http.ResponseWriter, r *http.Request) {
	addr := domain.Principal(chi.URLParam(r, "principal"))

	ids, err := h.registry.AddressSubscriptions(r.Context(), addr)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, idListResponse{Principal: addr, IDs: ids})
}

func (h *SubscriptionHandler) Monitored(w http.ResponseWriter, r *http.Request) {
	addr := domain.Principal(chi.URLParam(r, "principal"))

	monitored, err := h.registry.IsAddressMonitored(r.Context(), addr)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	type monitoredResponse struct {
		Address   domain.Principal `json:"address"`
		Monitored bool             `json:"monitored"`
	}
	respondJSON(w, http.StatusOK, monitoredResponse{Address: addr, Monitored: monitored})
}

func (h *SubscriptionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *SubscriptionHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.registry.Settings(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *SubscriptionHandler) Balance(w http.ResponseWriter, r *http.Request) {
	p := domain.Principal(chi.URLParam(r, "principal"))

	balance, err := h.registry.Balance(r.Context(), p)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	type balanceResponse struct {
		Principal domain.Principal `json:"principal"`
		Balance   uint64           `json:"balance"`
	}
	respondJSON(w, http.StatusOK, balanceResponse{Principal: p, Balance: balance})
}

func subscriptionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid subscription id")
		return 0, false
	}
	return id, true
}
