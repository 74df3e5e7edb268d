package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: codeForStatus(status)})
}

var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{domain.ErrNotSubscriptionOwner, http.StatusForbidden, "not_subscription_owner"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidAddress, http.StatusBadRequest, "invalid_address"},
	{domain.ErrInvalidParameters, http.StatusBadRequest, "invalid_parameters"},
	{domain.ErrSubscriptionExpired, http.StatusConflict, "subscription_expired"},
	{domain.ErrAlreadySubscribed, http.StatusConflict, "already_subscribed"},
	{domain.ErrIndexFull, http.StatusConflict, "index_full"},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{domain.ErrNotInitialized, http.StatusServiceUnavailable, "not_initialized"},
}

// respondDomainError maps a registry error to its status and code. Anything
// unrecognised is reported as an internal error without leaking details.
func respondDomainError(w http.ResponseWriter, err error) {
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			respondJSON(w, de.status, errorResponse{Error: de.err.Error(), Code: de.code})
			return
		}
	}
	respondError(w, http.StatusInternalServerError, "internal error")
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
