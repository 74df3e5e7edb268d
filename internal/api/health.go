package api

import (
	"net/http"

	"github.com/Priya8975/address-monitor-registry/internal/registry"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Height  uint64 `json:"height"`
}

// HealthHandler reports liveness along with the current block height.
func HealthHandler(version string, clock registry.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		height, err := clock.Now(r.Context())
		if err != nil {
			respondError(w, http.StatusServiceUnavailable, "block height unavailable")
			return
		}

		respondJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: version,
			Height:  height,
		})
	}
}
