package api

import (
	"net/http"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	ws "github.com/Priya8975/address-monitor-registry/internal/websocket"
)

type DashboardHandler struct {
	registry *registry.Registry
	events   EventSource
	hub      *ws.Hub
}

func NewDashboardHandler(reg *registry.Registry, events EventSource, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{registry: reg, events: events, hub: hub}
}

// Metrics returns registry counters together with event pipeline figures.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var queueDepth int64
	if h.events != nil {
		// an unreachable queue reports zero rather than failing the dashboard
		if depth, err := h.events.QueueDepth(r.Context()); err == nil {
			queueDepth = depth
		}
	}

	var clients int
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	type metricsResponse struct {
		domain.Stats
		QueueDepth       int64 `json:"queue_depth"`
		WebSocketClients int   `json:"websocket_clients"`
	}

	respondJSON(w, http.StatusOK, metricsResponse{
		Stats:            stats,
		QueueDepth:       queueDepth,
		WebSocketClients: clients,
	})
}
