package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// EventSource reads the queue of published registry change events.
type EventSource interface {
	Recent(ctx context.Context, eventType string, limit int) ([]domain.Event, error)
	QueueDepth(ctx context.Context) (int64, error)
}

type EventHandler struct {
	events EventSource
}

func NewEventHandler(events EventSource) *EventHandler {
	return &EventHandler{events: events}
}

// List returns the most recent queued change events, newest first.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusServiceUnavailable, "event queue not configured")
		return
	}

	eventType := r.URL.Query().Get("event_type")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.events.Recent(r.Context(), eventType, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}
