package http

import (
	"net/http"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

type syncHandler struct {
	sync service.EventSyncService
}

type syncEvent struct {
	ID         string         `json:"id" validate:"omitempty,uuid"`
	UserID     string         `json:"user_id" validate:"omitempty,uuid"`
	BikeID     string         `json:"bike_id" validate:"omitempty,uuid"`
	DockID     string         `json:"dock_id" validate:"omitempty,uuid"`
	Type       string         `json:"event_type" validate:"required,max=64"`
	Properties map[string]any `json:"properties"`
	OccurredAt *time.Time     `json:"occurred_at"`
}

type syncEventsRequest struct {
	Events []syncEvent `json:"events" validate:"required,min=1,max=500,dive"`
}

type syncEventsResponse struct {
	Stored int `json:"stored"`
}

func (h *syncHandler) events(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req syncEventsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	events := make([]domain.Event, 0, len(req.Events))
	for _, e := range req.Events {
		event := domain.Event{Type: domain.EventType(e.Type), Properties: e.Properties}
		if id, _ := optionalUUID(e.ID, "id"); id != nil {
			event.ID = *id
		}
		event.UserID, _ = optionalUUID(e.UserID, "user_id")
		event.BikeID, _ = optionalUUID(e.BikeID, "bike_id")
		event.DockID, _ = optionalUUID(e.DockID, "dock_id")
		if e.OccurredAt != nil {
			event.OccurredAt = e.OccurredAt.UTC()
		}
		events = append(events, event)
	}

	n, err := h.sync.SyncEvents(r.Context(), actor.UserID, events)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, syncEventsResponse{Stored: n})
}
