package http

import (
	"net/http"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

type zoneHandler struct {
	zones service.ZoneService
}

type createZoneRequest struct {
	Kind    domain.ZoneKind `json:"kind" validate:"required,oneof=green red"`
	Polygon domain.Polygon  `json:"polygon" validate:"required,min=1"`
	Label   *string         `json:"label" validate:"omitempty,max=120"`
}

// list supports incremental refresh through since, an RFC 3339 timestamp.
func (h *zoneHandler) list(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, domain.Validation("invalid_since", "since must be an RFC 3339 timestamp"))
			return
		}
		since = &parsed
	}
	zones, err := h.zones.ListZones(r.Context(), since)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zones)
}

func (h *zoneHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createZoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	zone, err := h.zones.CreateZone(r.Context(), actor, service.CreateZoneInput{
		Kind: req.Kind, Polygon: req.Polygon, Label: req.Label,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}
