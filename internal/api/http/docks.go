package http

import (
	"net/http"
	"strconv"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

const defaultNearbyRadiusKm = 2.0

type dockHandler struct {
	docks service.DockService
}

type createDockRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Capacity int     `json:"capacity" validate:"required,gt=0"`
}

func (h *dockHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dock := &domain.Dock{Name: req.Name, Lat: req.Lat, Lng: req.Lng, Capacity: req.Capacity}
	if err := h.docks.CreateDock(r.Context(), dock); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dock)
}

type updateDockRequest struct {
	Name     *string  `json:"name" validate:"omitempty,max=120"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Capacity *int     `json:"capacity" validate:"omitempty,gt=0"`
}

func (h *dockHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateDockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dock, err := h.docks.UpdateDock(r.Context(), id, service.UpdateDockInput{
		Name: req.Name, Capacity: req.Capacity, Lat: req.Lat, Lng: req.Lng,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dock)
}

func (h *dockHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.docks.DeleteDock(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *dockHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dock, err := h.docks.GetDock(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dock)
}

func (h *dockHandler) list(w http.ResponseWriter, r *http.Request) {
	p, size := pagination(r)
	docks, total, err := h.docks.ListDocks(r.Context(), p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: docks, Page: p, PageSize: size, TotalCount: total})
}

// locationQuery reads lat, lng and an optional radius_km from the query string.
func locationQuery(r *http.Request, defaultRadius float64) (lat, lng, radius float64, err error) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		return 0, 0, 0, domain.Validation("invalid_coordinates", "lat and lng query parameters are required")
	}
	radius = defaultRadius
	if raw := q.Get("radius_km"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			return 0, 0, 0, domain.Validation("invalid_radius", "radius_km must be a number")
		}
	}
	return lat, lng, radius, nil
}

func (h *dockHandler) nearby(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, err := locationQuery(r, defaultNearbyRadiusKm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docks, err := h.docks.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docks)
}
