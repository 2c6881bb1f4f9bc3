package http

import (
	"net/http"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

type bikeHandler struct {
	bikes service.BikeService
}

type createBikeRequest struct {
	Type       domain.BikeType      `json:"type" validate:"required"`
	Condition  domain.BikeCondition `json:"condition" validate:"required"`
	HourlyRate int                  `json:"hourly_rate" validate:"required,gt=0"`
	DockID     string               `json:"dock_id" validate:"omitempty,uuid"`
}

type updateBikeRequest struct {
	Type       *domain.BikeType      `json:"type"`
	Condition  *domain.BikeCondition `json:"condition"`
	HourlyRate *int                  `json:"hourly_rate" validate:"omitempty,gt=0"`
	DockID     string                `json:"dock_id" validate:"omitempty,uuid"`
	Status     *domain.BikeStatus    `json:"status"`
}

type uploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

type confirmUploadRequest struct {
	Key string `json:"key" validate:"required"`
}

func (h *bikeHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createBikeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dockID, err := optionalUUID(req.DockID, "dock_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bike, err := h.bikes.CreateBike(r.Context(), actor.UserID, service.CreateBikeInput{
		Type: req.Type, Condition: req.Condition, HourlyRate: req.HourlyRate, DockID: dockID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bike)
}

func (h *bikeHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBikeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	dockID, err := optionalUUID(req.DockID, "dock_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bike, err := h.bikes.UpdateBike(r.Context(), actor, id, service.UpdateBikeInput{
		Type: req.Type, Condition: req.Condition, HourlyRate: req.HourlyRate, DockID: dockID, Status: req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bike)
}

func (h *bikeHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bike, err := h.bikes.GetBike(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bike)
}

func (h *bikeHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dockID, err := optionalUUID(q.Get("dock_id"), "dock_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ownerID, err := optionalUUID(q.Get("owner_id"), "owner_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.BikeFilter{
		DockID:  dockID,
		OwnerID: ownerID,
		Type:    domain.BikeType(q.Get("type")),
		Status:  domain.BikeStatus(q.Get("status")),
	}
	p, size := pagination(r)
	bikes, total, err := h.bikes.ListBikes(r.Context(), filter, p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: bikes, Page: p, PageSize: size, TotalCount: total})
}

func (h *bikeHandler) photoUploadURL(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req uploadURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.bikes.RequestPhotoUpload(r.Context(), actor, id, req.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *bikeHandler) confirmPhoto(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req confirmUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bike, err := h.bikes.ConfirmPhoto(r.Context(), actor, id, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bike)
}

// nearby lists available bikes at docks around a point, falling back to a random sample.
func (h *bikeHandler) nearby(w http.ResponseWriter, r *http.Request) {
	lat, lng, radius, err := locationQuery(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.bikes.NearbyBikes(r.Context(), lat, lng, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *bikeHandler) remove(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.bikes.DeleteBike(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deletePhoto takes the photo URL as the url query parameter.
func (h *bikeHandler) deletePhoto(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	photoURL := r.URL.Query().Get("url")
	if photoURL == "" {
		writeError(w, r, domain.Validation("photo_url_required", "url query parameter is required"))
		return
	}
	bike, err := h.bikes.DeletePhoto(r.Context(), actor, id, photoURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bike)
}
