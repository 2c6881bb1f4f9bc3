package http

import (
	"net/http"

	"cycle-backend/internal/service"
)

type notificationHandler struct {
	notifications service.NotificationService
	verification  service.VerificationService
}

type submitVerificationRequest struct {
	Key string `json:"key" validate:"required"`
}

func (h *notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, size := pagination(r)
	items, total, err := h.notifications.GetNotifications(r.Context(), actor.UserID, p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Page: p, PageSize: size, TotalCount: total})
}

func (h *notificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
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
	if err := h.notifications.MarkAsRead(r.Context(), actor.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *notificationHandler) verificationUploadURL(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req uploadURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.verification.RequestUpload(r.Context(), actor.UserID, req.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *notificationHandler) submitVerification(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.verification.Submit(r.Context(), actor.UserID, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}
