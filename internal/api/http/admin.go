package http

import (
	"net/http"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

const defaultTripsWindowDays = 30

type adminHandler struct {
	policies     service.PolicyService
	analytics    service.AnalyticsService
	users        service.UserService
	verification service.VerificationService
}

type updatePoliciesRequest struct {
	Values map[string]string `json:"values" validate:"required,min=1"`
}

type setUserPolicyRequest struct {
	OwnerMaxBikes *int `json:"owner_max_bikes" validate:"required,gte=0"`
}

type reviewVerificationRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Notes   string `json:"notes" validate:"max=1000"`
}

type dauResponse struct {
	Date        string `json:"date"`
	ActiveUsers int64  `json:"active_users"`
}

func (h *adminHandler) getPolicies(w http.ResponseWriter, r *http.Request) {
	policy, err := h.policies.GetPolicy(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (h *adminHandler) updatePolicies(w http.ResponseWriter, r *http.Request) {
	var req updatePoliciesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	policy, err := h.policies.UpdatePolicy(r.Context(), req.Values)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (h *adminHandler) dailyActiveUsers(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, r, domain.Validation("invalid_date", "date must be formatted YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	count, err := h.analytics.DailyActiveUsers(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dauResponse{Date: day.Format(time.DateOnly), ActiveUsers: count})
}

type tripsPerDockResponse struct {
	From  string             `json:"from"`
	To    string             `json:"to"`
	Docks []domain.DockTrips `json:"docks"`
}

// tripsPerDock counts ride starts per dock over [from, to], both inclusive UTC dates.
func (h *adminHandler) tripsPerDock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	to := today
	from := today.AddDate(0, 0, -(defaultTripsWindowDays - 1))
	for name, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, r, domain.Validation("invalid_date", name+" must be formatted YYYY-MM-DD"))
			return
		}
		*dst = parsed
	}
	docks, err := h.analytics.TripsPerDock(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripsPerDockResponse{
		From: from.Format(time.DateOnly), To: to.Format(time.DateOnly), Docks: docks,
	})
}

func (h *adminHandler) setUserPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req setUserPolicyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.SetOwnerMaxBikes(r.Context(), id, *req.OwnerMaxBikes); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *adminHandler) listVerifications(w http.ResponseWriter, r *http.Request) {
	p, size := pagination(r)
	docs, total, err := h.verification.ListPending(r.Context(), p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: docs, Page: p, PageSize: size, TotalCount: total})
}

func (h *adminHandler) reviewVerification(w http.ResponseWriter, r *http.Request) {
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
	var req reviewVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.verification.Review(r.Context(), actor.UserID, id, *req.Approve, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
