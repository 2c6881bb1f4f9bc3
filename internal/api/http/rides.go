package http

import (
	"net/http"
	"time"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type rideHandler struct {
	rentals             service.RentalService
	paymentInstructions string
}

type startRideRequest struct {
	ClientRentalID     *string          `json:"client_rental_id" validate:"omitempty,max=64"`
	BikeID             string           `json:"bike_id" validate:"required,uuid"`
	UserID             string           `json:"user_id" validate:"omitempty,uuid"`
	StartAt            time.Time        `json:"start_at" validate:"required"`
	MinuteRateSnapshot *decimal.Decimal `json:"minute_rate_snapshot"`
}

type startRideResponse struct {
	RentalID      uuid.UUID `json:"rental_id"`
	ServerStartAt time.Time `json:"server_start_at"`
	MinuteRate    string    `json:"minute_rate"`
	Replayed      bool      `json:"replayed"`
}

type endRideRequest struct {
	ClientRentalID *string            `json:"client_rental_id" validate:"omitempty,max=64"`
	RentalID       string             `json:"rental_id" validate:"omitempty,uuid"`
	EndAt          time.Time          `json:"end_at" validate:"required"`
	MinutesClient  *int               `json:"minutes_client" validate:"required,gte=0,lte=44640"`
	PathSample     []domain.PathPoint `json:"path_sample" validate:"omitempty,max=2000"`
}

type endRideResponse struct {
	RentalID            uuid.UUID `json:"rental_id"`
	Amount              string    `json:"amount"`
	Minutes             int       `json:"minutes"`
	PaymentInstructions string    `json:"payment_instructions"`
}

func (h *rideHandler) start(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req startRideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// The token identifies the rider; the body may only repeat it.
	if req.UserID != "" && req.UserID != actor.UserID.String() {
		writeError(w, r, domain.Forbidden("user_mismatch", "user_id does not match the authenticated user"))
		return
	}

	rental, replayed, err := h.rentals.StartRide(r.Context(), service.StartRideInput{
		BikeID:           uuid.MustParse(req.BikeID),
		UserID:           actor.UserID,
		ClientStartAt:    req.StartAt.UTC(),
		ClientRentalID:   req.ClientRentalID,
		ClientMinuteRate: req.MinuteRateSnapshot,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, startRideResponse{
		RentalID:      rental.ID,
		ServerStartAt: rental.StartAt,
		MinuteRate:    domain.FormatRate(rental.MinuteRateSnapshot),
		Replayed:      replayed,
	})
}

func (h *rideHandler) end(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req endRideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rentalID, err := optionalUUID(req.RentalID, "rental_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rental, err := h.rentals.EndRide(r.Context(), service.EndRideInput{
		RentalID:       rentalID,
		ClientRentalID: req.ClientRentalID,
		UserID:         actor.UserID,
		ClientEndAt:    req.EndAt.UTC(),
		MinutesClient:  *req.MinutesClient,
		PathSample:     req.PathSample,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, endRideResponse{
		RentalID:            rental.ID,
		Amount:              domain.FormatMoney(*rental.Amount),
		Minutes:             *rental.MinutesClient,
		PaymentInstructions: h.paymentInstructions,
	})
}

func (h *rideHandler) get(w http.ResponseWriter, r *http.Request) {
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
	rental, err := h.rentals.GetRental(r.Context(), actor.UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

func (h *rideHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, size := pagination(r)
	rentals, total, err := h.rentals.ListRentals(r.Context(), actor.UserID, p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: rentals, Page: p, PageSize: size, TotalCount: total})
}
