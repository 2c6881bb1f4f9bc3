package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxRideMinutes caps minutes_client at 31 days.
const MaxRideMinutes = 31 * 24 * 60

type RentalStatus string

const (
	RentalStatusOpen       RentalStatus = "open"
	RentalStatusEndPending RentalStatus = "end_pending"
	RentalStatusClosed     RentalStatus = "closed"
)

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusOpen, RentalStatusEndPending, RentalStatusClosed:
		return true
	}
	return false
}

// CanEnd reports whether EndRide may close a rental in this status.
func (s RentalStatus) CanEnd() bool {
	switch s {
	case RentalStatusOpen:
		return true
	case RentalStatusEndPending, RentalStatusClosed:
		return false
	}
	return false
}

// PathPoint is one breadcrumb of a ride. Billing never reads it.
type PathPoint struct {
	Lat float64    `json:"lat"`
	Lng float64    `json:"lng"`
	At  *time.Time `json:"at,omitempty"`
}

type Rental struct {
	ID             uuid.UUID  `json:"id"`
	ClientRentalID *string    `json:"client_rental_id,omitempty"`
	BikeID         uuid.UUID  `json:"bike_id"`
	UserID         uuid.UUID  `json:"user_id"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	// Per-minute price captured from the bike when the ride started.
	MinuteRateSnapshot decimal.Decimal  `json:"minute_rate_snapshot"`
	MinutesClient      *int             `json:"minutes_client,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	Status             RentalStatus     `json:"status"`
	PathSample         []PathPoint      `json:"path_sample,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// CheckInvariants verifies that amount and end_at are set exactly when the rental is closed.
func (r *Rental) CheckInvariants() error {
	if !r.Status.Valid() {
		return Validation("invalid_rental_status", "unknown rental status "+string(r.Status))
	}
	closed := r.Status == RentalStatusClosed
	if closed != (r.Amount != nil) || closed != (r.EndAt != nil) {
		return Conflict("rental_inconsistent", "amount and end_at must be set only on closed rentals")
	}
	return nil
}
