package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerEarnings is the revenue split of one paid rental. Created once, never updated.
type OwnerEarnings struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	RentalID    uuid.UUID       `json:"rental_id"`
	Amount      decimal.Decimal `json:"amount"`
	OwnerShare  decimal.Decimal `json:"owner_share"`
	CycleShare  decimal.Decimal `json:"cycle_share"`
	OwnerAmount decimal.Decimal `json:"owner_amount"`
	CycleAmount decimal.Decimal `json:"cycle_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

type EarningsSummary struct {
	OwnerID        uuid.UUID       `json:"owner_id"`
	TotalRides     int             `json:"total_rides"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	AveragePerRide decimal.Decimal `json:"average_per_ride"`
}
