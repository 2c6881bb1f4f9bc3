package domain

import (
	"time"

	"github.com/google/uuid"
)

type BikeStatus string

const (
	BikeStatusAvailable   BikeStatus = "available"
	BikeStatusRented      BikeStatus = "rented"
	BikeStatusMaintenance BikeStatus = "maintenance"
	BikeStatusInactive    BikeStatus = "inactive"
)

func (s BikeStatus) Valid() bool {
	switch s {
	case BikeStatusAvailable, BikeStatusRented, BikeStatusMaintenance, BikeStatusInactive:
		return true
	}
	return false
}

type BikeType string

const (
	BikeTypeStandard BikeType = "standard"
	BikeTypePremium  BikeType = "premium"
	BikeTypeOld      BikeType = "old"
)

func (t BikeType) Valid() bool {
	switch t {
	case BikeTypeStandard, BikeTypePremium, BikeTypeOld:
		return true
	}
	return false
}

type BikeCondition string

const (
	BikeConditionA BikeCondition = "A"
	BikeConditionB BikeCondition = "B"
	BikeConditionC BikeCondition = "C"
)

func (c BikeCondition) Valid() bool {
	switch c {
	case BikeConditionA, BikeConditionB, BikeConditionC:
		return true
	}
	return false
}

type Bike struct {
	ID         uuid.UUID     `json:"id"`
	OwnerID    *uuid.UUID    `json:"owner_id,omitempty"`
	Type       BikeType      `json:"type"`
	Condition  BikeCondition `json:"condition"`
	HourlyRate int           `json:"hourly_rate"`
	DockID     *uuid.UUID    `json:"dock_id,omitempty"`
	Status     BikeStatus    `json:"status"`
	Photos     []string      `json:"photos"`
	RentedAt   *time.Time    `json:"rented_at,omitempty"`
	ReturnedAt *time.Time    `json:"returned_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// BikeFilter narrows ListBikes; zero values are ignored.
type BikeFilter struct {
	DockID  *uuid.UUID
	OwnerID *uuid.UUID
	Type    BikeType
	Status  BikeStatus
}

// NearbyBikes lists available bikes around a point. FallbackUsed is set when none were in range
// and a random sample of available bikes was returned instead.
type NearbyBikes struct {
	Bikes        []Bike `json:"bikes"`
	Count        int    `json:"count"`
	FallbackUsed bool   `json:"fallback_used"`
	Message      string `json:"message,omitempty"`
}
