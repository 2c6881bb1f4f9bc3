package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRideStart             EventType = "ride_start"
	EventRideEnd               EventType = "ride_end"
	EventBikeCreated           EventType = "bike_created"
	EventBikeUpdated           EventType = "bike_updated"
	EventBikePhotoUploaded     EventType = "bike_photo_uploaded"
	EventUserSignup            EventType = "user_signup"
	EventUserLogin             EventType = "user_login"
	EventPaymentSuccess        EventType = "payment_success"
	EventPaymentFailed         EventType = "payment_failed"
	EventVerificationSubmitted EventType = "verification_submitted"
	EventBikeDeleted           EventType = "bike_deleted"
	EventBikePhotoDeleted      EventType = "bike_photo_deleted"
	EventDockUpdated           EventType = "dock_updated"
	EventDockDeleted           EventType = "dock_deleted"
	EventZoneCreated           EventType = "zone_created"
	EventEmailVerified         EventType = "email_verified"
)

// MaxEventTypeLength bounds client-supplied event types on bulk sync.
const MaxEventTypeLength = 64

// Event is an append-only analytics record.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	BikeID     *uuid.UUID     `json:"bike_id,omitempty"`
	DockID     *uuid.UUID     `json:"dock_id,omitempty"`
	Type       EventType      `json:"event_type"`
	Properties map[string]any `json:"properties"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// DockTrips is the number of rides that started from one dock.
type DockTrips struct {
	DockID   uuid.UUID `json:"dock_id"`
	DockName string    `json:"dock_name"`
	Trips    int64     `json:"trips"`
}
