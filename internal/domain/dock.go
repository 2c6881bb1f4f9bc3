package domain

import (
	"time"

	"github.com/google/uuid"
)

type Dock struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// NearbyDock is a dock with its distance from the query point in kilometres.
type NearbyDock struct {
	Dock
	DistanceKm     float64 `json:"distance_km"`
	AvailableBikes int     `json:"available_bikes"`
}
