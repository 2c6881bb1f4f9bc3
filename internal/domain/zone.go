package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ZoneKind string

const (
	ZoneKindGreen ZoneKind = "green"
	ZoneKindRed   ZoneKind = "red"
)

func (k ZoneKind) Valid() bool {
	switch k {
	case ZoneKindGreen, ZoneKindRed:
		return true
	}
	return false
}

// Polygon holds GeoJSON polygon rings of [lng, lat] positions. The first ring is the outer boundary.
type Polygon [][][]float64

// Zone is an admin-drawn area: green zones are preferred parking, red zones are off limits.
type Zone struct {
	ID        uuid.UUID  `json:"id"`
	Kind      ZoneKind   `json:"kind"`
	Polygon   Polygon    `json:"polygon"`
	Label     *string    `json:"label,omitempty"`
	Version   int        `json:"version"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks that every ring is closed, has at least four positions and stays on the globe.
func (p Polygon) Validate() error {
	if len(p) == 0 {
		return Validation("invalid_polygon", "polygon needs at least one ring")
	}
	for i, ring := range p {
		if len(ring) < 4 {
			return Validation("invalid_polygon", fmt.Sprintf("ring %d needs at least 4 positions", i))
		}
		for _, pos := range ring {
			if len(pos) != 2 {
				return Validation("invalid_polygon", "positions must be [lng, lat] pairs")
			}
			if pos[0] < -180 || pos[0] > 180 || pos[1] < -90 || pos[1] > 90 {
				return Validation("invalid_polygon", "position is outside valid coordinates")
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return Validation("invalid_polygon", fmt.Sprintf("ring %d is not closed", i))
		}
	}
	return nil
}
